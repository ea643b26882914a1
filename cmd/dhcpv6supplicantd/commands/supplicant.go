/*
Copyright 2026 jr42.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"

	"github.com/jr42/dhcpv6-supplicant/internal/clock"
	"github.com/jr42/dhcpv6-supplicant/internal/config"
	"github.com/jr42/dhcpv6-supplicant/internal/dispatch"
	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
	"github.com/jr42/dhcpv6-supplicant/internal/linkmgr"
	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/metrics"
	"github.com/jr42/dhcpv6-supplicant/internal/radetect"
	"github.com/jr42/dhcpv6-supplicant/internal/wire"
)

// deviceRuntime pairs a configured Device with the inbound channel the
// shared read loop demultiplexes its packets onto (spec.md §4.3
// dispatcher input, generalized here to multiple interfaces).
type deviceRuntime struct {
	cfg     config.InterfaceConfig
	dev     *fsm.Device
	inbound chan message.Parsed
	ra      *radetect.Watcher
}

// supplicant wires one DeviceFactory and one shared link manager
// across every configured interface — the only genuinely process-wide
// collaborators (spec.md §9 "per-process singletons are banned" for
// everything else).
type supplicant struct {
	link       *linkmgr.Manager
	codec      *wire.Codec
	clientDUID []byte
	log        logr.Logger
	metrics    *metrics.Metrics
	factory    *fsm.DeviceFactory

	mu      sync.RWMutex
	devices map[uint32]*deviceRuntime
}

func newSupplicant(link *linkmgr.Manager, codec *wire.Codec, appl fsm.Applier, m *metrics.Metrics, clientDUID []byte, log logr.Logger) *supplicant {
	factory := fsm.NewDeviceFactory(codec, link, appl, clock.New())
	factory.Metrics = m
	return &supplicant{
		link:       link,
		codec:      codec,
		clientDUID: clientDUID,
		log:        log,
		metrics:    m,
		factory:    factory,
		devices:    make(map[uint32]*deviceRuntime),
	}
}

// addInterface resolves ic.Name, joins its DHCPv6 multicast group, and
// creates the Device that will drive it.
func (s *supplicant) addInterface(ctx context.Context, ic config.InterfaceConfig) error {
	ifi, err := net.InterfaceByName(ic.Name)
	if err != nil {
		return fmt.Errorf("resolving interface: %w", err)
	}
	ifindex := uint32(ifi.Index)
	if err := s.link.JoinInterface(ifindex); err != nil {
		return fmt.Errorf("joining multicast group: %w", err)
	}

	ifaceLog := s.log.WithValues("interface", ic.Name)
	dev, err := s.factory.Create(ifindex, s.clientDUID, ic.IAID, ic.FSMConfig(), fsm.WithLogger(ifaceLog))
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}

	rt := &deviceRuntime{cfg: ic, dev: dev, inbound: make(chan message.Parsed, 8)}
	if ic.AutoMode {
		rt.ra = radetect.New(ic.Name, ifaceLog.WithName("radetect"))
		if err := rt.ra.Start(ctx); err != nil {
			return fmt.Errorf("starting router advertisement watcher: %w", err)
		}
	} else {
		dev.Process(fsm.NewStart(ic.FSMMode()))
	}

	s.mu.Lock()
	s.devices[ifindex] = rt
	s.mu.Unlock()

	go s.runDevice(ctx, rt)
	return nil
}

// run blocks demultiplexing inbound packets to their owning device
// until ctx is cancelled.
func (s *supplicant) run(ctx context.Context) {
	go s.readLoop(ctx)
	<-ctx.Done()
}

func (s *supplicant) readLoop(ctx context.Context) {
	buf := make([]byte, 1500)
	for {
		n, ifindex, src, err := s.link.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error(err, "reading from link")
			continue
		}
		parsed, err := s.codec.Decode(buf[:n], src)
		if err != nil {
			s.metrics.IncDispatchDrop("malformed")
			continue
		}

		s.mu.RLock()
		rt, ok := s.devices[ifindex]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		select {
		case rt.inbound <- parsed:
		default:
			s.metrics.IncDispatchDrop("backpressure")
		}
	}
}

func (s *supplicant) runDevice(ctx context.Context, rt *deviceRuntime) {
	var raDecisions <-chan radetect.Decision
	if rt.ra != nil {
		raDecisions = rt.ra.Decisions()
	}

	for {
		select {
		case <-ctx.Done():
			rt.dev.Process(fsm.NewStop())
			if rt.ra != nil {
				rt.ra.Stop()
			}
			return

		case <-rt.dev.TimerC():
			rt.dev.Process(fsm.NewTimerFired())

		case msg := <-rt.inbound:
			view := dispatch.View{
				ClientDUID:    s.clientDUID,
				CurrentXID:    rt.dev.CurrentXID(),
				UnicastServer: rt.dev.UnicastServer(),
			}
			validated, reason := dispatch.Validate(view, msg)
			if reason != dispatch.DropNone {
				s.metrics.IncDispatchDrop(string(reason))
				continue
			}
			rt.dev.Process(fsm.NewRxMessage(validated))

		case d := <-raDecisions:
			rt.dev.Process(fsm.NewStart(d.Mode))

		case ev, ok := <-rt.dev.Events():
			if !ok {
				continue
			}
			s.log.Info("lease event", "interface", rt.cfg.Name, "kind", ev.Kind.String(), "reason", ev.Reason)
		}
	}
}
