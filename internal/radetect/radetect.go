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

// Package radetect watches Router Advertisements for the M/O flags
// that decide whether a device should run the managed (address-
// assigning) or information-only DHCPv6 profile (SPEC_FULL.md §4
// "Mode selection"). The mode is chosen from the M flag alone: M set
// selects managed, anything else selects information-only; the O flag
// is only logged. Adapted from the teacher's ra_receiver.go, which
// watched RAs for prefix information instead of the M/O flags — the
// NDP read loop, deadline-based stop signaling and logging idiom carry
// over unchanged.
package radetect

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"github.com/mdlayher/ndp"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
)

// Decision is one M/O-flag observation for the watched interface.
type Decision struct {
	Mode fsm.Mode
	From net.IP
}

// Watcher listens for Router Advertisements on one interface and
// reports the mode they imply (spec.md §3 "config: mode"; SPEC_FULL.md
// §4 lets this be driven automatically instead of only from static
// config).
type Watcher struct {
	iface string
	log   logr.Logger

	conn    *ndp.Conn
	events  chan Decision
	stopCh  chan struct{}
	cancel  context.CancelFunc
	started bool
}

// New returns a Watcher for iface; it does not start listening until
// Start is called.
func New(iface string, log logr.Logger) *Watcher {
	return &Watcher{
		iface:  iface,
		log:    log,
		events: make(chan Decision, 10),
		stopCh: make(chan struct{}),
	}
}

// Decisions returns the channel of M/O observations.
func (w *Watcher) Decisions() <-chan Decision { return w.events }

// Start begins listening for Router Advertisements on the configured
// interface. Stop via ctx cancellation or calling Stop.
func (w *Watcher) Start(ctx context.Context) error {
	if w.started {
		return nil
	}
	ifi, err := net.InterfaceByName(w.iface)
	if err != nil {
		return fmt.Errorf("radetect: resolving interface %s: %w", w.iface, err)
	}
	conn, _, err := ndp.Listen(ifi, ndp.LinkLocal)
	if err != nil {
		return fmt.Errorf("radetect: listening for NDP on %s: %w", w.iface, err)
	}
	w.conn = conn

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started = true
	go w.receiveLoop(ctx)
	return nil
}

// Stop releases the NDP socket and stops the receive loop.
func (w *Watcher) Stop() error {
	if !w.started {
		return nil
	}
	w.started = false
	if w.cancel != nil {
		w.cancel()
	}
	close(w.stopCh)
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

func (w *Watcher) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			w.log.Error(err, "setting NDP read deadline")
			continue
		}
		msg, _, from, err := w.conn.ReadFrom()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			w.log.Error(err, "reading NDP message")
			continue
		}
		ra, ok := msg.(*ndp.RouterAdvertisement)
		if !ok {
			continue
		}
		w.handleRA(ra, from)
	}
}

func (w *Watcher) handleRA(ra *ndp.RouterAdvertisement, from net.Addr) {
	mode := fsm.ModeInfoOnly
	if ra.ManagedConfiguration {
		mode = fsm.ModeManaged
	}
	var fromIP net.IP
	if ipAddr, ok := from.(*net.IPAddr); ok {
		fromIP = ipAddr.IP
	}
	w.log.V(1).Info("observed router advertisement",
		"managed", ra.ManagedConfiguration, "other", ra.OtherConfiguration, "from", from)
	select {
	case w.events <- Decision{Mode: mode, From: fromIP}:
	default:
		w.log.Info("decision channel full, dropping RA observation")
	}
}
