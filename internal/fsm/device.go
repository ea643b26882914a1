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

package fsm

import (
	"net/netip"
	"sync"

	"github.com/go-logr/logr"

	"github.com/jr42/dhcpv6-supplicant/internal/clock"
	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/selection"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
	"github.com/jr42/dhcpv6-supplicant/internal/xid"
)

// Config is the per-device DHCPv6 profile (spec.md §3 "config: mode ∈
// {managed, info-only}, rapid-commit allowed, user-class, vendor-class,
// requested-options set, hostname").
type Config struct {
	RapidCommitAllowed bool
	UserClass          []byte
	VendorClass        []byte
	RequestedOptions   []uint16
	Hostname           string
}

// Option configures optional Device collaborators at construction.
type Option func(*Device)

// WithMetrics installs a Metrics sink other than the no-op default.
func WithMetrics(m Metrics) Option {
	return func(d *Device) { d.metrics = m }
}

// WithLogger installs a structured logger other than logr's discard
// sink, following the teacher corpus's go-logr/logr convention.
func WithLogger(log logr.Logger) Option {
	return func(d *Device) { d.log = log }
}

// WithScheduler substitutes the retransmission Scheduler, letting tests
// pin down jitter via transaction.WithRand.
func WithScheduler(s *transaction.Scheduler) Option {
	return func(d *Device) { d.sched = s }
}

// Device is one interface's DHCPv6 client context (spec.md §3 "Device
// context", §9 "explicit interface handles passed in at device
// construction; per-process singletons are banned"). It owns its
// lease, its at-most-one outstanding Transaction, and the per-state
// data (pending_advertise_set, candidate lease) that is only valid in
// the state that produces it.
type Device struct {
	mu sync.RWMutex

	ifindex    uint32
	clientDUID []byte
	iaid       uint32
	cfg        Config

	state     State
	linkReady bool
	mode      Mode

	txn            *transaction.Transaction
	selBuf         *selection.Buffer
	candidate      *lease.Candidate
	unicastServer  *netip.Addr
	excluded       map[string]bool // servers this boot cycle has rejected
	selectedServer advertiseChoice
	serverAddr     netip.Addr // source address of the last accepted server message
	rebootCache    *lease.Lease

	leases  *lease.Store
	sched   *transaction.Scheduler
	clk     clock.Clock
	timer   clock.Timer
	timerCh chan struct{}

	codec   Codec
	link    LinkManager
	applier Applier
	metrics Metrics
	log     logr.Logger

	events chan LeaseEvent
}

// NewDevice constructs a Device in state INIT with an empty lease
// store. ifindex identifies the interface to the link manager and
// applier; clientDUID and iaid are stable identifiers persisted by the
// caller across restarts (spec.md §6 "Persistent state").
func NewDevice(ifindex uint32, clientDUID []byte, iaid uint32, cfg Config, codec Codec, link LinkManager, applier Applier, clk clock.Clock, opts ...Option) *Device {
	d := &Device{
		ifindex:    ifindex,
		clientDUID: clientDUID,
		iaid:       iaid,
		cfg:        cfg,
		state:      Init,
		selBuf:     selection.New(),
		excluded:   make(map[string]bool),
		leases:     lease.NewStore(),
		sched:      transaction.NewScheduler(),
		clk:        clk,
		codec:      codec,
		link:       link,
		applier:    applier,
		metrics:    NopMetrics{},
		log:        logr.Discard(),
		events:     make(chan LeaseEvent, 8),
		timerCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the device's current FSM state.
func (d *Device) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// CurrentLease returns the presently held lease, or nil.
func (d *Device) CurrentLease() *lease.Lease {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.leases.Current()
}

// CurrentXID returns the device's in-flight transaction id, or nil if
// none is outstanding (spec.md §3 invariant).
func (d *Device) CurrentXID() *xid.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.txn == nil {
		return nil
	}
	x := d.txn.XID
	return &x
}

// UnicastServer returns the server endpoint a unicast Renew Reply is
// accepted from. It is set when a Renew is sent unicast and stays set
// (including in BOUND after that renewal) until a new Solicit, a
// Rebind, LinkDown or Stop clears it; it is nil before any unicast
// Renew.
func (d *Device) UnicastServer() *netip.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unicastServer
}

// Events returns the channel of observable lease events (spec.md §6).
func (d *Device) Events() <-chan LeaseEvent {
	return d.events
}

func (d *Device) emit(ev LeaseEvent) {
	d.metrics.IncLeaseEvent(ev.Kind)
	select {
	case d.events <- ev:
	default:
		d.log.Info("dropping lease event, subscriber too slow", "kind", ev.Kind.String())
	}
}

func (d *Device) setState(next State) {
	if d.state != next {
		d.metrics.IncTransition(d.state, next)
		d.log.V(1).Info("state transition", "from", d.state.String(), "to", next.String())
	}
	d.state = next
	if !next.HasTransaction() {
		d.txn = nil
	}
}

func (d *Device) cancelTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
