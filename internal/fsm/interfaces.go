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

	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
	"github.com/jr42/dhcpv6-supplicant/internal/xid"
)

// AllDHCPRelayAgentsAndServers is the well-known multicast group DHCPv6
// clients send Solicit, Confirm, Rebind and Information-Request to
// (ff02::1:2, RFC 3315 §5.1).
var AllDHCPRelayAgentsAndServers = netip.MustParseAddr("ff02::1:2")

// OutMessage is everything the codec needs to encode one outbound
// DHCPv6 message; the FSM builds it fully so Codec stays a pure
// encode/decode boundary with no knowledge of FSM state (spec.md §6
// "the FSM calls encode(kind, xid, device_context, lease?)").
type OutMessage struct {
	Kind      transaction.Kind
	XID       xid.ID
	ElapsedMS uint16

	ClientDUID []byte
	ServerDUID []byte // nil for multicast Solicit/Confirm/Rebind/Information-Request

	IAID  uint32
	Addrs []lease.Addr // echoed IA_NA addresses for Request/Renew/Rebind/Release/Decline

	RequestedOptions []uint16
	Hostname         string
	UserClass        []byte
	VendorClass      []byte
	RapidCommit      bool
}

// Codec is the wire encode/decode boundary the FSM consumes through
// (spec.md §6 "Codec interface"). Only Encode is declared here, since
// the FSM calls only Encode; decoding happens ahead of the dispatcher
// and the FSM (wire.Codec.Decode in the daemon's read loop).
type Codec interface {
	Encode(msg OutMessage) ([]byte, error)
}

// LinkManager is the FSM's only path to the network (spec.md §6 "Link
// manager interface"): it owns the socket, multicast membership and
// interface up/down notifications, none of which the FSM touches
// directly (spec.md §5 "The FSM holds no file descriptors directly").
type LinkManager interface {
	Send(ifindex uint32, dst netip.Addr, payload []byte) error
}

// Applier installs and withdraws leases on the operating system and
// persists the last-known-good lease across restarts (spec.md §6
// "Lease applier interface").
type Applier interface {
	// Apply installs l on the operating system. On ApplyDADConflict the
	// returned address identifies the offending IAAddr (spec.md §6
	// "apply(ifindex, lease) → {ok | dad_conflict(addr) | io_error}").
	Apply(ifindex uint32, l *lease.Lease) (ApplyOutcome, netip.Addr)
	Withdraw(ifindex uint32, addrs []lease.Addr)
	CacheGet(ifindex uint32) *lease.Lease
	CachePut(ifindex uint32, l *lease.Lease)
}

// Metrics records FSM-observable counters (spec.md §7 "counter
// increments" on dropped messages; supplemented per SPEC_FULL.md with
// state-transition and lease-event counters).
type Metrics interface {
	IncDropped(reason string)
	IncTransition(from, to State)
	IncLeaseEvent(kind LeaseEventKind)
}

// NopMetrics discards every observation; the zero value is ready to
// use and is the default when a Device is constructed without an
// explicit Metrics.
type NopMetrics struct{}

func (NopMetrics) IncDropped(string)             {}
func (NopMetrics) IncTransition(from, to State)  {}
func (NopMetrics) IncLeaseEvent(LeaseEventKind)  {}
