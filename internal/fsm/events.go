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

	"github.com/jr42/dhcpv6-supplicant/internal/message"
)

// Mode selects which dialogue Start begins: full address assignment or
// the stateless information-only profile (spec.md §3 "config: mode ∈
// {managed, info-only}").
type Mode int

const (
	ModeManaged Mode = iota
	ModeInfoOnly
)

func (m Mode) String() string {
	if m == ModeInfoOnly {
		return "info-only"
	}
	return "managed"
}

// EventKind tags which variant of Event a value carries (spec.md §4.1
// "Events consumed").
type EventKind int

const (
	EvLinkUp EventKind = iota
	EvLinkDown
	EvStart
	EvStop
	EvTimerFired
	EvRxMessage
	EvUserRenew
	EvUserRelease
	EvLeaseApplied
)

func (k EventKind) String() string {
	switch k {
	case EvLinkUp:
		return "LinkUp"
	case EvLinkDown:
		return "LinkDown"
	case EvStart:
		return "Start"
	case EvStop:
		return "Stop"
	case EvTimerFired:
		return "TimerFired"
	case EvRxMessage:
		return "RxMessage"
	case EvUserRenew:
		return "UserRenew"
	case EvUserRelease:
		return "UserRelease"
	case EvLeaseApplied:
		return "LeaseApplied"
	default:
		return "Unknown"
	}
}

// ApplyOutcome is what the lease applier reported back for a LeaseApplied
// event (spec.md §6 "apply(ifindex, lease) → {ok | dad_conflict(addr) |
// io_error}").
type ApplyOutcome int

const (
	ApplyOK ApplyOutcome = iota
	ApplyDADConflict
	ApplyIOError
)

// Event is the single union of everything the FSM consumes (spec.md
// §4.1). Only the fields relevant to Kind are populated; this mirrors a
// sum type the way a plain Go struct can, at the cost of the caller
// constructing it correctly — the New* constructors below are the
// supported way to build one.
type Event struct {
	Kind EventKind

	Mode Mode // EvStart

	Msg message.Parsed // EvRxMessage

	ApplyResult  ApplyOutcome // EvLeaseApplied
	ConflictAddr netip.Addr   // EvLeaseApplied, when ApplyResult == ApplyDADConflict
}

func NewStart(mode Mode) Event            { return Event{Kind: EvStart, Mode: mode} }
func NewStop() Event                      { return Event{Kind: EvStop} }
func NewLinkUp() Event                    { return Event{Kind: EvLinkUp} }
func NewLinkDown() Event                  { return Event{Kind: EvLinkDown} }
func NewTimerFired() Event                { return Event{Kind: EvTimerFired} }
func NewRxMessage(m message.Parsed) Event { return Event{Kind: EvRxMessage, Msg: m} }
func NewUserRenew() Event                 { return Event{Kind: EvUserRenew} }
func NewUserRelease() Event               { return Event{Kind: EvUserRelease} }

func NewLeaseApplied(ok bool) Event {
	if ok {
		return Event{Kind: EvLeaseApplied, ApplyResult: ApplyOK}
	}
	return Event{Kind: EvLeaseApplied, ApplyResult: ApplyIOError}
}

func NewLeaseApplyDADConflict(addr netip.Addr) Event {
	return Event{Kind: EvLeaseApplied, ApplyResult: ApplyDADConflict, ConflictAddr: addr}
}

// LeaseEventKind tags the observable lease events spec.md §6 requires
// the FSM to surface upward.
type LeaseEventKind int

const (
	LeaseAcquired LeaseEventKind = iota
	LeaseReleased
	LeaseLost
)

func (k LeaseEventKind) String() string {
	switch k {
	case LeaseAcquired:
		return "LeaseAcquired"
	case LeaseReleased:
		return "LeaseReleased"
	case LeaseLost:
		return "LeaseLost"
	default:
		return "Unknown"
	}
}

// LeaseEvent is one observable event emitted upward to the supervisor
// (spec.md §6 "Observable lease events").
type LeaseEvent struct {
	Kind   LeaseEventKind
	Reason string // populated for LeaseLost
}
