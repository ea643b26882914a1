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

// Package transaction implements the RFC 3315 §14 retransmission model:
// a Transaction carries one outstanding request (Solicit, Request,
// Confirm, Renew, Rebind, Release, Decline or Information-Request) and
// the Scheduler computes the randomized exponential backoff timeouts
// that drive it (spec.md §4.2).
package transaction

import (
	"time"

	"github.com/jr42/dhcpv6-supplicant/internal/xid"
)

// Kind identifies which DHCPv6 client message a Transaction is driving.
type Kind int

const (
	Solicit Kind = iota
	Request
	Confirm
	Renew
	Rebind
	Release
	Decline
	InformationRequest
)

func (k Kind) String() string {
	switch k {
	case Solicit:
		return "SOLICIT"
	case Request:
		return "REQUEST"
	case Confirm:
		return "CONFIRM"
	case Renew:
		return "RENEW"
	case Rebind:
		return "REBIND"
	case Release:
		return "RELEASE"
	case Decline:
		return "DECLINE"
	case InformationRequest:
		return "INFORMATION-REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Params bundles the four retransmission parameters from spec.md §4.2:
// IRT (initial timeout), MRT (max per-try timeout, 0 = unbounded), MRC
// (max retry count, 0 = unbounded) and MRD (max overall duration, 0 =
// unbounded).
type Params struct {
	IRT time.Duration
	MRT time.Duration
	MRC int
	MRD time.Duration
}

// Transaction is the single outstanding exchange a device may have in
// flight at a time (spec.md §3 invariant: "At most one Transaction per
// device").
type Transaction struct {
	XID       xid.ID
	Kind      Kind
	StartedAt time.Time
	Params    Params

	// RC is the retry count so far (0 for the initial send).
	RC int
	// RT is the current per-try timeout, the value last handed to the
	// clock when (re)arming the deadline.
	RT time.Duration
}

// New starts a fresh transaction. id must be freshly generated for
// every new transaction kind (spec.md §4.1 "Transaction-id") —
// retransmissions of the same transaction reuse the Transaction value
// and never call New again.
func New(id xid.ID, kind Kind, params Params, startedAt time.Time) *Transaction {
	return &Transaction{
		XID:       id,
		Kind:      kind,
		StartedAt: startedAt,
		Params:    params,
	}
}

// ElapsedMS returns the milliseconds since the transaction's first send,
// clamped to 65535 (spec.md §4.1 "Elapsed-time"; §8 invariant). The wire
// codec is responsible for converting this to the RFC's hundredths-of-
// a-second option units.
func (t *Transaction) ElapsedMS(now time.Time) uint16 {
	elapsed := now.Sub(t.StartedAt)
	if elapsed < 0 {
		return 0
	}
	ms := elapsed.Milliseconds()
	if ms > 0xFFFF {
		return 0xFFFF
	}
	return uint16(ms)
}

// BudgetExhausted reports whether the transaction has used up its
// retransmission budget as of now: MRC retries reached (if MRC != 0) or
// MRD wall time elapsed (if MRD != 0). Per spec.md §4.2, a zero MRC or
// MRD means that bound does not apply.
func (t *Transaction) BudgetExhausted(now time.Time) bool {
	if t.Params.MRC != 0 && t.RC >= t.Params.MRC {
		return true
	}
	if t.Params.MRD != 0 && now.Sub(t.StartedAt) >= t.Params.MRD {
		return true
	}
	return false
}
