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

// Package lease models the bound DHCPv6 lease (spec.md §3 "Lease") and
// the store that holds it (spec.md §4.5). A Lease's addresses, timers
// and server data are not changed once constructed (the Store only
// advances its State field); renewal produces a new Lease value rather
// than mutating the old one (spec.md §3 "Lifecycle": "replaced (never
// merged)").
package lease

import (
	"net/netip"
	"time"
)

// State is the lifecycle stage of a Lease (spec.md §3).
type State int

const (
	Granted State = iota
	Applied
	Released
	Failed
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Applied:
		return "applied"
	case Released:
		return "released"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Addr is one IA_NA address entry (spec.md §3 Lease: "list of
// IAAddr{addr, preferred, valid, t1, t2}"; T1/T2 are carried at the
// Lease level per the §3 invariant "t1 ≤ t2 ≤ min(valid_lifetime) for
// addresses in the lease", so this type holds only the per-address
// fields and Lease holds the IA_NA-wide T1/T2).
type Addr struct {
	Address   netip.Addr
	Preferred time.Duration
	Valid     time.Duration
}

// Lease is the current bound lease for a device (spec.md §3).
type Lease struct {
	ServerDUID []byte
	IAID       uint32
	Addrs      []Addr

	T1 time.Duration
	T2 time.Duration

	DNSServers []netip.Addr
	DNSSearch  []string
	NTPServers []netip.Addr
	SIPServers []netip.Addr

	AcquiredAt     time.Time // monotonic
	Preference     uint8
	RapidCommitted bool
	State          State
}

// LongestPreferred returns the largest preferred lifetime among the
// lease's addresses, used to derive T1/T2 when the server leaves both
// as zero ("server choice", spec.md §3 invariant).
func (l *Lease) LongestPreferred() time.Duration {
	var longest time.Duration
	for _, a := range l.Addrs {
		if a.Preferred > longest {
			longest = a.Preferred
		}
	}
	return longest
}

// MinValid returns the smallest valid lifetime among the lease's
// addresses — the outer bound T1 and T2 must never exceed (spec.md §3
// invariant: "t1 ≤ t2 ≤ min(valid_lifetime) for addresses in the
// lease").
func (l *Lease) MinValid() time.Duration {
	if len(l.Addrs) == 0 {
		return 0
	}
	min := l.Addrs[0].Valid
	for _, a := range l.Addrs[1:] {
		if a.Valid < min {
			min = a.Valid
		}
	}
	return min
}

// ExpiresAt returns the earliest of T1, T2, or the minimum valid
// lifetime among the lease's addresses, measured from AcquiredAt; the
// now argument is not used (spec.md §4.5 "Exposes expires_at(now)").
func (l *Lease) ExpiresAt(now time.Time) time.Time {
	candidates := []time.Duration{l.T1, l.T2, l.MinValid()}
	earliest := candidates[0]
	for _, c := range candidates[1:] {
		if c < earliest {
			earliest = c
		}
	}
	return l.AcquiredAt.Add(earliest)
}

// RemovedAddrs returns the addresses present in old but absent from l,
// used to tell the lease applier which addresses must be withdrawn from
// the OS on a wholesale lease replacement (spec.md §4.5 "addresses
// removed from the new lease are surfaced to the applier").
func (l *Lease) RemovedAddrs(old *Lease) []Addr {
	if old == nil {
		return nil
	}
	keep := make(map[netip.Addr]struct{}, len(l.Addrs))
	for _, a := range l.Addrs {
		keep[a.Address] = struct{}{}
	}
	var removed []Addr
	for _, a := range old.Addrs {
		if _, ok := keep[a.Address]; !ok {
			removed = append(removed, a)
		}
	}
	return removed
}
