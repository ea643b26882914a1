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

package lease

import (
	"net/netip"
	"time"
)

// Candidate is what VALIDATING hands to the Store before T1/T2 have
// been derived — everything the wire layer parsed out of a Reply,
// minus the effective timers (spec.md §4.5 "Receives a candidate lease
// from VALIDATING, records acquired_at ..., computes effective T1/T2").
type Candidate struct {
	ServerDUID     []byte
	IAID           uint32
	Addrs          []Addr
	ServerT1       time.Duration // as offered by the server; 0 = "server choice"
	ServerT2       time.Duration
	DNSServers     []netip.Addr
	DNSSearch      []string
	NTPServers     []netip.Addr
	SIPServers     []netip.Addr
	Preference     uint8
	RapidCommitted bool
}

// Store holds at most one current Lease for a device (spec.md §4.5,
// §3 "Lifecycle": "replaced (never merged) on a successful Renew/
// Rebind").
type Store struct {
	current *Lease
}

// NewStore returns an empty lease store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the presently held lease, or nil if none.
func (s *Store) Current() *Lease {
	return s.current
}

// Commit derives effective T1/T2 for a candidate lease (using the
// server's values when non-zero, otherwise T1=0.5·preferred,
// T2=0.8·preferred of the longest address per spec.md §3's invariant),
// stamps AcquiredAt, and replaces whatever lease was previously held —
// wholesale, never merged. It returns the new Lease and the set of
// addresses the new lease dropped relative to the old one, which the
// caller must hand to the lease applier for withdrawal (spec.md §4.5).
func (s *Store) Commit(c Candidate, now time.Time) (leaseOut *Lease, removed []Addr) {
	next := &Lease{
		ServerDUID:     c.ServerDUID,
		IAID:           c.IAID,
		Addrs:          c.Addrs,
		DNSServers:     c.DNSServers,
		DNSSearch:      c.DNSSearch,
		NTPServers:     c.NTPServers,
		SIPServers:     c.SIPServers,
		AcquiredAt:     now,
		Preference:     c.Preference,
		RapidCommitted: c.RapidCommitted,
		State:          Granted,
	}

	t1, t2 := c.ServerT1, c.ServerT2
	if t1 == 0 && t2 == 0 {
		longest := next.LongestPreferred()
		t1 = time.Duration(float64(longest) * 0.5)
		t2 = time.Duration(float64(longest) * 0.8)
	}
	next.T1 = t1
	next.T2 = t2

	removed = next.RemovedAddrs(s.current)
	s.current = next
	return next, removed
}

// MarkApplied records that the lease applier successfully installed the
// current lease (spec.md §4.1 VALIDATING → BOUND transition action).
func (s *Store) MarkApplied() {
	if s.current != nil {
		s.current.State = Applied
	}
}

// Release marks the current lease released and clears the store
// (spec.md §3 "Lifecycle": "dropped on Release or expiry").
func (s *Store) Release() {
	if s.current != nil {
		s.current.State = Released
	}
	s.current = nil
}

// Expire clears the store after the lease's valid lifetime runs out
// without a successful Renew/Rebind.
func (s *Store) Expire() {
	if s.current != nil {
		s.current.State = Failed
	}
	s.current = nil
}
