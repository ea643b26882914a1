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

// Package applier is the reference fsm.Applier: it logs what it would
// apply to the operating system rather than touching interface
// addresses directly (SPEC_FULL.md §5 "Non-goals" excludes a netlink-
// backed implementation; no example repo in the corpus carries a
// netlink dependency to ground one on, so this stays a logging
// reference instead of reaching for an ungrounded library).
package applier

import (
	"net/netip"
	"sync"

	"github.com/go-logr/logr"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
	"github.com/jr42/dhcpv6-supplicant/internal/lease"
)

// Logging is a reference fsm.Applier that logs every Apply, always
// reports success, and keeps the lease last stored via CachePut per
// interface in memory,
// suitable for demos, dry runs and the daemon's default configuration
// before a real OS-integration backend is wired in.
type Logging struct {
	mu    sync.RWMutex
	log   logr.Logger
	cache map[uint32]*lease.Lease
}

// New returns a Logging applier using log for its Apply/Withdraw
// trace; log may be logr.Discard().
func New(log logr.Logger) *Logging {
	return &Logging{log: log, cache: make(map[uint32]*lease.Lease)}
}

// Apply logs the addresses it would program onto ifindex and reports
// success (spec.md §6 "apply(ifindex, lease) → {ok | dad_conflict(addr)
// | io_error}").
func (a *Logging) Apply(ifindex uint32, l *lease.Lease) (fsm.ApplyOutcome, netip.Addr) {
	a.log.Info("would apply lease", "ifindex", ifindex, "serverDUID", string(l.ServerDUID), "addrs", addrStrings(l.Addrs))
	return fsm.ApplyOK, netip.Addr{}
}

// Withdraw logs the addresses it would remove from ifindex.
func (a *Logging) Withdraw(ifindex uint32, addrs []lease.Addr) {
	if len(addrs) == 0 {
		return
	}
	a.log.Info("would withdraw addresses", "ifindex", ifindex, "addrs", addrStrings(addrs))
}

// CacheGet returns the last lease CachePut stored for ifindex (Apply
// itself does not touch the cache), used on
// startup to decide whether to attempt a Confirm instead of a fresh
// Solicit (spec.md §6 "Persistent state").
func (a *Logging) CacheGet(ifindex uint32) *lease.Lease {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cache[ifindex]
}

// CachePut records l as the most recently applied lease for ifindex.
func (a *Logging) CachePut(ifindex uint32, l *lease.Lease) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[ifindex] = l
}

func addrStrings(addrs []lease.Addr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Address.String()
	}
	return out
}
