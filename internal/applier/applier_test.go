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

package applier

import (
	"net/netip"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
	"github.com/jr42/dhcpv6-supplicant/internal/lease"
)

func TestApply_AlwaysSucceeds(t *testing.T) {
	a := New(logr.Discard())
	l := &lease.Lease{
		ServerDUID: []byte("server-a"),
		Addrs: []lease.Addr{
			{Address: netip.MustParseAddr("2001:db8::1"), Preferred: time.Hour, Valid: 2 * time.Hour},
		},
	}

	outcome, _ := a.Apply(7, l)
	if outcome != fsm.ApplyOK {
		t.Fatalf("outcome = %v, want ApplyOK", outcome)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	a := New(logr.Discard())
	if a.CacheGet(7) != nil {
		t.Fatal("expected no cached lease before CachePut")
	}
	l := &lease.Lease{ServerDUID: []byte("server-a")}
	a.CachePut(7, l)
	if got := a.CacheGet(7); got != l {
		t.Fatal("CacheGet must return the lease stored by CachePut")
	}
	if a.CacheGet(8) != nil {
		t.Fatal("CacheGet for a different ifindex must not see another interface's lease")
	}
}

func TestWithdraw_NoPanicOnEmpty(t *testing.T) {
	a := New(logr.Discard())
	a.Withdraw(7, nil)
}
