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
	"testing"
	"time"

	"github.com/jr42/dhcpv6-supplicant/internal/clock"
	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
)

type harness struct {
	dev    *Device
	clk    *clock.Fake
	codec  *fakeCodec
	link   *fakeLink
	applier *fakeApplier
}

func newHarness() *harness {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	codec := &fakeCodec{}
	link := &fakeLink{}
	applier := &fakeApplier{nextOut: ApplyOK}
	dev := NewDevice(7, []byte("client-duid"), 1, Config{RapidCommitAllowed: true}, codec, link, applier, clk,
		WithScheduler(transaction.WithRand(constRand(0.5))))
	return &harness{dev: dev, clk: clk, codec: codec, link: link, applier: applier}
}

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

// fireTimer advances the fake clock by d and, if the device's deadline
// was due, delivers the resulting TimerFired event.
func (h *harness) fireTimer(d time.Duration) bool {
	h.clk.Advance(d)
	select {
	case <-h.dev.TimerC():
		h.dev.Process(NewTimerFired())
		return true
	default:
		return false
	}
}

func advertiseReply(xidOf *Device, status message.StatusCode, pref uint8, addr string) message.Parsed {
	x := xidOf.CurrentXID()
	return message.Parsed{
		Type:       message.KindAdvertise,
		XID:        *x,
		Src:        netip.MustParseAddr("fe80::1"),
		ClientDUID: []byte("client-duid"),
		ServerDUID: []byte("server-a"),
		Status:     status,
		Preference: pref,
		Addrs: []lease.Addr{
			{Address: netip.MustParseAddr(addr), Preferred: time.Hour, Valid: 2 * time.Hour},
		},
	}
}

func replyFor(xidOf *Device, status message.StatusCode, t1, t2 time.Duration, addr string) message.Parsed {
	x := xidOf.CurrentXID()
	return message.Parsed{
		Type:       message.KindReply,
		XID:        *x,
		Src:        netip.MustParseAddr("fe80::1"),
		ClientDUID: []byte("client-duid"),
		ServerDUID: []byte("server-a"),
		Status:     status,
		IAID:       1,
		T1:         t1,
		T2:         t2,
		Addrs: []lease.Addr{
			{Address: netip.MustParseAddr(addr), Preferred: time.Hour, Valid: 2 * time.Hour},
		},
	}
}

func TestStart_SendsSolicitAndEntersSelecting(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))

	if h.dev.State() != Selecting {
		t.Fatalf("state = %s, want SELECTING", h.dev.State())
	}
	sent, ok := h.link.last()
	if !ok || sent.out.Kind != transaction.Solicit {
		t.Fatalf("last sent = %+v, ok=%v, want a Solicit", sent, ok)
	}
	if sent.dst != AllDHCPRelayAgentsAndServers {
		t.Fatalf("Solicit dst = %s, want multicast", sent.dst)
	}
}

func TestSelecting_TimerFiredWithAdvertisePicksBest(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))

	if !h.fireTimer(2 * time.Second) {
		t.Fatal("expected the Solicit deadline to fire")
	}
	if h.dev.State() != Requesting {
		t.Fatalf("state = %s, want REQUESTING", h.dev.State())
	}
	sent, ok := h.link.last()
	if !ok || sent.out.Kind != transaction.Request {
		t.Fatalf("last sent = %+v, want a Request", sent)
	}
}

func TestSelecting_Preference255ShortCircuits(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 255, "2001:db8::1")))

	if h.dev.State() != Requesting {
		t.Fatalf("state = %s, want REQUESTING immediately on preference 255", h.dev.State())
	}
}

func TestSelecting_RapidCommitReplyBypassesRequesting(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))

	reply := replyFor(h.dev, message.StatusSuccess, 0, 0, "2001:db8::1")
	reply.RapidCommit = true
	h.dev.Process(NewRxMessage(reply))

	if h.dev.State() != Bound {
		t.Fatalf("state = %s, want BOUND after rapid-commit Reply", h.dev.State())
	}
	if h.applier.applied[0].RapidCommitted != true {
		t.Fatal("committed lease should record RapidCommitted=true")
	}
}

func TestRequesting_SuccessEntersBound(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))
	h.fireTimer(2 * time.Second)

	h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::1")))

	if h.dev.State() != Bound {
		t.Fatalf("state = %s, want BOUND", h.dev.State())
	}
	if h.dev.CurrentLease() == nil {
		t.Fatal("expected a committed lease")
	}
}

func TestRequesting_NoAddrsAvailReselectsNextServer(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))

	second := advertiseReply(h.dev, message.StatusSuccess, 5, "2001:db8::2")
	second.ServerDUID = []byte("server-b")
	h.dev.Process(NewRxMessage(second))

	h.fireTimer(2 * time.Second) // -> Requesting against server-a (higher preference)

	nak := replyFor(h.dev, message.StatusNoAddrsAvail, 0, 0, "2001:db8::1")
	h.dev.Process(NewRxMessage(nak))

	if h.dev.State() != Requesting {
		t.Fatalf("state = %s, want REQUESTING against the next server", h.dev.State())
	}
	sent, _ := h.link.last()
	if string(sent.out.ServerDUID) != "server-b" {
		t.Fatalf("Request ServerDUID = %q, want server-b", sent.out.ServerDUID)
	}
}

func TestValidating_DADConflictSendsDeclineAndReselects(t *testing.T) {
	h := newHarness()
	h.applier.nextOut = ApplyDADConflict
	h.applier.nextAddr = netip.MustParseAddr("2001:db8::1")

	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))
	h.fireTimer(2 * time.Second)
	h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 0, 0, "2001:db8::1")))

	if h.dev.State() != Selecting {
		t.Fatalf("state = %s, want SELECTING after DAD conflict", h.dev.State())
	}
	var sawDecline bool
	for _, m := range h.link.messages() {
		if m.out.Kind == transaction.Decline {
			sawDecline = true
		}
	}
	if !sawDecline {
		t.Fatal("expected a Decline for the conflicting address")
	}
	if h.dev.CurrentLease() != nil {
		t.Fatal("conflicted lease must not remain current")
	}

	// the rejected server must not win a re-run of selection this cycle.
	again := advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")
	h.dev.Process(NewRxMessage(again))
	h.fireTimer(2 * time.Second)
	if h.dev.State() == Requesting {
		sent, _ := h.link.last()
		if string(sent.out.ServerDUID) == "server-a" {
			t.Fatal("excluded server-a must not be re-selected in the same boot cycle")
		}
	}
}

func TestBound_T1FiresRenewing(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))
	h.fireTimer(2 * time.Second)
	h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 10*time.Second, 16*time.Second, "2001:db8::1")))

	if !h.fireTimer(11 * time.Second) {
		t.Fatal("expected the T1 deadline to fire")
	}
	if h.dev.State() != Renewing {
		t.Fatalf("state = %s, want RENEWING", h.dev.State())
	}
	sent, ok := h.link.last()
	if !ok || sent.out.Kind != transaction.Renew {
		t.Fatalf("last sent = %+v, want a Renew", sent)
	}
}

func TestUserRelease_IsIdempotent(t *testing.T) {
	h := newHarness()
	h.dev.Process(NewStart(ModeManaged))
	h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 10, "2001:db8::1")))
	h.fireTimer(2 * time.Second)
	h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::1")))

	h.dev.Process(NewUserRelease())
	if h.dev.State() != Released {
		t.Fatalf("state = %s, want RELEASED", h.dev.State())
	}
	sentBefore := h.link.count()

	h.dev.Process(NewUserRelease())
	if h.link.count() != sentBefore {
		t.Fatal("a second UserRelease must not send another Release")
	}
}

func TestDispatcherInvariant_CurrentXIDSetIffTransactional(t *testing.T) {
	h := newHarness()
	if h.dev.CurrentXID() != nil {
		t.Fatal("INIT must have no current_xid")
	}
	h.dev.Process(NewStart(ModeManaged))
	if h.dev.CurrentXID() == nil {
		t.Fatal("SELECTING must have a current_xid")
	}
}
