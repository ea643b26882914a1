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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
)

var _ = Describe("Device lifecycle", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	Context("when a single server advertises with ordinary preference", func() {
		It("runs Solicit through Request to Bound", func() {
			h.dev.Process(NewStart(ModeManaged))
			Expect(h.dev.State()).To(Equal(Selecting))

			h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 0, "2001:db8::10")))
			Expect(h.fireTimer(2 * time.Second)).To(BeTrue())
			Expect(h.dev.State()).To(Equal(Requesting))

			h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::10")))

			Expect(h.dev.State()).To(Equal(Bound))
			lease := h.dev.CurrentLease()
			Expect(lease).NotTo(BeNil())
			Expect(lease.Addrs[0].Address).To(Equal(netip.MustParseAddr("2001:db8::10")))
		})
	})

	Context("when a server advertises with preference 255", func() {
		It("skips the Solicit retransmission wait and Requests immediately", func() {
			h.dev.Process(NewStart(ModeManaged))
			h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 255, "2001:db8::20")))

			Expect(h.dev.State()).To(Equal(Requesting))
			sent, ok := h.link.last()
			Expect(ok).To(BeTrue())
			Expect(sent.out.Kind).To(Equal(transaction.Request))
		})
	})

	Context("when a rapid-commit Reply arrives while SELECTING", func() {
		It("commits the lease directly without a Request round trip", func() {
			h.dev.Process(NewStart(ModeManaged))

			reply := replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::30")
			reply.RapidCommit = true
			h.dev.Process(NewRxMessage(reply))

			Expect(h.dev.State()).To(Equal(Bound))
			for _, m := range h.link.messages() {
				Expect(m.out.Kind).NotTo(Equal(transaction.Request))
			}
		})
	})

	Context("when the applier reports a DAD conflict while applying the granted lease", func() {
		It("declines the address and restarts discovery without the conflicted server", func() {
			h.dev.Process(NewStart(ModeManaged))
			h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 0, "2001:db8::40")))
			h.fireTimer(2 * time.Second)

			h.applier.nextOut = ApplyDADConflict
			h.applier.nextAddr = netip.MustParseAddr("2001:db8::40")
			h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::40")))

			Expect(h.dev.State()).To(Equal(Selecting))
			Expect(h.dev.CurrentLease()).To(BeNil())

			var sawDecline bool
			for _, m := range h.link.messages() {
				if m.out.Kind == transaction.Decline {
					sawDecline = true
				}
			}
			Expect(sawDecline).To(BeTrue())

			h.applier.nextOut = ApplyOK
			again := advertiseReply(h.dev, message.StatusSuccess, 0, "2001:db8::40")
			h.dev.Process(NewRxMessage(again))
			h.fireTimer(2 * time.Second)
			if h.dev.State() == Requesting {
				sent, _ := h.link.last()
				Expect(string(sent.out.ServerDUID)).NotTo(Equal("server-a"))
			}
		})
	})

	Context("when T1 then T2 elapse without a usable Renew reply", func() {
		It("falls back from Renewing to Rebinding", func() {
			h.dev.Process(NewStart(ModeManaged))
			h.dev.Process(NewRxMessage(advertiseReply(h.dev, message.StatusSuccess, 0, "2001:db8::50")))
			h.fireTimer(2 * time.Second)
			h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 10*time.Second, 16*time.Second, "2001:db8::50")))
			Expect(h.dev.State()).To(Equal(Bound))

			Expect(h.fireTimer(11 * time.Second)).To(BeTrue())
			Expect(h.dev.State()).To(Equal(Renewing))

			// Renew's MRD is T2-T1 (6s here) and IRT is 10s, so the very
			// first retransmission deadline already finds the budget
			// exhausted and falls back to Rebinding.
			Expect(h.fireTimer(10 * time.Second)).To(BeTrue())
			Expect(h.dev.State()).To(Equal(Rebinding))
		})
	})

	Context("on a cold reboot with a cached, still-valid lease", func() {
		It("sends a Confirm and re-enters Bound on success without re-running Solicit", func() {
			h.applier.cached = &lease.Lease{
				ServerDUID: []byte("server-a"),
				IAID:       1,
				Addrs: []lease.Addr{
					{Address: netip.MustParseAddr("2001:db8::60"), Preferred: time.Hour, Valid: 2 * time.Hour},
				},
				T1:         30 * time.Minute,
				T2:         48 * time.Minute,
				AcquiredAt: h.clk.Now(),
				State:      lease.Applied,
			}

			h.dev.Process(NewStart(ModeManaged))
			Expect(h.dev.State()).To(Equal(Reboot))

			sent, ok := h.link.last()
			Expect(ok).To(BeTrue())
			Expect(sent.out.Kind).To(Equal(transaction.Confirm))

			h.dev.Process(NewRxMessage(replyFor(h.dev, message.StatusSuccess, 30*time.Minute, 48*time.Minute, "2001:db8::60")))
			Expect(h.dev.State()).To(Equal(Bound))
		})
	})
})
