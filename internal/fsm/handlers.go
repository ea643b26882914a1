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
	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/selection"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
)

func candidateFromReply(msg message.Parsed) lease.Candidate {
	return lease.Candidate{
		ServerDUID:     msg.ServerDUID,
		IAID:           msg.IAID,
		Addrs:          msg.Addrs,
		ServerT1:       msg.T1,
		ServerT2:       msg.T2,
		DNSServers:     msg.DNSServers,
		DNSSearch:      msg.DNSSearch,
		NTPServers:     msg.NTPServers,
		SIPServers:     msg.SIPServers,
		Preference:     msg.Preference,
		RapidCommitted: msg.RapidCommit,
	}
}

func selectionAdvertise(msg message.Parsed, usable bool) selection.Advertise {
	return selection.Advertise{
		ServerDUID: string(msg.ServerDUID),
		Preference: msg.Preference,
		Addrs:      msg.Addrs,
		Usable:     usable,
	}
}

// --- SELECTING --------------------------------------------------------------

func (d *Device) handleSelecting(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		d.handleSelectingRx(ev.Msg)
	case EvTimerFired:
		if adv, ok := d.selBuf.Select(); ok {
			d.cancelTimer()
			d.beginRequest(advertiseChoice{duidKey: adv.ServerDUID, duid: []byte(adv.ServerDUID), addrs: adv.Addrs})
			return
		}
		d.retransmit(OutMessage{
			Kind:             transaction.Solicit,
			RequestedOptions: d.cfg.RequestedOptions,
			Hostname:         d.cfg.Hostname,
			UserClass:        d.cfg.UserClass,
			VendorClass:      d.cfg.VendorClass,
			RapidCommit:      d.cfg.RapidCommitAllowed,
		}, AllDHCPRelayAgentsAndServers)
	}
}

func (d *Device) handleSelectingRx(msg message.Parsed) {
	if d.txn == nil || msg.XID != d.txn.XID {
		return
	}
	if msg.Type == message.KindReply && d.cfg.RapidCommitAllowed && msg.RapidCommit &&
		msg.Status == message.StatusSuccess && msg.HasUsableIA() {
		d.cancelTimer()
		d.serverAddr = msg.Src
		d.enterValidating(candidateFromReply(msg))
		return
	}
	if msg.Type != message.KindAdvertise {
		return
	}
	key := string(msg.ServerDUID)
	if d.excluded[key] {
		return
	}
	usable := msg.Status == message.StatusSuccess && msg.HasUsableIA()
	d.selBuf.Insert(selectionAdvertise(msg, usable), d.now())
	if usable && msg.Preference == 255 {
		d.cancelTimer()
		d.serverAddr = msg.Src
		d.beginRequest(advertiseChoice{duidKey: key, duid: msg.ServerDUID, addrs: msg.Addrs})
	}
}

// --- REQUESTING ---------------------------------------------------------------

func (d *Device) handleRequesting(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		d.handleRequestingRx(ev.Msg)
	case EvTimerFired:
		if !d.txn.BudgetExhausted(d.now()) {
			d.retransmit(OutMessage{
				Kind:             transaction.Request,
				ServerDUID:       d.selectedServer.duid,
				IAID:             d.iaid,
				Addrs:            d.selectedServer.addrs,
				RequestedOptions: d.cfg.RequestedOptions,
				Hostname:         d.cfg.Hostname,
				UserClass:        d.cfg.UserClass,
				VendorClass:      d.cfg.VendorClass,
			}, AllDHCPRelayAgentsAndServers)
			return
		}
		d.metrics.IncDropped("request-budget-exhausted")
		d.beginSolicit()
	}
}

func (d *Device) handleRequestingRx(msg message.Parsed) {
	if d.txn == nil || msg.XID != d.txn.XID || msg.Type != message.KindReply {
		return
	}
	switch msg.Status {
	case message.StatusSuccess:
		d.cancelTimer()
		d.serverAddr = msg.Src
		d.enterValidating(candidateFromReply(msg))
	case message.StatusNoAddrsAvail:
		d.cancelTimer()
		d.excluded[d.selectedServer.duidKey] = true
		d.selBuf.Remove(d.selectedServer.duidKey)
		if adv, ok := d.selBuf.Select(); ok {
			d.beginRequest(advertiseChoice{duidKey: adv.ServerDUID, duid: []byte(adv.ServerDUID), addrs: adv.Addrs})
			return
		}
		d.restartSolicit()
	default:
		// NotOnLink, UseMulticast, NoBinding and UnspecFail all drop the
		// candidate and restart discovery from scratch; only NoAddrsAvail
		// keeps the selection cycle alive (spec.md §4.1 REQUESTING row).
		d.cancelTimer()
		d.leases.Expire()
		d.beginSolicit()
	}
}

// --- VALIDATING ----------------------------------------------------------------

func (d *Device) enterValidating(c lease.Candidate) {
	d.candidate = &c
	d.setState(Validating)
	next, removed := d.leases.Commit(c, d.now())
	if len(removed) > 0 {
		d.applier.Withdraw(d.ifindex, removed)
	}
	outcome, conflict := d.applier.Apply(d.ifindex, next)
	d.applyOutcome(outcome, conflict)
}

func (d *Device) handleValidating(ev Event) {
	if ev.Kind != EvLeaseApplied {
		return
	}
	d.applyOutcome(ev.ApplyResult, ev.ConflictAddr)
}

func (d *Device) applyOutcome(outcome ApplyOutcome, conflict netip.Addr) {
	switch outcome {
	case ApplyOK:
		applied := d.leases.Current()
		d.leases.MarkApplied()
		d.applier.CachePut(d.ifindex, applied)
		d.candidate = nil
		d.emit(LeaseEvent{Kind: LeaseAcquired})
		d.cancelTimer()
		d.rearmBoundDeadline(applied)
		d.setState(Bound)
	case ApplyDADConflict:
		serverDUID := d.leases.Current().ServerDUID
		d.leases.Expire()
		d.candidate = nil
		d.sendDeclineOnce(serverDUID, []lease.Addr{{Address: conflict}})
		if d.selectedServer.duidKey != "" {
			d.excluded[d.selectedServer.duidKey] = true
			d.selBuf.Remove(d.selectedServer.duidKey)
		}
		d.restartSolicit()
	case ApplyIOError:
		d.leases.Expire()
		d.candidate = nil
		d.emit(LeaseEvent{Kind: LeaseLost, Reason: "local-apply-failed"})
		d.cancelTimer()
		d.setState(Init)
	}
}

func (d *Device) rearmBoundDeadline(l *lease.Lease) {
	deadline := l.AcquiredAt.Add(l.T1)
	rt := deadline.Sub(d.now())
	if rt < 0 {
		rt = 0
	}
	d.rearm(rt)
}

// --- BOUND -----------------------------------------------------------------

func (d *Device) handleBound(ev Event) {
	switch ev.Kind {
	case EvTimerFired:
		d.beginRenew(false)
	case EvUserRenew:
		d.beginRenew(true)
	}
}

// --- RENEWING ----------------------------------------------------------------

func (d *Device) handleRenewing(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		d.handleRenewReply(ev.Msg, func() { d.beginRebind() })
	case EvTimerFired:
		if !d.txn.BudgetExhausted(d.now()) {
			cur := d.leases.Current()
			d.retransmit(OutMessage{
				Kind:       transaction.Renew,
				ServerDUID: cur.ServerDUID,
				IAID:       d.iaid,
				Addrs:      cur.Addrs,
			}, d.serverAddr)
			return
		}
		d.beginRebind()
	}
}

// --- REBINDING ---------------------------------------------------------------

func (d *Device) handleRebinding(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		d.handleRenewReply(ev.Msg, func() {
			d.leases.Expire()
			d.emit(LeaseEvent{Kind: LeaseLost, Reason: "timeout"})
			d.cancelTimer()
			d.setState(Init)
		})
	case EvTimerFired:
		if !d.txn.BudgetExhausted(d.now()) {
			cur := d.leases.Current()
			d.retransmit(OutMessage{
				Kind:  transaction.Rebind,
				IAID:  d.iaid,
				Addrs: cur.Addrs,
			}, AllDHCPRelayAgentsAndServers)
			return
		}
		d.leases.Expire()
		d.emit(LeaseEvent{Kind: LeaseLost, Reason: "timeout"})
		d.cancelTimer()
		d.setState(Init)
	}
}

// handleRenewReply is shared by RENEWING and REBINDING: a successful
// Reply always replaces the lease via VALIDATING regardless of which
// state requested it; onExhausted runs when the reply isn't usable so
// the (differing) fallback for each state applies.
func (d *Device) handleRenewReply(msg message.Parsed, onExhausted func()) {
	if d.txn == nil || msg.XID != d.txn.XID || msg.Type != message.KindReply {
		return
	}
	if msg.Status == message.StatusSuccess && msg.HasUsableIA() {
		d.cancelTimer()
		d.serverAddr = msg.Src
		d.enterValidating(candidateFromReply(msg))
		return
	}
	onExhausted()
}

// --- REBOOT --------------------------------------------------------------

func (d *Device) handleReboot(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		msg := ev.Msg
		if d.txn == nil || msg.XID != d.txn.XID || msg.Type != message.KindReply {
			return
		}
		if msg.Status == message.StatusSuccess && msg.HasUsableIA() {
			d.cancelTimer()
			d.serverAddr = msg.Src
			d.enterValidating(candidateFromReply(msg))
			return
		}
		d.cancelTimer()
		d.rebootCache = nil
		d.beginSolicit()
	case EvTimerFired:
		if !d.txn.BudgetExhausted(d.now()) {
			d.retransmit(OutMessage{
				Kind:  transaction.Confirm,
				IAID:  d.iaid,
				Addrs: d.rebootCache.Addrs,
			}, AllDHCPRelayAgentsAndServers)
			return
		}
		d.rebootCache = nil
		d.beginSolicit()
	}
}

// --- RENEW_REQUESTED -----------------------------------------------------

func (d *Device) handleRenewRequested(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		msg := ev.Msg
		if d.txn == nil || msg.XID != d.txn.XID || msg.Type != message.KindReply {
			return
		}
		d.cancelTimer()
		if msg.Status == message.StatusSuccess && msg.HasUsableIA() {
			d.serverAddr = msg.Src
			d.enterValidating(candidateFromReply(msg))
			return
		}
		// A user-triggered renew that the server rejects gives up the
		// attempt but keeps the still-valid lease, returning to BOUND
		// rather than cascading into REBINDING.
		d.rearmBoundDeadlineFromCurrent()
		d.setState(Bound)
	case EvTimerFired:
		if !d.txn.BudgetExhausted(d.now()) {
			cur := d.leases.Current()
			d.retransmit(OutMessage{
				Kind:       transaction.Renew,
				ServerDUID: cur.ServerDUID,
				IAID:       d.iaid,
				Addrs:      cur.Addrs,
			}, d.serverAddr)
			return
		}
		d.rearmBoundDeadlineFromCurrent()
		d.setState(Bound)
	}
}

func (d *Device) rearmBoundDeadlineFromCurrent() {
	d.cancelTimer()
	if cur := d.leases.Current(); cur != nil {
		d.rearmBoundDeadline(cur)
	}
}

// --- REQUESTING_INFO -------------------------------------------------------

func (d *Device) handleRequestingInfo(ev Event) {
	switch ev.Kind {
	case EvRxMessage:
		msg := ev.Msg
		if d.txn == nil || msg.XID != d.txn.XID || msg.Type != message.KindReply {
			return
		}
		if msg.Status != message.StatusSuccess {
			return
		}
		// Information-only mode never acquires an address lease; BOUND
		// here denotes the quiescent, no-pending-transaction state (spec.md
		// §4.1's HasTransaction exclusion list already omits BOUND).
		d.cancelTimer()
		d.emit(LeaseEvent{Kind: LeaseAcquired})
		d.setState(Bound)
	case EvTimerFired:
		d.retransmit(OutMessage{
			Kind:             transaction.InformationRequest,
			RequestedOptions: d.cfg.RequestedOptions,
		}, AllDHCPRelayAgentsAndServers)
	}
}

// --- UserRelease (global) --------------------------------------------------

func (d *Device) handleUserRelease() {
	if d.state == Released {
		return // idempotent: a second Release is a no-op (spec.md §8 law).
	}
	cur := d.leases.Current()
	if cur == nil {
		d.cancelTimer()
		d.setState(Released)
		return
	}
	d.cancelTimer()
	d.beginRelease()
	d.cancelTimer() // best-effort Release: don't track MRC=5 retries once terminal.
	d.applier.Withdraw(d.ifindex, cur.Addrs)
	d.leases.Release()
	d.emit(LeaseEvent{Kind: LeaseReleased})
	d.setState(Released)
}
