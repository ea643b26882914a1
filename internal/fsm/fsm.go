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

	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
	"github.com/jr42/dhcpv6-supplicant/internal/xid"
)

// TimerC returns the channel the caller's event loop must select on
// alongside socket readiness (spec.md §5 "wait(deadline,
// socket_readable)"); a value arriving on it means Process(NewTimerFired())
// should be called next.
func (d *Device) TimerC() <-chan struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timerCh
}

// Process drives the FSM with one event (spec.md §6 "process_client_
// packet" generalized to every event kind this package defines). It
// must be called from a single goroutine per Device — the FSM itself
// holds no internal concurrency (spec.md §5 "single-threaded
// cooperative event loop").
func (d *Device) Process(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Global events handled identically regardless of current state.
	switch ev.Kind {
	case EvLinkDown, EvStop:
		d.cancelTimer()
		d.txn = nil
		d.unicastServer = nil
		d.selBuf.Reset()
		d.setState(Init)
		return
	case EvUserRelease:
		d.handleUserRelease()
		return
	}

	switch d.state {
	case Init:
		d.handleInit(ev)
	case Selecting:
		d.handleSelecting(ev)
	case Requesting:
		d.handleRequesting(ev)
	case Validating:
		d.handleValidating(ev)
	case Bound:
		d.handleBound(ev)
	case Renewing:
		d.handleRenewing(ev)
	case Rebinding:
		d.handleRebinding(ev)
	case Reboot:
		d.handleReboot(ev)
	case RenewRequested:
		d.handleRenewRequested(ev)
	case RequestingInfo:
		d.handleRequestingInfo(ev)
	case Released:
		// Terminal: every event but the globals above is a no-op.
	}
}

func (d *Device) now() time.Time { return d.clk.Now() }

// --- INIT ---------------------------------------------------------------

func (d *Device) handleInit(ev Event) {
	switch ev.Kind {
	case EvStart:
		d.handleStart(ev.Mode)
	case EvLinkUp:
		d.handleStart(d.mode)
	}
}

func (d *Device) handleStart(mode Mode) {
	d.mode = mode
	if mode == ModeInfoOnly {
		d.beginInformationRequest()
		return
	}
	cached := d.leases.Current()
	if cached == nil {
		cached = d.applier.CacheGet(d.ifindex)
	}
	if cached != nil && d.now().Before(cached.AcquiredAt.Add(cached.MinValid())) {
		d.beginConfirm(cached)
		return
	}
	d.beginSolicit()
}

// --- transaction bring-up helpers ---------------------------------------

func (d *Device) newTxn(kind transaction.Kind, params transaction.Params) *transaction.Transaction {
	id, err := xid.New()
	if err != nil {
		d.log.Error(err, "generating transaction id")
		id = xid.ID{}
	}
	t := transaction.New(id, kind, params, d.now())
	d.txn = t
	return t
}

func (d *Device) armFirst(t *transaction.Transaction) {
	t.RT = d.sched.FirstRT(t.Kind, t.Params.IRT)
	d.rearm(t.RT)
}

func (d *Device) rearm(rt time.Duration) {
	d.cancelTimer()
	ch := d.timerCh
	d.timer = d.clk.AfterFunc(rt, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
}

// beginSolicit starts an entirely fresh discovery cycle: every server
// this device previously excluded (NoAddrsAvail, DAD conflict) is
// forgotten. Used for an explicit Start/LinkUp and for the "back off to
// Solicit" actions that follow a hard rejection (NotOnLink, budget
// exhaustion) in spec.md §4.1's transition table.
func (d *Device) beginSolicit() {
	d.excluded = make(map[string]bool)
	d.restartSolicit()
}

// restartSolicit begins a new Solicit transaction while keeping the
// device's excluded-server set intact, used when the trigger was a
// rejection from one specific server (NoAddrsAvail exhausting the
// buffer, a DAD conflict) rather than a full restart.
func (d *Device) restartSolicit() {
	d.selBuf.Reset()
	d.unicastServer = nil
	t := d.newTxn(transaction.Solicit, solicitParams)
	d.sendMulticast(t, OutMessage{
		Kind:             transaction.Solicit,
		RequestedOptions: d.cfg.RequestedOptions,
		Hostname:         d.cfg.Hostname,
		UserClass:        d.cfg.UserClass,
		VendorClass:      d.cfg.VendorClass,
		RapidCommit:      d.cfg.RapidCommitAllowed,
	})
	d.armFirst(t)
	d.setState(Selecting)
}

func (d *Device) beginInformationRequest() {
	t := d.newTxn(transaction.InformationRequest, infoParams)
	d.sendMulticast(t, OutMessage{
		Kind:             transaction.InformationRequest,
		RequestedOptions: d.cfg.RequestedOptions,
	})
	d.armFirst(t)
	d.setState(RequestingInfo)
}

func (d *Device) beginConfirm(cached *lease.Lease) {
	d.candidate = nil
	d.rebootCache = cached
	t := d.newTxn(transaction.Confirm, confirmParams)
	d.sendMulticast(t, OutMessage{
		Kind:  transaction.Confirm,
		IAID:  d.iaid,
		Addrs: cached.Addrs,
	})
	d.armFirst(t)
	d.setState(Reboot)
}

func (d *Device) beginRequest(adv advertiseChoice) {
	d.selectedServer = adv
	t := d.newTxn(transaction.Request, requestParams)
	d.sendMulticast(t, OutMessage{
		Kind:             transaction.Request,
		ServerDUID:       adv.duid,
		IAID:             d.iaid,
		Addrs:            adv.addrs,
		RequestedOptions: d.cfg.RequestedOptions,
		Hostname:         d.cfg.Hostname,
		UserClass:        d.cfg.UserClass,
		VendorClass:      d.cfg.VendorClass,
	})
	d.armFirst(t)
	d.setState(Requesting)
}

func (d *Device) beginRenew(immediate bool) {
	cur := d.leases.Current()
	t := d.newTxn(transaction.Renew, renewParams(cur.T1, cur.T2))
	out := OutMessage{
		Kind:       transaction.Renew,
		ServerDUID: cur.ServerDUID,
		IAID:       d.iaid,
		Addrs:      cur.Addrs,
	}
	if d.serverAddr.IsValid() {
		dst := d.serverAddr
		d.unicastServer = &dst
		d.sendUnicast(t, out, dst)
	} else {
		d.sendMulticast(t, out)
	}
	d.armFirst(t)
	if immediate {
		d.setState(RenewRequested)
	} else {
		d.setState(Renewing)
	}
}

func (d *Device) beginRebind() {
	cur := d.leases.Current()
	remaining := cur.MinValid() - d.now().Sub(cur.AcquiredAt)
	t := d.newTxn(transaction.Rebind, rebindParams(remaining))
	d.unicastServer = nil
	d.sendMulticast(t, OutMessage{
		Kind:  transaction.Rebind,
		IAID:  d.iaid,
		Addrs: cur.Addrs,
	})
	d.armFirst(t)
	d.setState(Rebinding)
}

func (d *Device) beginRelease() {
	cur := d.leases.Current()
	t := d.newTxn(transaction.Release, releaseParams)
	out := OutMessage{
		Kind:       transaction.Release,
		ServerDUID: cur.ServerDUID,
		IAID:       d.iaid,
		Addrs:      cur.Addrs,
	}
	if d.serverAddr.IsValid() {
		d.sendUnicast(t, out, d.serverAddr)
	} else {
		d.sendMulticast(t, out)
	}
	d.armFirst(t)
}

// sendDeclineOnce fires a best-effort Decline for a DAD-conflicted
// address. RFC 3315 §18.1.7 has the client proceed without waiting for
// a reply, so this does not arm a retransmission timer or occupy
// d.txn — the device moves straight back into a fresh Solicit cycle
// after calling this (spec.md §4.1 VALIDATING row).
func (d *Device) sendDeclineOnce(serverDUID []byte, addrs []lease.Addr) {
	id, err := xid.New()
	if err != nil {
		d.log.Error(err, "generating transaction id for decline")
		return
	}
	out := OutMessage{
		Kind:       transaction.Decline,
		XID:        id,
		ServerDUID: serverDUID,
		IAID:       d.iaid,
		Addrs:      addrs,
		ClientDUID: d.clientDUID,
	}
	payload, err := d.codec.Encode(out)
	if err != nil {
		d.log.Error(err, "encoding decline")
		return
	}
	dst := AllDHCPRelayAgentsAndServers
	if d.serverAddr.IsValid() {
		dst = d.serverAddr
	}
	if err := d.link.Send(d.ifindex, dst, payload); err != nil {
		d.log.Info("decline send failed, proceeding to re-solicit anyway", "error", err.Error())
	}
}

func (d *Device) sendMulticast(t *transaction.Transaction, out OutMessage) {
	d.sendUnicast(t, out, AllDHCPRelayAgentsAndServers)
}

func (d *Device) sendUnicast(t *transaction.Transaction, out OutMessage, dst netip.Addr) {
	out.XID = t.XID
	out.ElapsedMS = t.ElapsedMS(d.now())
	out.ClientDUID = d.clientDUID
	payload, err := d.codec.Encode(out)
	if err != nil {
		d.log.Error(err, "encoding outbound message", "kind", out.Kind.String())
		return
	}
	if err := d.link.Send(d.ifindex, dst, payload); err != nil {
		d.log.Info("transient send failure, will retry at next RT", "kind", out.Kind.String(), "error", err.Error())
	}
}

func (d *Device) retransmit(out OutMessage, dst netip.Addr) {
	t := d.txn
	t.RC++
	t.RT = d.sched.NextRT(t.RT, t.Params.MRT)
	d.sendUnicast(t, out, dst)
	d.rearm(t.RT)
}

// advertiseChoice is the server picked out of the selection buffer,
// carrying just what REQUESTING needs to build its Request and, later,
// to identify the server if the candidate must be rejected.
type advertiseChoice struct {
	duidKey string // selection.Advertise.ServerDUID, the byte-string map key
	duid    []byte
	addrs   []lease.Addr
}
