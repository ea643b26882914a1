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

// Package dispatch implements the packet dispatcher (spec.md §4.3): it
// demultiplexes already-parsed inbound messages by transaction id and
// validates them against the device's identity before the FSM ever
// sees them.
package dispatch

import (
	"bytes"
	"net/netip"

	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/xid"
)

// DropReason explains why a message never reached the FSM.
type DropReason string

const (
	DropNone               DropReason = ""
	DropUnrecognizedType   DropReason = "unrecognized-type"
	DropXIDMismatch        DropReason = "xid-mismatch"
	DropReconfigureIgnored DropReason = "reconfigure-ignored"
	DropClientIDMismatch   DropReason = "clientid-mismatch"
	DropMissingServerID    DropReason = "missing-serverid"
	DropSourceNotAllowed   DropReason = "source-not-allowed"
	DropNoTransaction      DropReason = "no-active-transaction"
)

// View is the slice of device state the dispatcher needs to validate
// an inbound message, passed in fresh for every call so the dispatcher
// itself holds no per-device state (spec.md §9: "per-process
// singletons are banned").
type View struct {
	// ClientDUID is this device's own DUID, which every accepted
	// message's ClientID option must equal.
	ClientDUID []byte
	// CurrentXID is the device's in-flight transaction id, or nil if the
	// device has no outstanding transaction (spec.md §3 invariant:
	// "current_xid is set iff state is one of SELECTING, REQUESTING,
	// RENEWING, REBINDING, REBOOT, REQUESTING_INFO, RENEW_REQUESTED").
	CurrentXID *xid.ID
	// UnicastServer is the server's unicast endpoint recorded from the
	// current lease, used to admit a unicast Renew Reply that doesn't
	// arrive from a link-local address (spec.md §4.3).
	UnicastServer *netip.Addr
}

// Validate applies the dispatcher rules of spec.md §4.3 to an
// already-parsed message and reports whether it should be handed to
// the FSM as a RxMessage event.
func Validate(v View, msg message.Parsed) (message.Parsed, DropReason) {
	if !sourceAllowed(v, msg.Src) {
		return msg, DropSourceNotAllowed
	}

	if msg.Type == message.KindReconfigure {
		// Reconfigure has no transaction and is not implemented: silently
		// ignored regardless of any other field (spec.md §3, §4.3).
		return msg, DropReconfigureIgnored
	}

	if !msg.Type.IsServerToClient() {
		return msg, DropUnrecognizedType
	}

	if v.CurrentXID == nil {
		return msg, DropNoTransaction
	}
	if msg.XID != *v.CurrentXID {
		return msg, DropXIDMismatch
	}

	if len(msg.ClientDUID) == 0 || !bytes.Equal(msg.ClientDUID, v.ClientDUID) {
		return msg, DropClientIDMismatch
	}

	if len(msg.ServerDUID) == 0 {
		return msg, DropMissingServerID
	}

	return msg, DropNone
}

func sourceAllowed(v View, src netip.Addr) bool {
	if !src.IsValid() {
		return false
	}
	if src.IsLinkLocalUnicast() {
		return true
	}
	return v.UnicastServer != nil && *v.UnicastServer == src
}
