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

// Package wire adapts between the FSM's wire-agnostic OutMessage/
// message.Parsed vocabulary and the real DHCPv6 packet encoding,
// grounded on the teacher's own use of github.com/insomniacslk/dhcp in
// internal/prefix/dhcpv6pd_receiver.go (SPEC_FULL.md §3 Domain Stack).
package wire

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
	"github.com/jr42/dhcpv6-supplicant/internal/lease"
	"github.com/jr42/dhcpv6-supplicant/internal/message"
	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
)

// Codec implements fsm.Codec and the companion Decode step the
// dispatcher needs, over the real DHCPv6 TLV wire format.
type Codec struct{}

// New returns a ready-to-use Codec; it carries no state of its own.
func New() *Codec { return &Codec{} }

var kindToMessageType = map[transaction.Kind]dhcpv6.MessageType{
	transaction.Solicit:             dhcpv6.MessageTypeSolicit,
	transaction.Request:             dhcpv6.MessageTypeRequest,
	transaction.Confirm:             dhcpv6.MessageTypeConfirm,
	transaction.Renew:               dhcpv6.MessageTypeRenew,
	transaction.Rebind:              dhcpv6.MessageTypeRebind,
	transaction.Release:             dhcpv6.MessageTypeRelease,
	transaction.Decline:             dhcpv6.MessageTypeDecline,
	transaction.InformationRequest:  dhcpv6.MessageTypeInformationRequest,
}

// Encode builds the raw DHCPv6 packet for an outbound FSM message
// (spec.md §6 Codec.Encode).
func (c *Codec) Encode(out fsm.OutMessage) ([]byte, error) {
	mt, ok := kindToMessageType[out.Kind]
	if !ok {
		return nil, fmt.Errorf("wire: unknown transaction kind %d", out.Kind)
	}
	msg := &dhcpv6.Message{
		MessageType:   mt,
		TransactionID: dhcpv6.TransactionID(out.XID),
	}
	msg.AddOption(dhcpv6.OptClientID(duidFromBytes(out.ClientDUID)))
	if len(out.ServerDUID) > 0 {
		msg.AddOption(dhcpv6.OptServerID(duidFromBytes(out.ServerDUID)))
	}
	msg.AddOption(dhcpv6.OptElapsedTime(time.Duration(out.ElapsedMS) * time.Millisecond))

	if out.Kind != transaction.InformationRequest {
		msg.AddOption(dhcpv6.OptIANA(iaNAFor(out.IAID, out.Addrs)))
	}
	if len(out.RequestedOptions) > 0 {
		msg.AddOption(dhcpv6.OptRequestedOption(requestedOptionCodes(out.RequestedOptions)...))
	}
	if out.Hostname != "" {
		msg.AddOption(&dhcpv6.OptFQDN{Flags: 0, DomainName: out.Hostname})
	}
	if len(out.UserClass) > 0 {
		msg.AddOption(&dhcpv6.OptUserClass{UserClasses: [][]byte{out.UserClass}})
	}
	if len(out.VendorClass) > 0 {
		msg.AddOption(&dhcpv6.OptVendorClass{Data: [][]byte{out.VendorClass}})
	}
	if out.RapidCommit {
		msg.AddOption(dhcpv6.OptRapidCommit())
	}
	return msg.ToBytes(), nil
}

// Decode parses a raw inbound packet into the FSM's wire-agnostic
// message.Parsed (spec.md §4.3, consumed by internal/dispatch before
// the FSM ever sees it).
func (c *Codec) Decode(payload []byte, src netip.Addr) (message.Parsed, error) {
	d, err := dhcpv6.FromBytes(payload)
	if err != nil {
		return message.Parsed{}, fmt.Errorf("wire: decode: %w", err)
	}
	msg, ok := d.(*dhcpv6.Message)
	if !ok {
		return message.Parsed{}, fmt.Errorf("wire: decode: unexpected message shape %T", d)
	}

	kind, err := parsedKindFor(msg.MessageType)
	if err != nil {
		return message.Parsed{}, err
	}

	p := message.Parsed{
		Type: kind,
		XID:  [3]byte(msg.TransactionID),
		Src:  src,
	}
	if cid := msg.Options.ClientID(); cid != nil {
		p.ClientDUID = cid.ToBytes()
	}
	if sid := msg.Options.ServerID(); sid != nil {
		p.ServerDUID = sid.ToBytes()
	}
	if st := msg.Options.Status(); st != nil {
		p.Status = message.StatusCode(st.StatusCode)
		p.StatusMessage = st.StatusMessage
	}
	if pref := msg.Options.Preference(); pref != nil {
		p.Preference = uint8(*pref)
	}
	p.RapidCommit = msg.Options.RapidCommit() != nil

	if ia := msg.Options.OneIANA(); ia != nil {
		p.IAID = idFromBytes(ia.IaId[:])
		p.T1 = ia.T1
		p.T2 = ia.T2
		p.Addrs = addrsFromIANA(ia)
	}

	p.DNSServers = msg.Options.DNS()
	p.DNSSearch = msg.Options.DomainSearchList()
	p.NTPServers = ntpServers(msg)
	p.SIPServers = sipServers(msg)
	return p, nil
}

func parsedKindFor(mt dhcpv6.MessageType) (message.Kind, error) {
	switch mt {
	case dhcpv6.MessageTypeAdvertise:
		return message.KindAdvertise, nil
	case dhcpv6.MessageTypeReply:
		return message.KindReply, nil
	case dhcpv6.MessageTypeReconfigure:
		return message.KindReconfigure, nil
	default:
		return 0, fmt.Errorf("wire: unexpected inbound message type %s", mt)
	}
}

func iaNAFor(iaid uint32, addrs []lease.Addr) *dhcpv6.OptIANA {
	ia := iana.IANA{IaId: idToBytes(iaid)}
	for _, a := range addrs {
		ia.Options.Add(&dhcpv6.OptIAAddress{
			IPv6Addr:          a.Address.AsSlice(),
			PreferredLifetime: a.Preferred,
			ValidLifetime:     a.Valid,
		})
	}
	return &dhcpv6.OptIANA{IANA: ia}
}

func addrsFromIANA(ia *dhcpv6.OptIANA) []lease.Addr {
	var out []lease.Addr
	for _, opt := range ia.Options.Get(dhcpv6.OptionIAAddr) {
		a, ok := opt.(*dhcpv6.OptIAAddress)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(a.IPv6Addr)
		if !ok {
			continue
		}
		out = append(out, lease.Addr{
			Address:   addr.Unmap(),
			Preferred: a.PreferredLifetime,
			Valid:     a.ValidLifetime,
		})
	}
	return out
}

func requestedOptionCodes(codes []uint16) []dhcpv6.OptionCode {
	out := make([]dhcpv6.OptionCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, dhcpv6.GenericOptionCode(c))
	}
	return out
}

func ntpServers(msg *dhcpv6.Message) []netip.Addr {
	raw := msg.GetOneOption(dhcpv6.OptionNTPServer)
	if raw == nil {
		return nil
	}
	ntp, ok := raw.(*dhcpv6.OptNTPServer)
	if !ok {
		return nil
	}
	var out []netip.Addr
	for _, s := range ntp.Suboptions {
		if addrOpt, ok := s.(*dhcpv6.NTPSuboptionSrvAddr); ok {
			if a, ok := netip.AddrFromSlice(addrOpt.Addr); ok {
				out = append(out, a.Unmap())
			}
		}
	}
	return out
}

func sipServers(msg *dhcpv6.Message) []netip.Addr {
	raw := msg.GetOneOption(dhcpv6.OptionSIPServersAddr)
	if raw == nil {
		return nil
	}
	sip, ok := raw.(*dhcpv6.OptSIPServers)
	if !ok {
		return nil
	}
	var out []netip.Addr
	for _, ip := range sip.SipServer {
		if a, ok := netip.AddrFromSlice(ip); ok {
			out = append(out, a.Unmap())
		}
	}
	return out
}

func idToBytes(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func idFromBytes(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
