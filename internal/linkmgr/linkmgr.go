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

// Package linkmgr is the reference fsm.LinkManager: a UDP/546 socket
// joined to ff02::1:2 on every managed interface, grounded on the
// teacher corpus's multicast-join idiom in Aglay-fuchsia's mdns.go
// (ipv4.PacketConn.JoinGroup generalized here to ipv6.PacketConn).
package linkmgr

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/net/ipv6"
)

const clientPort = 546

// Manager owns one UDP/546 socket shared by every interface the
// supplicant manages; JoinInterface must be called once per ifindex
// before Send will reach that link (spec.md §6 Link manager
// interface).
type Manager struct {
	mu   sync.RWMutex
	conn *ipv6.PacketConn
	raw  net.PacketConn
	log  logr.Logger

	joined map[int]bool
}

// New opens the shared multicast socket. The caller must call Close
// when the supplicant shuts down.
func New(log logr.Logger) (*Manager, error) {
	raw, err := net.ListenPacket("udp6", fmt.Sprintf("[::]:%d", clientPort))
	if err != nil {
		return nil, fmt.Errorf("linkmgr: listening on :%d: %w", clientPort, err)
	}
	conn := ipv6.NewPacketConn(raw)
	if err := conn.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		raw.Close()
		return nil, fmt.Errorf("linkmgr: enabling interface control messages: %w", err)
	}
	return &Manager{conn: conn, raw: raw, log: log, joined: make(map[int]bool)}, nil
}

// JoinInterface joins ff02::1:2 on ifindex so Advertise/Reply/
// Reconfigure multicasts and unicast replies addressed to this host
// are delivered on that link.
func (m *Manager) JoinInterface(ifindex uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joined[int(ifindex)] {
		return nil
	}
	iface, err := net.InterfaceByIndex(int(ifindex))
	if err != nil {
		return fmt.Errorf("linkmgr: resolving ifindex %d: %w", ifindex, err)
	}
	group := &net.UDPAddr{IP: net.ParseIP("ff02::1:2")}
	if err := m.conn.JoinGroup(iface, group); err != nil {
		return fmt.Errorf("linkmgr: joining ff02::1:2 on %s: %w", iface.Name, err)
	}
	m.joined[int(ifindex)] = true
	m.log.V(1).Info("joined multicast group", "interface", iface.Name, "ifindex", ifindex)
	return nil
}

// Send implements fsm.LinkManager: it sends payload to dst on
// ifindex, scoping link-local destinations to the outbound interface.
func (m *Manager) Send(ifindex uint32, dst netip.Addr, payload []byte) error {
	iface, err := net.InterfaceByIndex(int(ifindex))
	if err != nil {
		return fmt.Errorf("linkmgr: resolving ifindex %d: %w", ifindex, err)
	}
	cm := &ipv6.ControlMessage{IfIndex: iface.Index}
	addr := &net.UDPAddr{IP: dst.AsSlice(), Port: clientPort}
	if dst.IsLinkLocalMulticast() || dst.IsLinkLocalUnicast() {
		addr.Zone = iface.Name
	}
	if _, err := m.conn.WriteTo(payload, cm, addr); err != nil {
		return fmt.Errorf("linkmgr: sending to %s via %s: %w", dst, iface.Name, err)
	}
	return nil
}

// ReadFrom blocks for the next inbound packet on the shared socket,
// returning the payload, the interface it arrived on and the sender's
// address (spec.md §4.3's dispatcher input).
func (m *Manager) ReadFrom(buf []byte) (n int, ifindex uint32, src netip.Addr, err error) {
	n, cm, addr, err := m.conn.ReadFrom(buf)
	if err != nil {
		return 0, 0, netip.Addr{}, err
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return 0, 0, netip.Addr{}, fmt.Errorf("linkmgr: unexpected source address type %T", addr)
	}
	a, ok := netip.AddrFromSlice(udpAddr.IP)
	if !ok {
		return 0, 0, netip.Addr{}, fmt.Errorf("linkmgr: invalid source address %v", udpAddr.IP)
	}
	ifi := 0
	if cm != nil {
		ifi = cm.IfIndex
	}
	return n, uint32(ifi), a.Unmap(), nil
}

// Close releases the shared socket.
func (m *Manager) Close() error {
	return m.raw.Close()
}
