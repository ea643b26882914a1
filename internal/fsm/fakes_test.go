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
	"encoding/json"
	"errors"
	"net/netip"
	"sync"

	"github.com/jr42/dhcpv6-supplicant/internal/lease"
)

var errEncodeFailed = errors.New("fake encode failure")
var errSendFailed = errors.New("fake send failure")

// sentMessage is one payload fakeLink.Send recorded, decoded back into
// the structured OutMessage so assertions read naturally.
type sentMessage struct {
	dst netip.Addr
	out OutMessage
}

// fakeCodec round-trips OutMessage through JSON rather than the real
// DHCPv6 TLV wire format — fine for FSM unit tests, which only need to
// observe what the FSM asked to send, not exercise the codec itself
// (internal/wire has its own tests against the real format).
type fakeCodec struct {
	mu      sync.Mutex
	failNow bool
}

func (c *fakeCodec) Encode(msg OutMessage) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNow {
		return nil, errEncodeFailed
	}
	return json.Marshal(msg)
}

// fakeLink records every Send call (mirrors the teacher corpus's
// MockReceiver pattern: a mutex-guarded recording fake instead of a
// generated mock).
type fakeLink struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (l *fakeLink) Send(ifindex uint32, dst netip.Addr, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errSendFailed
	}
	var out OutMessage
	if err := json.Unmarshal(payload, &out); err != nil {
		return err
	}
	l.sent = append(l.sent, sentMessage{dst: dst, out: out})
	return nil
}

func (l *fakeLink) last() (sentMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sent) == 0 {
		return sentMessage{}, false
	}
	return l.sent[len(l.sent)-1], true
}

func (l *fakeLink) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

func (l *fakeLink) messages() []sentMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sentMessage, len(l.sent))
	copy(out, l.sent)
	return out
}

// fakeApplier is a scriptable Applier: tests set the outcome the next
// Apply call should return.
type fakeApplier struct {
	mu        sync.Mutex
	nextOut   ApplyOutcome
	nextAddr  netip.Addr
	cached    *lease.Lease
	withdrawn []lease.Addr
	applied   []*lease.Lease
}

func (a *fakeApplier) Apply(ifindex uint32, l *lease.Lease) (ApplyOutcome, netip.Addr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, l)
	return a.nextOut, a.nextAddr
}

func (a *fakeApplier) Withdraw(ifindex uint32, addrs []lease.Addr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.withdrawn = append(a.withdrawn, addrs...)
}

func (a *fakeApplier) CacheGet(ifindex uint32) *lease.Lease {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cached
}

func (a *fakeApplier) CachePut(ifindex uint32, l *lease.Lease) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = l
}
