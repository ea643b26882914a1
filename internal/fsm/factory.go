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
	"fmt"

	"github.com/jr42/dhcpv6-supplicant/internal/clock"
)

// DeviceFactory builds Device contexts that share one codec, link
// manager and lease applier — the collaborators that are genuinely
// process-wide — while every identity and profile field stays
// per-device (spec.md §9 "per-process singletons are banned in the
// core, to allow multiple independent supplicants in one test
// harness").
type DeviceFactory struct {
	Codec   Codec
	Link    LinkManager
	Applier Applier
	Clock   clock.Clock
	Metrics Metrics
}

// NewDeviceFactory returns a DeviceFactory; Metrics defaults to
// NopMetrics if nil.
func NewDeviceFactory(codec Codec, link LinkManager, applier Applier, clk clock.Clock) *DeviceFactory {
	return &DeviceFactory{Codec: codec, Link: link, Applier: applier, Clock: clk, Metrics: NopMetrics{}}
}

// Create builds a Device for one interface. clientDUID must be a
// stable identifier the caller has already loaded or generated via
// internal/duid; ifindex must be nonzero.
func (f *DeviceFactory) Create(ifindex uint32, clientDUID []byte, iaid uint32, cfg Config, opts ...Option) (*Device, error) {
	if ifindex == 0 {
		return nil, fmt.Errorf("fsm: device factory: ifindex is required")
	}
	if len(clientDUID) == 0 {
		return nil, fmt.Errorf("fsm: device factory: client DUID is required")
	}
	m := f.Metrics
	if m == nil {
		m = NopMetrics{}
	}
	allOpts := append([]Option{WithMetrics(m)}, opts...)
	return NewDevice(ifindex, clientDUID, iaid, cfg, f.Codec, f.Link, f.Applier, f.Clock, allOpts...), nil
}
