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

// Package metrics provides the Prometheus-backed fsm.Metrics and
// dispatcher counters for the supplicant daemon (SPEC_FULL.md §4
// "Metrics/counters"), grounded on the teacher corpus's NSM/NLM adapter
// metrics (marmos91-dittofs's internal/adapter/nsm/metrics.go):
// a struct of *prometheus.CounterVec fields, registered once via
// prometheus.Registerer, with nil-safe accessor methods.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
)

// Metrics implements fsm.Metrics and carries the dispatcher's own
// drop-reason counter alongside it.
type Metrics struct {
	transitionsTotal   *prometheus.CounterVec
	droppedTotal       *prometheus.CounterVec
	leaseEventsTotal   *prometheus.CounterVec
	dispatchDropsTotal *prometheus.CounterVec
}

// New creates and, if reg is non-nil, registers the supplicant's
// metrics. Passing a nil Registerer is useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcpv6supplicant_fsm_transitions_total",
				Help: "Total FSM state transitions by origin and destination state.",
			},
			[]string{"from", "to"},
		),
		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcpv6supplicant_fsm_dropped_total",
				Help: "Total events the FSM dropped, by reason.",
			},
			[]string{"reason"},
		),
		leaseEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcpv6supplicant_lease_events_total",
				Help: "Total observable lease events emitted, by kind.",
			},
			[]string{"kind"},
		),
		dispatchDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcpv6supplicant_dispatch_dropped_total",
				Help: "Total inbound packets the dispatcher rejected before the FSM saw them, by reason.",
			},
			[]string{"reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.transitionsTotal, m.droppedTotal, m.leaseEventsTotal, m.dispatchDropsTotal)
	}
	return m
}

// IncTransition implements fsm.Metrics.
func (m *Metrics) IncTransition(from, to fsm.State) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
}

// IncDropped implements fsm.Metrics.
func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

// IncLeaseEvent implements fsm.Metrics.
func (m *Metrics) IncLeaseEvent(kind fsm.LeaseEventKind) {
	if m == nil {
		return
	}
	m.leaseEventsTotal.WithLabelValues(kind.String()).Inc()
}

// IncDispatchDrop records a packet the dispatcher rejected before
// handing it to the FSM (spec.md §4.3's drop reasons).
func (m *Metrics) IncDispatchDrop(reason string) {
	if m == nil {
		return
	}
	m.dispatchDropsTotal.WithLabelValues(reason).Inc()
}
