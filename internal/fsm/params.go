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
	"time"

	"github.com/jr42/dhcpv6-supplicant/internal/transaction"
)

// Retransmission parameter sets, one per transaction kind, from
// spec.md §4.1's transition table (RFC 3315 §5.5's SOL/REQ/REN/REB/
// REL/DEC/INF defaults).
var (
	solicitParams = transaction.Params{IRT: time.Second, MRT: 120 * time.Second}
	infoParams    = transaction.Params{IRT: time.Second, MRT: 120 * time.Second}
	confirmParams = transaction.Params{IRT: time.Second, MRT: 4 * time.Second, MRD: 10 * time.Second}
	requestParams = transaction.Params{IRT: time.Second, MRT: 30 * time.Second, MRC: 10, MRD: 30 * time.Second}
	releaseParams = transaction.Params{IRT: time.Second, MRC: 5}
)

func renewParams(t1, t2 time.Duration) transaction.Params {
	mrd := t2 - t1
	if mrd < 0 {
		mrd = 0
	}
	return transaction.Params{IRT: 10 * time.Second, MRT: 600 * time.Second, MRD: mrd}
}

func rebindParams(remaining time.Duration) transaction.Params {
	if remaining < 0 {
		remaining = 0
	}
	return transaction.Params{IRT: 10 * time.Second, MRT: 600 * time.Second, MRD: remaining}
}
