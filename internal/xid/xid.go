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

// Package xid generates DHCPv6 transaction ids: uniformly random 24-bit
// values, one per new transaction (spec.md §3, §4.1 "Transaction-id").
package xid

import (
	"crypto/rand"
	"fmt"
)

// ID is a 24-bit DHCPv6 transaction id.
type ID [3]byte

// New returns a fresh, uniformly random transaction id. Retransmissions
// of an existing transaction must reuse the original ID value instead
// of calling New again.
func New() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return ID{}, fmt.Errorf("xid: read random bytes: %w", err)
	}
	return id, nil
}

// Uint32 returns the id widened to a uint32 for convenient comparison
// and logging (top byte always zero).
func (id ID) Uint32() uint32 {
	return uint32(id[0])<<16 | uint32(id[1])<<8 | uint32(id[2])
}

func (id ID) String() string {
	return fmt.Sprintf("%06x", id.Uint32())
}
