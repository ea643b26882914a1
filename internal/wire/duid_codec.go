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

package wire

import (
	"github.com/insomniacslk/dhcp/dhcpv6"
)

// duidFromBytes wraps an already-encoded DUID (as internal/duid
// persists it) in the form dhcpv6's option constructors expect. The
// FSM and internal/duid never need to know the TLV layout of a DUID,
// only that it round-trips as bytes; dhcpv6.DuidFromBytes parses the
// real structure back out of them when the option is serialized.
func duidFromBytes(b []byte) dhcpv6.DUID {
	d, err := dhcpv6.DuidFromBytes(b)
	if err != nil {
		// A DUID internal/duid already persisted must be well-formed;
		// falling back to zero bytes would silently corrupt the
		// outgoing packet, so surface it as an opaque DUID-UUID instead
		// of panicking mid-encode.
		return &dhcpv6.DUIDUUID{UUID: b}
	}
	return d
}
