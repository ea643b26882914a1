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

package radetect

import (
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/mdlayher/ndp"

	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
)

func TestHandleRA_ManagedFlagSelectsManagedMode(t *testing.T) {
	w := New("eth0", logr.Discard())
	w.handleRA(&ndp.RouterAdvertisement{ManagedConfiguration: true}, &net.IPAddr{IP: net.ParseIP("fe80::1")})

	select {
	case d := <-w.Decisions():
		if d.Mode != fsm.ModeManaged {
			t.Fatalf("mode = %v, want ModeManaged", d.Mode)
		}
	default:
		t.Fatal("expected a decision on the channel")
	}
}

func TestHandleRA_NoManagedFlagSelectsInfoOnly(t *testing.T) {
	w := New("eth0", logr.Discard())
	w.handleRA(&ndp.RouterAdvertisement{ManagedConfiguration: false}, &net.IPAddr{IP: net.ParseIP("fe80::1")})

	select {
	case d := <-w.Decisions():
		if d.Mode != fsm.ModeInfoOnly {
			t.Fatalf("mode = %v, want ModeInfoOnly", d.Mode)
		}
	default:
		t.Fatal("expected a decision on the channel")
	}
}
