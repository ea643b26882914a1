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

package config

import (
	"github.com/jr42/dhcpv6-supplicant/internal/duid"
	"github.com/jr42/dhcpv6-supplicant/internal/fsm"
)

// DUIDKind projects the on-disk "llt"/"ll" setting into duid.Kind.
func (c DUIDConfig) DUIDKind() duid.Kind {
	if c.Kind == "ll" {
		return duid.KindLL
	}
	return duid.KindLLT
}

// FSMMode returns the fsm.Mode this interface profile starts in. Callers
// driving internal/radetect (AutoMode true) use this only as the
// initial guess before the first Router Advertisement arrives.
func (c InterfaceConfig) FSMMode() fsm.Mode {
	if c.Mode == "info-only" {
		return fsm.ModeInfoOnly
	}
	return fsm.ModeManaged
}

// FSMConfig projects the on-disk profile into the fsm.Config the
// daemon passes to DeviceFactory.Create.
func (c InterfaceConfig) FSMConfig() fsm.Config {
	return fsm.Config{
		RapidCommitAllowed: c.RapidCommit,
		UserClass:          []byte(c.UserClass),
		VendorClass:        []byte(c.VendorClass),
		RequestedOptions:   c.RequestedOptions,
		Hostname:           c.Hostname,
	}
}
