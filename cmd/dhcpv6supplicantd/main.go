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

// Command dhcpv6supplicantd is the demo daemon that wires internal/fsm
// up to real sockets, a real DHCPv6 codec, and a real DUID store — a
// runnable instance of the supplicant, not the thing under test (that
// lives entirely in internal/).
package main

import (
	"fmt"
	"os"

	"github.com/jr42/dhcpv6-supplicant/cmd/dhcpv6supplicantd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
