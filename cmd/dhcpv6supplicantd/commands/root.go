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

// Package commands implements the dhcpv6supplicantd CLI, grounded on
// the teacher corpus's marmos91-dittofs cmd/dittofs/commands layout:
// a cobra root command with a persistent --config flag and one
// subcommand file per verb.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dhcpv6supplicantd",
	Short: "DHCPv6 client supplicant daemon",
	Long: `dhcpv6supplicantd runs one DHCPv6 client state machine per
configured interface (RFC 3315/8415: Solicit/Advertise/Request/Reply,
Confirm on reboot, Renew/Rebind, Release/Decline, and the stateless
Information-Request profile).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/dhcpv6supplicant/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
