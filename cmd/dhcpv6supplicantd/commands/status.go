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

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jr42/dhcpv6-supplicant/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the effective configuration without starting the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "logging: level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Fprintf(out, "duid: path=%s kind=%s\n", cfg.DUID.Path, cfg.DUID.Kind)
		if cfg.Metrics.Enabled {
			fmt.Fprintf(out, "metrics: listening on %s\n", cfg.Metrics.Addr)
		} else {
			fmt.Fprintln(out, "metrics: disabled")
		}
		if len(cfg.Interfaces) == 0 {
			fmt.Fprintln(out, "interfaces: none configured")
			return nil
		}
		fmt.Fprintln(out, "interfaces:")
		for _, ic := range cfg.Interfaces {
			mode := ic.Mode
			if ic.AutoMode {
				mode += " (auto)"
			}
			fmt.Fprintf(out, "  - %s: mode=%s iaid=%d rapid_commit=%t\n", ic.Name, mode, ic.IAID, ic.RapidCommit)
		}
		return nil
	},
}
