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
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jr42/dhcpv6-supplicant/internal/applier"
	"github.com/jr42/dhcpv6-supplicant/internal/config"
	"github.com/jr42/dhcpv6-supplicant/internal/duid"
	"github.com/jr42/dhcpv6-supplicant/internal/linkmgr"
	"github.com/jr42/dhcpv6-supplicant/internal/metrics"
	"github.com/jr42/dhcpv6-supplicant/internal/wire"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the supplicant in the foreground",
	Long: `Start runs every configured interface's DHCPv6 client state
machine until interrupted (SIGINT/SIGTERM). There is no background
daemon mode; run it under a process supervisor for that.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if len(cfg.Interfaces) == 0 {
		return fmt.Errorf("no interfaces configured; see %s", config.GetDefaultConfigPath())
	}

	zapLog, err := newZapLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer zapLog.Sync() //nolint:errcheck
	log := zapr.NewLogger(zapLog)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.Addr, reg, log)
		defer srv.Close()
	}

	hwAddr, err := firstHardwareAddr(cfg.Interfaces)
	if err != nil {
		return err
	}
	clientDUID, err := duid.Load(cfg.DUID.Path, cfg.DUID.DUIDKind(), hwAddr)
	if err != nil {
		return fmt.Errorf("loading client DUID: %w", err)
	}
	log.Info("client DUID ready", "path", cfg.DUID.Path, "kind", cfg.DUID.Kind)

	link, err := linkmgr.New(log.WithName("linkmgr"))
	if err != nil {
		return fmt.Errorf("opening DHCPv6 socket: %w", err)
	}
	defer link.Close()

	s := newSupplicant(link, wire.New(), applier.New(log.WithName("applier")), m, clientDUID, log)
	for _, ic := range cfg.Interfaces {
		if err := s.addInterface(ctx, ic); err != nil {
			return fmt.Errorf("configuring interface %s: %w", ic.Name, err)
		}
	}

	log.Info("supplicant running", "interfaces", len(cfg.Interfaces))
	s.run(ctx)
	log.Info("supplicant stopped")
	return nil
}

func newZapLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if lc.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func startMetricsServer(addr string, reg *prometheus.Registry, log logr.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server stopped")
		}
	}()
	return srv
}

func firstHardwareAddr(interfaces []config.InterfaceConfig) (net.HardwareAddr, error) {
	for _, ic := range interfaces {
		ifi, err := net.InterfaceByName(ic.Name)
		if err != nil {
			continue
		}
		if len(ifi.HardwareAddr) > 0 {
			return ifi.HardwareAddr, nil
		}
	}
	return nil, fmt.Errorf("no configured interface has a usable hardware address for DUID generation")
}
