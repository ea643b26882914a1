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

// Package config loads the demo daemon's on-disk configuration
// (SPEC_FULL.md §2 "Configuration": a DeviceConfig profile per
// interface, plus logging/metrics/DUID settings), grounded on the
// teacher corpus's marmos91-dittofs/pkg/config: a viper.Viper reading
// file-then-env-then-default, mapstructure decode hooks for
// time.Duration, and go-playground/validator struct tags for
// validation instead of hand-rolled field checks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the demo daemon's full on-disk configuration.
type Config struct {
	Logging    LoggingConfig     `mapstructure:"logging"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	DUID       DUIDConfig        `mapstructure:"duid"`
	Interfaces []InterfaceConfig `mapstructure:"interfaces" validate:"required,min=1,dive"`
}

// LoggingConfig controls the zap-backed logr.Logger (SPEC_FULL.md §2
// Logging).
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// Format selects zap's console or json encoder.
	Format string `mapstructure:"format" validate:"required,oneof=console json"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// DUIDConfig controls client DUID persistence (SPEC_FULL.md §4 "DUID
// persistence").
type DUIDConfig struct {
	// Path is where the DUID is read from, or generated and written to.
	Path string `mapstructure:"path" validate:"required"`
	// Kind selects DUID-LLT ("llt", RFC 8415 §11.2) or DUID-LL ("ll", §11.4).
	Kind string `mapstructure:"kind" validate:"required,oneof=llt ll"`
}

// InterfaceConfig is one network interface's supplicant profile
// (spec.md §3 "config: mode, rapid-commit, user-class, vendor-class,
// requested options, hostname").
type InterfaceConfig struct {
	// Name is the OS interface name (e.g. "eth0").
	Name string `mapstructure:"name" validate:"required"`
	// Mode is "managed" (full address assignment) or "info-only"
	// (stateless Information-Request profile).
	Mode string `mapstructure:"mode" validate:"required,oneof=managed info-only"`
	// AutoMode lets internal/radetect pick Mode from observed Router
	// Advertisement M/O flags instead of using the static value above.
	AutoMode bool `mapstructure:"auto_mode"`

	IAID             uint32   `mapstructure:"iaid"`
	RapidCommit      bool     `mapstructure:"rapid_commit"`
	UserClass        string   `mapstructure:"user_class"`
	VendorClass      string   `mapstructure:"vendor_class"`
	RequestedOptions []uint16 `mapstructure:"requested_options"`
	Hostname         string   `mapstructure:"hostname"`
}

// Load reads configuration from configPath (or, if empty, the default
// XDG location), overlays DHCPV6SUPPLICANT_* environment variables,
// applies defaults, and validates the result. When no config file is
// found it returns the defaults alone: no environment overlay and no
// validation are applied on that path.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if !found {
		ApplyDefaults(&cfg)
		return &cfg, nil
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DHCPV6SUPPLICANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: reading config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// ApplyDefaults fills in zero-valued fields with the daemon's
// defaults. It never overwrites an explicitly set value.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = "localhost:9090"
	}
	if cfg.DUID.Path == "" {
		cfg.DUID.Path = filepath.Join(getConfigDir(), "duid.bin")
	}
	if cfg.DUID.Kind == "" {
		cfg.DUID.Kind = "llt"
	}
	for i := range cfg.Interfaces {
		iface := &cfg.Interfaces[i]
		if iface.Mode == "" {
			iface.Mode = "managed"
		}
		if iface.IAID == 0 {
			iface.IAID = 1
		}
	}
}

var validate = validator.New()

// Validate checks cfg against its struct tags, grounded on the
// teacher corpus's go-playground/validator usage.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dhcpv6supplicant")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dhcpv6supplicant")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
