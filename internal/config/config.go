// Package config manages diminuto-netd configuration using koanf/v2.
//
// Supports YAML files, environment variables, and defaults layered in that
// order (defaults, then file, then environment).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete diminuto-netd configuration.
type Config struct {
	Listen  ListenConfig  `koanf:"listen"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Ping    PingConfig    `koanf:"ping"`
	RWLock  RWLockConfig  `koanf:"rwlock"`
}

// ListenConfig holds the daemon's primary ipc listener.
type ListenConfig struct {
	// Network is the socket family/type: "tcp", "udp", or "unix".
	Network string `koanf:"network"`
	// Addr is the endpoint string (e.g. "0.0.0.0:7070", "[::]:7070",
	// "/run/diminuto-netd.sock"), parsed by internal/endpoint.
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9110").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// PingConfig holds the ICMP sweep configuration.
type PingConfig struct {
	// Targets is the list of hosts to probe, as strings accepted by
	// internal/endpoint (bare addresses, no port).
	Targets []string `koanf:"targets"`
	// Family selects the probe socket family: "ip4" or "ip6".
	Family string `koanf:"family"`
	// Interval is the delay between sweeps over the full target list.
	Interval time.Duration `koanf:"interval"`
	// Timeout bounds how long a single echo waits for its reply.
	Timeout time.Duration `koanf:"timeout"`
}

// RWLockConfig holds interface-cache lock tuning.
type RWLockConfig struct {
	// Debug enables per-transition slog.Debug state dumps.
	Debug bool `koanf:"debug"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Network: "tcp",
			Addr:    ":7070",
		},
		Metrics: MetricsConfig{
			Addr: ":9110",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Ping: PingConfig{
			Family:   "ip4",
			Interval: 30 * time.Second,
			Timeout:  2 * time.Second,
		},
		RWLock: RWLockConfig{
			Debug: false,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for diminuto-netd configuration.
// Variables are named DIMINUTO_<section>_<key>, e.g., DIMINUTO_LISTEN_ADDR.
const envPrefix = "DIMINUTO_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (DIMINUTO_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	DIMINUTO_LISTEN_ADDR   -> listen.addr
//	DIMINUTO_METRICS_ADDR  -> metrics.addr
//	DIMINUTO_METRICS_PATH  -> metrics.path
//	DIMINUTO_LOG_LEVEL     -> log.level
//	DIMINUTO_LOG_FORMAT    -> log.format
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms DIMINUTO_LISTEN_ADDR -> listen.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"listen.network": defaults.Listen.Network,
		"listen.addr":    defaults.Listen.Addr,
		"metrics.addr":   defaults.Metrics.Addr,
		"metrics.path":   defaults.Metrics.Path,
		"log.level":      defaults.Log.Level,
		"log.format":     defaults.Log.Format,
		"ping.family":    defaults.Ping.Family,
		"ping.interval":  defaults.Ping.Interval.String(),
		"ping.timeout":   defaults.Ping.Timeout.String(),
		"rwlock.debug":   defaults.RWLock.Debug,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyListenAddr indicates the listen address is empty.
	ErrEmptyListenAddr = errors.New("listen.addr must not be empty")

	// ErrInvalidListenNetwork indicates an unrecognized listen network.
	ErrInvalidListenNetwork = errors.New("listen.network must be tcp, udp, or unix")

	// ErrInvalidPingFamily indicates an unrecognized ping family.
	ErrInvalidPingFamily = errors.New("ping.family must be ip4 or ip6")

	// ErrInvalidPingInterval indicates a non-positive sweep interval.
	ErrInvalidPingInterval = errors.New("ping.interval must be > 0 when targets are configured")

	// ErrInvalidPingTimeout indicates a non-positive echo timeout.
	ErrInvalidPingTimeout = errors.New("ping.timeout must be > 0 when targets are configured")
)

// ValidListenNetworks lists the recognized listen.network strings.
var ValidListenNetworks = map[string]bool{
	"tcp":  true,
	"udp":  true,
	"unix": true,
}

// ValidPingFamilies lists the recognized ping.family strings.
var ValidPingFamilies = map[string]bool{
	"ip4": true,
	"ip6": true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Listen.Addr == "" {
		return ErrEmptyListenAddr
	}

	if !ValidListenNetworks[cfg.Listen.Network] {
		return fmt.Errorf("listen.network %q: %w", cfg.Listen.Network, ErrInvalidListenNetwork)
	}

	if !ValidPingFamilies[cfg.Ping.Family] {
		return fmt.Errorf("ping.family %q: %w", cfg.Ping.Family, ErrInvalidPingFamily)
	}

	if len(cfg.Ping.Targets) > 0 {
		if cfg.Ping.Interval <= 0 {
			return ErrInvalidPingInterval
		}
		if cfg.Ping.Timeout <= 0 {
			return ErrInvalidPingTimeout
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
