// Package config loads and validates bondwgd.yaml: the relay's startup
// configuration. Missing required fields are a fatal startup error; every
// other field has a documented default.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bondwg/internal/scheduler"
	"bondwg/internal/weights"
)

// DestinationOverride pins one interface to a non-default remote endpoint.
type DestinationOverride struct {
	Interface string `yaml:"interface"`
	Address   string `yaml:"address"`
}

// Replica2 holds the replica-of-two weighted scheduler's tunables.
type Replica2 struct {
	UseWeights        *bool    `yaml:"use_weights,omitempty"`
	LossPenalty       *float64 `yaml:"loss_penalty,omitempty"`
	QueuePenaltyScale *float64 `yaml:"queue_penalty_scale,omitempty"`
	RTTAlpha          *float64 `yaml:"rtt_alpha,omitempty"`
}

// Config is the parsed, defaulted, and validated bondwgd.yaml.
type Config struct {
	ListenAddress          string                `yaml:"listen_address"`
	DestinationAddress     string                `yaml:"destination_address"`
	WriteTimeoutMS         int                   `yaml:"write_timeout_ms,omitempty"`
	ExcludedInterfaces     []string              `yaml:"excluded_interfaces,omitempty"`
	DestinationOverrides   []DestinationOverride `yaml:"destination_overrides,omitempty"`
	AggregationAlgorithm   string                `yaml:"aggregation_algorithm,omitempty"`
	MinLinksForAggregation int                   `yaml:"min_links_for_aggregation,omitempty"`
	Replica2               Replica2              `yaml:"replica2,omitempty"`
	WeightsFile            string                `yaml:"weights_file,omitempty"`
	UpstreamSourceFilter   *bool                 `yaml:"upstream_source_filter,omitempty"`
	ManagementSocket       string                `yaml:"management_socket,omitempty"`
	LogLevel               string                `yaml:"log_level,omitempty"`

	// path is the file Config was loaded from; used to derive the default
	// weights file location. Not serialized.
	path string
}

// Load reads and validates path. Parse and validation failures are both
// fatal — configuration errors are the only error class in this system
// that aborts the process.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WriteTimeoutMS == 0 {
		c.WriteTimeoutMS = 10
	}
	if c.AggregationAlgorithm == "" {
		c.AggregationAlgorithm = string(scheduler.Mirror)
	}
	if c.MinLinksForAggregation == 0 {
		c.MinLinksForAggregation = 1
	}
	if c.WeightsFile == "" {
		c.WeightsFile = weights.DefaultPath(c.path)
	}
	if c.ManagementSocket == "" {
		c.ManagementSocket = "/run/bondwgd/bondwgd.sock"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if _, err := netip.ParseAddrPort(c.ListenAddress); err != nil {
		return fmt.Errorf("listen_address %q: %w", c.ListenAddress, err)
	}
	if c.DestinationAddress == "" {
		return fmt.Errorf("destination_address is required")
	}
	if _, err := netip.ParseAddrPort(c.DestinationAddress); err != nil {
		return fmt.Errorf("destination_address %q: %w", c.DestinationAddress, err)
	}
	for _, o := range c.DestinationOverrides {
		if o.Interface == "" {
			return fmt.Errorf("destination_overrides: interface name is required")
		}
		if _, err := netip.ParseAddrPort(o.Address); err != nil {
			return fmt.Errorf("destination_overrides[%s] %q: %w", o.Interface, o.Address, err)
		}
	}
	switch scheduler.Algorithm(c.AggregationAlgorithm) {
	case scheduler.Mirror, scheduler.WeightedRoundRobin, scheduler.Replica2Weighted:
	default:
		return fmt.Errorf("aggregation_algorithm %q is not one of mirror, weighted_round_robin, replica2_weighted", c.AggregationAlgorithm)
	}
	return nil
}

// WriteTimeout returns the per-send deadline as a time.Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// SourceFilterEnabled reports whether the upstream per-link source filter
// should be applied. Defaults to true unless explicitly disabled.
func (c *Config) SourceFilterEnabled() bool {
	if c.UpstreamSourceFilter == nil {
		return true
	}
	return *c.UpstreamSourceFilter
}

// Replica2Config translates the YAML tunables into scheduler.Replica2Config,
// substituting baseline defaults for any field left unset.
func (c *Config) Replica2Config() scheduler.Replica2Config {
	cfg := scheduler.DefaultReplica2Config()
	if c.Replica2.UseWeights != nil {
		cfg.UseWeights = *c.Replica2.UseWeights
	}
	if c.Replica2.LossPenalty != nil {
		cfg.LossPenalty = *c.Replica2.LossPenalty
	}
	if c.Replica2.QueuePenaltyScale != nil {
		cfg.QueuePenaltyScale = *c.Replica2.QueuePenaltyScale
	}
	if c.Replica2.RTTAlpha != nil {
		cfg.RTTAlpha = *c.Replica2.RTTAlpha
	}
	return cfg
}

// DestinationOverridesMap parses DestinationOverrides into a lookup table,
// keyed by interface name.
func (c *Config) DestinationOverridesMap() (map[string]netip.AddrPort, error) {
	out := make(map[string]netip.AddrPort, len(c.DestinationOverrides))
	for _, o := range c.DestinationOverrides {
		addr, err := netip.ParseAddrPort(o.Address)
		if err != nil {
			return nil, fmt.Errorf("destination_overrides[%s]: %w", o.Interface, err)
		}
		out[o.Interface] = addr
	}
	return out, nil
}
