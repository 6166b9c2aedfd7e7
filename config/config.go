// Package config provides configuration loading and management for semcrate.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/export"
	"github.com/c360studio/semcrate/graph"
	"github.com/c360studio/semcrate/source"
)

// Config represents the complete semcrate configuration
type Config struct {
	Consolidate ConsolidateConfig    `yaml:"consolidate"`
	Fetch       source.FetcherConfig `yaml:"fetch"`
	Output      OutputConfig         `yaml:"output"`
	NATS        NATSConfig           `yaml:"nats"`
	Watch       WatchConfig          `yaml:"watch"`
	Metrics     MetricsConfig        `yaml:"metrics"`
}

// ConsolidateConfig configures the consolidation run
type ConsolidateConfig struct {
	// AddSubcrateType tags folders with the Subcrate type (default: true)
	AddSubcrateType bool `yaml:"add_subcrate_type"`
	// ExtendContext adds the consolidation terms to @context (default: true)
	ExtendContext bool `yaml:"extend_context"`
	// ConformsToPolicy is "strip" (default) or "filter"
	ConformsToPolicy string `yaml:"conforms_to_policy"`
	// LoadConcurrency is how many sibling subcrates load at once (default: 1)
	LoadConcurrency int `yaml:"load_concurrency"`
	// MaxDepth bounds subcrate nesting
	MaxDepth int `yaml:"max_depth"`
}

// OutputConfig configures serialization
type OutputConfig struct {
	// Format is jsonld, ntriples or turtle
	Format string `yaml:"format"`
	Pretty bool   `yaml:"pretty"`
}

// NATSConfig configures publishing of consolidated crates
type NATSConfig struct {
	// URL is the NATS server URL (empty = do not publish)
	URL string `yaml:"url"`
	// GraphSubject receives one message per entity (empty = disabled)
	GraphSubject string `yaml:"graph_subject"`
	// Timeout bounds connecting and publishing
	Timeout time.Duration `yaml:"timeout"`
}

// WatchConfig configures the watch command
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig configures the metrics endpoint of the watch command
type MetricsConfig struct {
	// Port is the listen port (0 = disabled)
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	opts := consolidate.DefaultOptions()
	return &Config{
		Consolidate: ConsolidateConfig{
			AddSubcrateType:  opts.AddSubcrateType,
			ExtendContext:    opts.ExtendContext,
			ConformsToPolicy: opts.ConformsToPolicy.String(),
			LoadConcurrency:  opts.LoadConcurrency,
			MaxDepth:         opts.MaxDepth,
		},
		Fetch: source.DefaultFetcherConfig(),
		Output: OutputConfig{
			Format: string(export.FormatJSONLD),
		},
		NATS: NATSConfig{
			GraphSubject: graph.GraphIngestSubject,
			Timeout:      10 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, ok := consolidate.ParseConformsToPolicy(c.Consolidate.ConformsToPolicy); !ok {
		return fmt.Errorf("consolidate.conforms_to_policy: unknown policy %q", c.Consolidate.ConformsToPolicy)
	}
	if c.Consolidate.LoadConcurrency < 1 {
		return fmt.Errorf("consolidate.load_concurrency must be at least 1")
	}
	if c.Consolidate.MaxDepth < 1 {
		return fmt.Errorf("consolidate.max_depth must be at least 1")
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}
	return nil
}

// ConsolidateOptions converts the configuration into engine options.
// Validate must have succeeded.
func (c *Config) ConsolidateOptions(logger *slog.Logger, observer consolidate.Observer) consolidate.Options {
	policy, _ := consolidate.ParseConformsToPolicy(c.Consolidate.ConformsToPolicy)
	return consolidate.Options{
		AddSubcrateType:  c.Consolidate.AddSubcrateType,
		ExtendContext:    c.Consolidate.ExtendContext,
		ConformsToPolicy: policy,
		LoadConcurrency:  c.Consolidate.LoadConcurrency,
		MaxDepth:         c.Consolidate.MaxDepth,
		Logger:           logger,
		Observer:         observer,
	}
}

// ExportOptions converts the output section. Validate must have succeeded.
func (c *Config) ExportOptions() export.Options {
	format, _ := export.ParseFormat(c.Output.Format)
	return export.Options{Format: format, Pretty: c.Output.Pretty}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.ApplyFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyFile decodes a YAML file on top of c. Keys absent from the file keep
// their current value, so false and zero values in the file do override.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
