// Package config loads the YAML configuration of the demo host.
//
// A Config describes how a machine tree is driven: fixed tick rate, how many
// ticks to run (zero means until interrupted), the resolver hop budget,
// whether to use the real-time runtime, the diagnostics listen address,
// logging and an optional layout file for the builder.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hfsm"
)

// Config is the top-level host configuration.
type Config struct {
	TickRate time.Duration `yaml:"tickRate"`
	Ticks    int           `yaml:"ticks"`
	MaxHops  int           `yaml:"maxHops"`
	Realtime bool          `yaml:"realtime"`
	Listen   string        `yaml:"listen,omitempty"`
	Log      LogConfig     `yaml:"log"`
	Layout   string        `yaml:"layout,omitempty"`
}

// LogConfig selects level and encoder of the host logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs 600 ticks at 60 FPS.
func Default() Config {
	return Config{
		TickRate: 16667 * time.Microsecond,
		Ticks:    600,
		MaxHops:  hfsm.DefaultMaxHops,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data and overlays it on Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration:
// - Positive tick rate and hop budget
// - Non-negative tick count
// - A bounded run unless the real-time runtime or the diagnostics server keeps it alive
// - Known log format
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tickRate must be positive, got %v", c.TickRate))
	}
	if c.MaxHops <= 0 {
		errs = append(errs, fmt.Errorf("maxHops must be positive, got %d", c.MaxHops))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must not be negative, got %d", c.Ticks))
	}
	if c.Ticks == 0 && !c.Realtime {
		errs = append(errs, errors.New("ticks is required when realtime is off"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
