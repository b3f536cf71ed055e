// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config holds the settings of an ingest engine.
type Config struct {
	// ScratchDir is the directory normalized copies are written to.
	// Default: os.TempDir()
	ScratchDir string `yaml:"scratch_dir"`

	// PoolSize is the number of ingests that may run concurrently.
	// Default: runtime.NumCPU() / 2, at least 1
	PoolSize int `yaml:"pool_size"`

	// IncludeInverses also copies the entities referencing each copied product.
	IncludeInverses bool `yaml:"include_inverses"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// MetricsAddr is the listen address of the Prometheus endpoint of the
	// watch command. Empty disables the endpoint.
	// Example: ":9464"
	MetricsAddr string `yaml:"metrics_addr"`

	// ProgressInterval reports copy progress every N scanned entities.
	// Zero disables progress output.
	ProgressInterval int `yaml:"progress_interval"`

	// WatchDebounce is how long the watch command waits for a changed file
	// to settle before re-ingesting it.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithScratchDir sets the directory normalized copies are written to.
func WithScratchDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ScratchDir = dir
	}
}

// WithPoolSize sets the number of concurrent ingests.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithIncludeInverses enables copying of referencing entities.
func WithIncludeInverses(include bool) ConfigOption {
	return func(c *Config) {
		c.IncludeInverses = include
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// WithMetricsAddr sets the metrics listen address.
func WithMetricsAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.MetricsAddr = addr
	}
}

// WithProgressInterval sets the progress reporting interval.
func WithProgressInterval(interval int) ConfigOption {
	return func(c *Config) {
		c.ProgressInterval = interval
	}
}

// WithWatchDebounce sets the settle time of the watch command.
func WithWatchDebounce(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.WatchDebounce = d
	}
}

// DefaultConfig returns a Config with sensible defaults for a single workstation.
func DefaultConfig() *Config {
	return &Config{
		ScratchDir:    os.TempDir(),
		PoolSize:      max(runtime.NumCPU()/2, 1),
		LogLevel:      "info",
		WatchDebounce: 500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithScratchDir("/var/lib/ifcingest"),
//	    WithPoolSize(4),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
func (c *Config) Normalize() {
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	c.ScratchDir = filepath.Clean(c.ScratchDir)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.PoolSize < 1 {
		return errors.New("config: PoolSize must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("config: LogLevel must be one of debug, info, warn, error")
	}
	if c.ProgressInterval < 0 {
		return errors.New("config: ProgressInterval must not be negative")
	}
	if c.WatchDebounce < 0 {
		return errors.New("config: WatchDebounce must not be negative")
	}
	return nil
}
