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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/ifcingest"
	"github.com/poiesic/ifcingest/config"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/node"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ifcingest",
		Usage: "Normalize IFC building models and extract their element identifiers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"IFCINGEST_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"IFCINGEST_CONFIG"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one model and print its identifier manifest as JSON",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags:     engineFlags(),
			},
			{
				Name:      "watch",
				Usage:     "Re-ingest a model whenever it changes",
				ArgsUsage: "<file>",
				Action:    watchCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Serve Prometheus metrics on this address, e.g. :9464",
						EnvVars: []string{"IFCINGEST_METRICS_ADDR"},
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Wait this long for a changed file to settle",
						Value: 500 * time.Millisecond,
					},
				),
			},
			{
				Name:   "sample",
				Usage:  "Write a synthetic model",
				Action: sampleCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Schema of the model (IFC2X3, IFC4)",
						Value: "IFC2X3",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of products to generate",
						Value: 10,
					},
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Path of the model to create; must not exist",
						Required: true,
					},
				},
			},
		},
	}
}

// engineFlags override the corresponding configuration file values.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "scratch-dir",
			Usage: "Directory normalized copies are written to",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Number of ingests that may run concurrently",
		},
		&cli.BoolFlag{
			Name:  "include-inverses",
			Usage: "Also copy the entities referencing each product",
		},
		&cli.IntFlag{
			Name:  "progress-interval",
			Usage: "Report copy progress every N entities (0 disables)",
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return setupLogger(cfg.LogLevel)
}

// loadConfig reads the --config file, if any, and applies the flags set on
// the command line on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("scratch-dir") {
		cfg.ScratchDir = c.String("scratch-dir")
	}
	if c.IsSet("pool-size") {
		cfg.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("include-inverses") {
		cfg.IncludeInverses = c.Bool("include-inverses")
	}
	if c.IsSet("progress-interval") {
		cfg.ProgressInterval = c.Int("progress-interval")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("debounce") {
		cfg.WatchDebounce = c.Duration("debounce")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(levelStr string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func sourceArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one model file, got %d arguments", c.NArg())
	}
	return c.Args().First(), nil
}

func newEngine(c *cli.Context) (*ifcingest.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return ifcingest.NewEngine(cfg, ifcingest.WithProgressOutput(c.App.ErrWriter))
}

func ingestCommand(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	done := make(chan struct{}, 1)
	adapter, err := engine.NewAdapter(node.WithStatusListener(func(node.Status, string) {
		select {
		case done <- struct{}{}:
		default:
		}
	}))
	if err != nil {
		return err
	}

	adapter.SetInput(source)
	if err := adapter.Calculate(); err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return fmt.Errorf("%s: %w", source, err)
		}
		return err
	}
	<-done

	manifest, ok := adapter.Output()
	if !ok {
		_, message := adapter.Status()
		return errors.New(message)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}
