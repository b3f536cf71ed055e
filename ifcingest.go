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

// Package ifcingest wires the model store, the ingest pipeline and its
// metrics into a ready to use engine.
package ifcingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/poiesic/ifcingest/config"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/ingestion"
	"github.com/poiesic/ifcingest/metrics"
	"github.com/poiesic/ifcingest/model"
	"github.com/poiesic/ifcingest/node"
	"github.com/poiesic/ifcingest/store"
)

type Engine struct {
	cfg      *config.Config
	models   *ingestion.ModelStore
	pipeline *ingestion.Pipeline
	metrics  *metrics.Metrics
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger    *slog.Logger
	transform model.PropertyTransform
	progress  io.Writer
}

// WithLogger sets the logger shared by every component. Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTransform sets the property transform applied to every copied product.
func WithTransform(transform model.PropertyTransform) EngineOption {
	return func(o *engineOptions) {
		o.transform = transform
	}
}

// WithProgressOutput sets where copy progress is reported when the config
// enables it. Default is os.Stderr.
func WithProgressOutput(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// NewEngine creates an engine from cfg. A nil cfg uses config.DefaultConfig().
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		logger:   slog.Default(),
		progress: os.Stderr,
	}
	for _, opt := range opts {
		opt(options)
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	models := store.New[*model.Model](store.WithLogger(options.logger))
	m := metrics.New()
	if err := m.WatchStore(models.Len); err != nil {
		return nil, err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithPoolSize(cfg.PoolSize),
		ingestion.WithScratchDir(cfg.ScratchDir),
		ingestion.WithIncludeInverses(cfg.IncludeInverses),
		ingestion.WithTransform(options.transform),
		ingestion.WithRecorder(m),
	}
	if cfg.ProgressInterval > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(options.progress, cfg.ProgressInterval))
	}

	pipeline, err := ingestion.NewPipeline(models, pipelineOpts...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		models:   models,
		pipeline: pipeline,
		metrics:  m,
		logger:   options.logger,
	}, nil
}

func (e *Engine) Config() *config.Config {
	return e.cfg
}

func (e *Engine) Models() *ingestion.ModelStore {
	return e.models
}

func (e *Engine) Pipeline() *ingestion.Pipeline {
	return e.pipeline
}

func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Ingest runs one ingest on the caller's goroutine.
func (e *Engine) Ingest(ctx context.Context, sourcePath string) (core.Manifest, error) {
	return e.pipeline.Ingest(ctx, sourcePath)
}

// NewAdapter creates a node adapter running its ingests on the engine's pipeline
// and trimming the engine's model store on cleanup.
func (e *Engine) NewAdapter(opts ...node.Option) (*node.Adapter, error) {
	opts = append([]node.Option{node.WithLogger(e.logger)}, opts...)
	return node.New(e.pipeline, e.models, opts...)
}

// Close waits for running ingests, then closes every registered model.
// It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.pipeline.Release()
		if err := e.models.CloseAll(); err != nil {
			e.logger.Error("error closing model store", "err", err)
			e.closeErr = err
		}
	})
	return e.closeErr
}
