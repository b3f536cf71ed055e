package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/model"
	"github.com/poiesic/ifcingest/schema"
	"github.com/poiesic/ifcingest/step"
	"github.com/poiesic/ifcingest/store"
)

// maxSaveAttempts bounds retries when a destination name is taken between
// generation and creation.
const maxSaveAttempts = 8

// ModelStore is the store ingested copies are registered in.
type ModelStore = store.Store[*model.Model]

// Recorder receives pipeline measurements.
type Recorder interface {
	// IngestStarted is called when an ingest begins.
	IngestStarted()
	// IngestFinished is called once per ingest with the number of entities
	// copied. variant is VariantUnknown when the schema was never detected.
	IngestFinished(variant core.SchemaVariant, copied int, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) IngestStarted()                                               {}
func (noopRecorder) IngestFinished(core.SchemaVariant, int, time.Duration, error) {}

// Pipeline orchestrates ingesting source files into normalized copies.
type Pipeline struct {
	store            *ModelStore
	pool             *ants.Pool
	scratchDir       string
	transform        model.PropertyTransform
	includeInverses  bool
	progress         io.Writer
	progressInterval int
	random           func(n int) int
	recorder         Recorder
	logger           *slog.Logger
	inFlight         sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for asynchronous ingests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := newPool(size, p.logger)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithScratchDir sets the directory normalized copies are written to.
// Default is os.TempDir(). The directory is created if missing.
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir == "" {
			dir = os.TempDir()
		}
		p.scratchDir = dir
		return nil
	}
}

// WithTransform sets the hook every copied attribute passes through.
// The identifier of rooted entities never reaches the hook.
// Default is model.IdentityTransform.
func WithTransform(transform model.PropertyTransform) Option {
	return func(p *Pipeline) error {
		if transform == nil {
			transform = model.IdentityTransform
		}
		p.transform = transform
		return nil
	}
}

// WithIncludeInverses also copies the entities referencing each copied product.
func WithIncludeInverses(include bool) Option {
	return func(p *Pipeline) error {
		p.includeInverses = include
		return nil
	}
}

// WithProgress reports copy progress to w every interval scanned entities.
// A nil writer disables reporting, which is the default.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.progressInterval = interval
		return nil
	}
}

// WithRandom sets the source of destination name numbers. random(n) must
// return a value in [0, n). Default is math/rand/v2.IntN.
func WithRandom(random func(n int) int) Option {
	return func(p *Pipeline) error {
		if random == nil {
			random = rand.IntN
		}
		p.random = random
		return nil
	}
}

// WithRecorder sets the measurement sink. Default discards measurements.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) error {
		if recorder == nil {
			recorder = noopRecorder{}
		}
		p.recorder = recorder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline registering copies in models.
func NewPipeline(models *ModelStore, opts ...Option) (*Pipeline, error) {
	if models == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		store:      models,
		scratchDir: os.TempDir(),
		transform:  model.IdentityTransform,
		random:     rand.IntN,
		recorder:   noopRecorder{},
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.pool == nil {
		poolSize := max(runtime.NumCPU()/2, 1)
		pool, err := newPool(poolSize, p.logger)
		if err != nil {
			return nil, err
		}
		p.pool = pool
	}

	if err := os.MkdirAll(p.scratchDir, 0o755); err != nil {
		p.Release()
		return nil, fmt.Errorf("%w: scratch directory: %w", core.ErrIO, err)
	}

	return p, nil
}

func newPool(size int, logger *slog.Logger) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithPanicHandler(func(r any) {
		logger.Error("panic in ingest worker", "panic", r)
	}))
}

// ScratchDir returns the directory normalized copies are written to.
func (p *Pipeline) ScratchDir() string {
	return p.scratchDir
}

// Ingest normalizes the file at sourcePath, registers the copy in the model
// store and returns the identifier manifest of the registered copy.
//
// Invalid input fails with core.ErrInvalidInput before anything is written.
// A failure after registration leaves the registration in place.
func (p *Pipeline) Ingest(ctx context.Context, sourcePath string) (core.Manifest, error) {
	if err := core.ValidateSourcePath(sourcePath); err != nil {
		return core.Manifest{}, err
	}

	start := time.Now()
	p.recorder.IngestStarted()

	run := &ingestRun{pipeline: p, source: sourcePath, variant: core.VariantUnknown}
	defer func() {
		if r := recover(); r != nil {
			p.recorder.IngestFinished(run.variant, run.copied, time.Since(start), fmt.Errorf("ingest panicked: %v", r))
			panic(r)
		}
	}()
	manifest, err := run.execute(ctx)

	elapsed := time.Since(start)
	p.recorder.IngestFinished(run.variant, run.copied, elapsed, err)
	if err != nil {
		p.logger.Error("ingest failed", "source", sourcePath, "err", err)
		return core.Manifest{}, err
	}

	p.logger.Info("ingest complete",
		"source", sourcePath,
		"key", manifest.Key(),
		"variant", manifest.Variant(),
		"elements", manifest.Len(),
		"duration", elapsed)
	return manifest, nil
}

// ingestRun carries the state of one Ingest call.
type ingestRun struct {
	pipeline *Pipeline
	source   string
	variant  core.SchemaVariant
	strategy schema.CopyStrategy
	copied   int
}

func (r *ingestRun) execute(ctx context.Context) (core.Manifest, error) {
	p := r.pipeline

	dest, err := r.normalize(ctx)
	if err != nil {
		return core.Manifest{}, err
	}

	key, err := r.register(ctx, dest)
	if err != nil {
		return core.Manifest{}, err
	}

	return r.manifest(ctx, key, p.store)
}

// normalize copies the in-scope entities of the source into a new container
// and saves it. It returns the path of the saved container. Both the source
// and the transient container are released before it returns.
func (r *ingestRun) normalize(ctx context.Context) (string, error) {
	p := r.pipeline

	if err := r.detect(); err != nil {
		return "", err
	}
	schemaID, err := schema.SchemaFor(r.variant)
	if err != nil {
		return "", err
	}

	src, err := model.Open(ctx, r.source, model.WithLogger(p.logger))
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := model.Create(schemaID, model.WithLogger(p.logger))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if err := r.copyProducts(ctx, src, dst); err != nil {
		return "", err
	}

	dest, err := r.save(ctx, dst)
	if err != nil {
		return "", err
	}
	if err := dst.Close(); err != nil {
		p.logger.Warn("failed to release transient model", "err", err)
	}
	if err := src.Close(); err != nil {
		p.logger.Warn("failed to release source model", "source", r.source, "err", err)
	}
	return dest, nil
}

// detect reads only the header of the source, so an unsupported container
// is rejected before its data section is loaded.
func (r *ingestRun) detect() error {
	f, err := os.Open(r.source)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", core.ErrIO, r.source, err)
	}
	defer f.Close()

	header, err := step.DecodeHeader(f)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", core.ErrIO, r.source, err)
	}
	r.variant, err = schema.VariantOf(header)
	if err != nil {
		return err
	}
	r.strategy, err = schema.CopyStrategyFor(r.variant)
	return err
}

func (r *ingestRun) copyProducts(ctx context.Context, src, dst *model.Model) error {
	p := r.pipeline

	var tracker *ProgressTracker
	if p.progress != nil {
		total, err := src.Count(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		tracker = NewProgressTracker(p.progress, filepath.Base(r.source), total, p.progressInterval)
		tracker.Start()
	}

	txn, err := dst.BeginTransaction()
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}

	opts := model.CopyOptions{
		IncludeInverses: p.includeInverses,
		Preserve:        r.strategy.Preserve,
	}
	err = src.ForEach(ctx, nil, func(e *core.Entity) error {
		if tracker != nil {
			tracker.Increment(1)
		}
		if !r.strategy.Filter(e) {
			return nil
		}
		return txn.InsertCopy(ctx, src, e, p.transform, opts)
	})
	if err != nil {
		txn.Rollback()
		return fmt.Errorf("copy %s: %w", r.source, err)
	}

	r.copied = txn.Len()
	if err := txn.Commit(ctx); err != nil {
		return err
	}
	if tracker != nil {
		tracker.Finish()
	}

	p.logger.Debug("products copied", "source", r.source, "entities", r.copied, "variant", r.variant)
	return nil
}

// save persists dst under a fresh destination name. A name taken between
// generation and creation is replaced by a new one.
func (r *ingestRun) save(ctx context.Context, dst *model.Model) (string, error) {
	p := r.pipeline

	var lastErr error
	for range maxSaveAttempts {
		dest, err := p.destinationPath(r.source)
		if err != nil {
			return "", err
		}
		lastErr = dst.SaveAs(ctx, dest)
		if lastErr == nil {
			return dst.Path(), nil
		}
		if !errors.Is(lastErr, fs.ErrExist) {
			return "", lastErr
		}
		p.logger.Debug("destination taken, retrying", "path", dest)
	}
	return "", lastErr
}

// register opens the saved container and hands it to the model store.
// The destination file is removed when registration does not happen.
func (r *ingestRun) register(ctx context.Context, dest string) (core.StorageKey, error) {
	p := r.pipeline

	handle, err := model.Open(ctx, dest, model.WithLogger(p.logger))
	if err != nil {
		r.discard(dest)
		return "", err
	}

	key := core.StorageKey(handle.Path())
	if err := p.store.Add(key, handle); err != nil {
		handle.Close()
		if errors.Is(err, core.ErrDuplicateKey) {
			// Destinations are created exclusively, so the key was registered
			// by someone else; the file belongs to that registration.
			p.logger.Error("destination already registered", "key", key, "err", err)
			return "", err
		}
		r.discard(dest)
		return "", err
	}
	return key, nil
}

func (r *ingestRun) discard(dest string) {
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.pipeline.logger.Warn("failed to remove destination", "path", dest, "err", err)
	}
}

// manifest enumerates the identifiers of the registered copy in label order.
func (r *ingestRun) manifest(ctx context.Context, key core.StorageKey, models *ModelStore) (core.Manifest, error) {
	handle, err := models.Get(key)
	if err != nil {
		return core.Manifest{}, err
	}

	var ids []core.ElementID
	err = handle.ForEach(ctx, r.strategy.Filter, func(e *core.Entity) error {
		if id, ok := r.strategy.Identity(e); ok {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return core.Manifest{}, fmt.Errorf("%w: enumerate %s: %w", core.ErrIO, key, err)
	}
	return core.NewManifest(key, r.variant, ids), nil
}

// Release waits for in-flight asynchronous ingests, then frees the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.inFlight.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
