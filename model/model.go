package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/step"
	"github.com/poiesic/ifcingest/storage"
	"github.com/poiesic/ifcingest/storage/badger"
)

const (
	// loadBatchSize is the number of decoded entities written per repository call.
	loadBatchSize = 1024

	originatingSystem = "ifcingest"
)

// Model is an open IFC model container.
type Model struct {
	mu      sync.Mutex
	path    string
	header  step.Header
	backend *badger.Backend
	repo    storage.EntityRepository
	txn     *Transaction
	closed  bool
	logger  *slog.Logger
}

// Option configures a Model.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newModel(path string, header step.Header, opts []Option) (*Model, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	repo, backend, err := badger.NewMemoryEntityRepository()
	if err != nil {
		return nil, fmt.Errorf("%w: entity store: %w", core.ErrIO, err)
	}

	return &Model{
		path:    path,
		header:  header,
		backend: backend,
		repo:    repo,
		logger:  o.logger,
	}, nil
}

// Open loads the STEP file at path into a new model.
// Failures wrap core.ErrIO; malformed files additionally wrap step.ErrSyntax.
func Open(ctx context.Context, path string, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrIO, path, err)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	m, err := newModel(abs, step.Header{}, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	batch := make([]*core.Entity, 0, loadBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.repo.PutEntities(ctx, batch...)
		batch = batch[:0]
		return err
	}

	header, err := step.Decode(f, func(e *core.Entity) error {
		batch = append(batch, e)
		if len(batch) == loadBatchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIO, path, err)
	}
	m.header = header

	m.logger.Debug("model opened",
		"path", abs,
		"schema", header.Schema(),
		"duration", time.Since(start))
	return m, nil
}

// Create returns an empty model declaring the given schema identifier.
// The model has no path until it is saved.
func Create(schemaID string, opts ...Option) (*Model, error) {
	header := step.Header{
		Description:         []string{"ViewDefinition [CoordinationView]"},
		ImplementationLevel: "2;1",
		OriginatingSystem:   originatingSystem,
		Schemas:             []string{schemaID},
	}
	return newModel("", header, opts)
}

// Schema returns the upper-cased schema identifier declared by the model.
func (m *Model) Schema() string {
	return m.header.Schema()
}

// Path returns the absolute path the model was opened from or last saved to.
func (m *Model) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Header returns a copy of the model's file header.
func (m *Model) Header() step.Header {
	h := m.header
	h.Description = append([]string(nil), h.Description...)
	h.Author = append([]string(nil), h.Author...)
	h.Organization = append([]string(nil), h.Organization...)
	h.Schemas = append([]string(nil), h.Schemas...)
	return h
}

func (m *Model) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Entity returns the committed entity with the given label.
// Returns core.ErrNotFound when the model has no such entity.
func (m *Model) Entity(ctx context.Context, label uint64) (*core.Entity, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	e, err := m.repo.GetEntity(ctx, label)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: entity #%d", core.ErrNotFound, label)
	}
	return e, err
}

// ForEach calls fn for every committed entity accepted by filter, in
// ascending label order. A nil filter accepts every entity.
func (m *Model) ForEach(ctx context.Context, filter func(*core.Entity) bool, fn func(*core.Entity) error) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.repo.ForEachEntity(ctx, func(e *core.Entity) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if filter != nil && !filter(e) {
			return nil
		}
		return fn(e)
	})
}

// Count returns the number of committed entities.
func (m *Model) Count(ctx context.Context) (int, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	return m.repo.Count(ctx)
}

// Referrers returns the labels of committed entities referencing label.
func (m *Model) Referrers(ctx context.Context, label uint64) ([]uint64, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	return m.repo.Referrers(ctx, label)
}

// BeginTransaction starts a transaction. Only one transaction may be active.
func (m *Model) BeginTransaction() (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.txn != nil {
		return nil, ErrTransactionActive
	}
	m.txn = newTransaction(m)
	return m.txn, nil
}

// endTransaction detaches txn from the model.
func (m *Model) endTransaction(txn *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txn == txn {
		m.txn = nil
	}
}

// SaveAs writes the committed entities to a new STEP file at path.
// The file must not exist. On failure no partial file is left behind.
// On success the model's path becomes the absolute form of path.
func (m *Model) SaveAs(ctx context.Context, path string) (err error) {
	if err := m.checkOpen(); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", core.ErrIO, abs, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			if rmErr := os.Remove(abs); rmErr != nil && !os.IsNotExist(rmErr) {
				m.logger.Warn("failed to remove partial file", "path", abs, "err", rmErr)
			}
		}
	}()

	header := m.Header()
	header.Name = filepath.Base(abs)
	if header.TimeStamp == "" {
		header.TimeStamp = time.Now().UTC().Format("2006-01-02T15:04:05")
	}
	if header.PreprocessorVersion == "" {
		header.PreprocessorVersion = originatingSystem
	}

	w := step.NewWriter(f)
	if err = w.WriteHeader(header); err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrIO, abs, err)
	}
	err = m.repo.ForEachEntity(ctx, func(e *core.Entity) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.WriteEntity(e)
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrIO, abs, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrIO, abs, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", core.ErrIO, abs, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", core.ErrIO, abs, err)
	}

	m.mu.Lock()
	m.path = abs
	m.mu.Unlock()

	m.logger.Debug("model saved", "path", abs)
	return nil
}

// Close releases the model. An active transaction is rolled back.
// Closing twice is a no-op.
func (m *Model) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	txn := m.txn
	m.txn = nil
	m.mu.Unlock()

	if txn != nil {
		txn.discard()
	}
	return errors.Join(m.repo.Close(), m.backend.Close())
}
