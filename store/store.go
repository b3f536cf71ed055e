package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/ifcingest/core"
)

// Store maps storage keys to open handles and remembers insertion order.
// A Store owns every handle added to it and closes it on removal.
// Handle Close must be idempotent.
type Store[H io.Closer] struct {
	mu      sync.Mutex
	handles map[core.StorageKey]H
	order   []core.StorageKey
	logger  *slog.Logger
}

// Option configures a Store.
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

// New returns an empty Store.
func New[H io.Closer](opts ...Option) *Store[H] {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return &Store[H]{
		handles: make(map[core.StorageKey]H),
		logger:  o.logger,
	}
}

// Add registers handle under key. If key is already registered the store is
// unchanged and core.ErrDuplicateKey is returned.
func (s *Store[H]) Add(key core.StorageKey, handle H) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[key]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateKey, key)
	}
	s.handles[key] = handle
	s.order = append(s.order, key)
	s.logger.Debug("model registered", "key", key, "size", len(s.order))
	return nil
}

// Get returns the handle registered under key.
func (s *Store[H]) Get(key core.StorageKey) (H, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.handles[key]
	if !ok {
		var zero H
		return zero, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return handle, nil
}

// Remove unregisters key and closes its handle. The entry is removed even
// when closing fails; the close error is returned wrapped in core.ErrIO.
func (s *Store[H]) Remove(key core.StorageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.handles[key]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	s.unregister(key)
	return s.close(key, handle)
}

// RetainNewestOnly closes and removes every handle except the most recently
// added one. It does nothing when the store holds at most one handle.
func (s *Store[H]) RetainNewestOnly() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) <= 1 {
		return nil
	}
	stale := s.order[:len(s.order)-1]
	s.order = s.order[len(s.order)-1:]

	var errs []error
	for _, key := range stale {
		handle := s.handles[key]
		delete(s.handles, key)
		if err := s.close(key, handle); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Debug("store trimmed", "removed", len(stale), "kept", s.order[0])
	return errors.Join(errs...)
}

// CloseAll closes and removes every handle.
func (s *Store[H]) CloseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, key := range s.order {
		if err := s.close(key, s.handles[key]); err != nil {
			errs = append(errs, err)
		}
	}
	s.handles = make(map[core.StorageKey]H)
	s.order = nil
	return errors.Join(errs...)
}

// Len returns the number of registered handles.
func (s *Store[H]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Keys returns the registered keys in insertion order.
func (s *Store[H]) Keys() []core.StorageKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

func (s *Store[H]) unregister(key core.StorageKey) {
	delete(s.handles, key)
	s.order = slices.DeleteFunc(s.order, func(k core.StorageKey) bool { return k == key })
}

func (s *Store[H]) close(key core.StorageKey, handle H) error {
	if err := handle.Close(); err != nil {
		s.logger.Warn("failed to close model", "key", key, "err", err)
		return fmt.Errorf("%w: close %s: %w", core.ErrIO, key, err)
	}
	return nil
}
