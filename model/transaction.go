package model

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/poiesic/ifcingest/core"
)

// commitBatchSize is the number of entities written per repository call on commit.
const commitBatchSize = 1024

// Transaction stages entity writes against a model.
// Staged entities are visible through the transaction only until Commit.
type Transaction struct {
	mu      sync.Mutex
	model   *Model
	pending map[uint64]*core.Entity
	done    bool
}

func newTransaction(m *Model) *Transaction {
	return &Transaction{
		model:   m,
		pending: make(map[uint64]*core.Entity),
	}
}

// Insert stages e. An entity with the same label replaces the earlier one.
// The entity is copied; later changes to e are not observed.
func (t *Transaction) Insert(e *core.Entity) error {
	if e.Label == 0 {
		return ErrInvalidLabel
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTransactionDone
	}
	t.pending[e.Label] = e.Clone()
	return nil
}

// Get returns the staged entity with the given label, or the committed one.
func (t *Transaction) Get(ctx context.Context, label uint64) (*core.Entity, error) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil, ErrTransactionDone
	}
	if e, ok := t.pending[label]; ok {
		t.mu.Unlock()
		return e.Clone(), nil
	}
	t.mu.Unlock()
	return t.model.Entity(ctx, label)
}

// Has reports whether label is staged or already committed.
func (t *Transaction) Has(ctx context.Context, label uint64) (bool, error) {
	_, err := t.Get(ctx, label)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Len returns the number of staged entities.
func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Commit writes the staged entities to the model in label order and ends
// the transaction. The transaction ends even when the write fails.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTransactionDone
	}
	t.done = true
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	defer t.model.endTransaction(t)

	if err := t.model.checkOpen(); err != nil {
		return err
	}

	labels := slices.Sorted(maps.Keys(pending))
	batch := make([]*core.Entity, 0, min(len(labels), commitBatchSize))
	for chunk := range slices.Chunk(labels, commitBatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = batch[:0]
		for _, label := range chunk {
			batch = append(batch, pending[label])
		}
		if err := t.model.repo.PutEntities(ctx, batch...); err != nil {
			return fmt.Errorf("%w: commit: %w", core.ErrIO, err)
		}
	}
	return nil
}

// Rollback discards the staged entities and ends the transaction.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTransactionDone
	}
	t.mu.Unlock()
	t.discard()
	t.model.endTransaction(t)
	return nil
}

func (t *Transaction) discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.pending = nil
}
