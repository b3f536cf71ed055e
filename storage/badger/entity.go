package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository on top of backend.
// The repository does not own the backend.
func NewEntityRepository(backend *Backend) *EntityRepository {
	return &EntityRepository{backend: backend}
}

// Close is a no-op; the backend is released by its owner.
func (r *EntityRepository) Close() error {
	return nil
}

// PutEntities stores entities and maintains the inverse reference index.
func (r *EntityRepository) PutEntities(ctx context.Context, entities ...*core.Entity) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(entities) == 0 {
		return nil
	}

	// Collect stale index entries of entities being replaced
	stale := make(map[uint64][]uint64)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			old, err := r.readEntity(tx, entity.Label)
			if err != nil {
				return err
			}
			if old != nil {
				stale[old.Label] = old.References()
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	return r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for label, refs := range stale {
			for _, target := range refs {
				if err := wb.Delete(makeInverseKey(target, label)); err != nil {
					return err
				}
			}
		}
		for _, entity := range entities {
			if err := wb.Set(makeEntityKey(entity.Label), storage.MarshalEntity(entity)); err != nil {
				return err
			}
			for _, target := range entity.References() {
				if err := wb.Set(makeInverseKey(target, entity.Label), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetEntity retrieves a single entity by label.
func (r *EntityRepository) GetEntity(ctx context.Context, label uint64) (*core.Entity, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readEntity(tx, label)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ForEachEntity iterates entities in ascending label order.
func (r *EntityRepository) ForEachEntity(ctx context.Context, fn func(*core.Entity) error) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entity *core.Entity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(entity); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Referrers returns the labels of entities that reference label.
func (r *EntityRepository) Referrers(ctx context.Context, label uint64) ([]uint64, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var sources []uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialInverseKey(label)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			sources = append(sources, sourceFromInverseKey(iter.Item().Key()))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.Sort(sources)
	return slices.Compact(sources), nil
}

// Count returns the number of stored entities.
func (r *EntityRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.scanKeys(func(uint64) { count++ })
	return count, err
}

func (r *EntityRepository) scanKeys(fn func(label uint64)) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(entityPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			fn(labelFromEntityKey(iter.Item().Key()))
		}
		return nil
	}, false)
}

// readEntity reads an entity inside tx. Returns nil, nil when absent.
func (r *EntityRepository) readEntity(tx *badger.Txn, label uint64) (*core.Entity, error) {
	item, err := tx.Get(makeEntityKey(label))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
