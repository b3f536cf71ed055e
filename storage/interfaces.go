package storage

import (
	"context"

	"github.com/poiesic/ifcingest/core"
)

// EntityRepository stores the entity instances of one model container.
// Implementations must be thread-safe and support concurrent access.
type EntityRepository interface {
	// PutEntities stores entities. Existing entities with the same label are
	// replaced and their inverse reference index entries are rebuilt.
	// Large writes may be split across several commits.
	PutEntities(ctx context.Context, entities ...*core.Entity) error

	// GetEntity retrieves a single entity by label.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, label uint64) (*core.Entity, error)

	// ForEachEntity calls fn for every stored entity in ascending label order.
	// Iteration stops at the first error returned by fn.
	ForEachEntity(ctx context.Context, fn func(*core.Entity) error) error

	// Referrers returns the labels of entities that reference label, ascending.
	Referrers(ctx context.Context, label uint64) ([]uint64, error)

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int, error)

	// Close releases the repository. Closing twice is a no-op.
	Close() error
}
