// Package entity implements the generic persistence gateway the rest of the
// server is built on: a type-parameterized repository exposing CRUD plus a
// unit of work, decoupled from the backing store.
//
// A Repository is cheap and scoped to one logical request: services construct
// one per operation over a long-lived Store, stage changes on it, and flush
// them atomically with CommitChanges. The Store is the only shared state.
package entity

import (
	"context"
	"fmt"

	"github.com/pkgforge/gallery/internal/common"
)

// Keyed is implemented by every persisted aggregate root. The integer key is
// a store-assigned surrogate, distinct from business identifiers.
type Keyed interface {
	EntityKey() int
	SetEntityKey(k int)
}

// Changeset is one unit of work: the staged inserts, updates and deletes to
// apply atomically.
type Changeset[T Keyed] struct {
	Inserts []T
	Updates []T
	Deletes []T
}

func (c Changeset[T]) Empty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// Store is a backing store for one aggregate kind. Implementations must apply
// a changeset all-or-nothing and surface uniqueness violations as errors
// matching common.ErrConflict.
type Store[T Keyed] interface {
	// Load materializes the current set of aggregates.
	Load(ctx context.Context) ([]T, error)

	// Apply flushes a changeset atomically. Inserted entities get their
	// surrogate keys assigned before Apply returns.
	Apply(ctx context.Context, cs Changeset[T]) error
}

// Repository is the persistence contract used by the services layer.
type Repository[T Keyed] interface {
	// Get returns the entity with the given surrogate key. A missing key is
	// common.ErrNotFound; more than one match is common.ErrIntegrity.
	Get(ctx context.Context, key int) (T, error)

	// GetAll returns a lazy, composable query over all entities. Nothing is
	// materialized until a terminal method runs, so callers narrow first.
	GetAll() *Query[T]

	// InsertOnCommit stages an insert and returns the entity's key, which is
	// not finalized until CommitChanges.
	InsertOnCommit(e T) int

	// UpdateOnCommit stages a rewrite of an already-stored aggregate.
	UpdateOnCommit(e T)

	// DeleteOnCommit stages a removal.
	DeleteOnCommit(e T)

	// CommitChanges applies all staged changes atomically: either everything
	// lands or nothing does.
	CommitChanges(ctx context.Context) error
}

type repository[T Keyed] struct {
	store  Store[T]
	staged Changeset[T]
}

// NewRepository returns a Repository over the given store. One repository
// serves one unit of work; it must not be shared across requests.
func NewRepository[T Keyed](store Store[T]) Repository[T] {
	return &repository[T]{store: store}
}

func (r *repository[T]) Get(ctx context.Context, key int) (T, error) {
	var zero T

	all, err := r.store.Load(ctx)
	if err != nil {
		return zero, fmt.Errorf("load: %w", err)
	}

	var found []T
	for _, e := range all {
		if e.EntityKey() == key {
			found = append(found, e)
		}
	}

	switch len(found) {
	case 0:
		return zero, fmt.Errorf("entity %d: %w", key, common.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return zero, fmt.Errorf("entity %d matched %d records: %w", key, len(found), common.ErrIntegrity)
	}
}

func (r *repository[T]) GetAll() *Query[T] {
	return newQuery(r.store.Load)
}

func (r *repository[T]) InsertOnCommit(e T) int {
	r.staged.Inserts = append(r.staged.Inserts, e)
	return e.EntityKey()
}

func (r *repository[T]) UpdateOnCommit(e T) {
	r.staged.Updates = append(r.staged.Updates, e)
}

func (r *repository[T]) DeleteOnCommit(e T) {
	r.staged.Deletes = append(r.staged.Deletes, e)
}

func (r *repository[T]) CommitChanges(ctx context.Context) error {
	if r.staged.Empty() {
		return nil
	}

	if err := r.store.Apply(ctx, r.staged); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.staged = Changeset[T]{}
	return nil
}
