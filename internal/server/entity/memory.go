package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkgforge/gallery/internal/common"
)

// UniqueIndex declares a store-level uniqueness constraint for the in-memory
// store. Values returns the constrained values an aggregate occupies (an
// aggregate may occupy several, e.g. one per owned version); comparison is
// case-insensitive. Empty strings are not constrained.
type UniqueIndex[T Keyed] struct {
	Name   string
	Values func(e T) []string
}

// MemoryStore is an in-memory Store used by tests and dev mode. Unique
// indexes are enforced inside Apply, so a commit that would violate one fails
// before anything is mutated, mirroring a database unique constraint.
type MemoryStore[T Keyed] struct {
	mu      sync.Mutex
	rows    map[int]T
	nextKey int
	indexes []UniqueIndex[T]
}

func NewMemoryStore[T Keyed](indexes ...UniqueIndex[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		rows:    make(map[int]T),
		nextKey: 1,
		indexes: indexes,
	}
}

func (s *MemoryStore[T]) Load(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityKey() < out[j].EntityKey() })
	return out, nil
}

func (s *MemoryStore[T]) Apply(ctx context.Context, cs Changeset[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before mutating: no partial application.
	for _, e := range cs.Updates {
		if _, ok := s.rows[e.EntityKey()]; !ok {
			return fmt.Errorf("update of unknown entity %d: %w", e.EntityKey(), common.ErrIntegrity)
		}
	}

	deleted := make(map[int]bool, len(cs.Deletes))
	for _, e := range cs.Deletes {
		deleted[e.EntityKey()] = true
	}
	updated := make(map[int]T, len(cs.Updates))
	for _, e := range cs.Updates {
		updated[e.EntityKey()] = e
	}

	for _, idx := range s.indexes {
		seen := make(map[string]bool)

		occupy := func(e T) error {
			for _, v := range idx.Values(e) {
				if v == "" {
					continue
				}
				v = strings.ToLower(v)
				if seen[v] {
					return fmt.Errorf("unique index %s (%s): %w", idx.Name, v, common.ErrConflict)
				}
				seen[v] = true
			}
			return nil
		}

		for key, e := range s.rows {
			if deleted[key] {
				continue
			}
			if u, ok := updated[key]; ok {
				e = u
			}
			if err := occupy(e); err != nil {
				return err
			}
		}
		for _, e := range cs.Inserts {
			if err := occupy(e); err != nil {
				return err
			}
		}
	}

	for _, e := range cs.Deletes {
		delete(s.rows, e.EntityKey())
	}
	for _, e := range cs.Updates {
		s.rows[e.EntityKey()] = e
	}
	for _, e := range cs.Inserts {
		e.SetEntityKey(s.nextKey)
		s.nextKey++
		s.rows[e.EntityKey()] = e
	}

	return nil
}
