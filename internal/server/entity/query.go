package entity

import (
	"context"
	"fmt"

	"github.com/pkgforge/gallery/internal/common"
)

// Query is a lazy, composable filter over one aggregate kind. Predicates
// accumulate without touching the store; only the terminal methods (All,
// SingleOrDefault, Count) materialize.
type Query[T Keyed] struct {
	load  func(ctx context.Context) ([]T, error)
	preds []func(T) bool
}

func newQuery[T Keyed](load func(ctx context.Context) ([]T, error)) *Query[T] {
	return &Query[T]{load: load}
}

// Where returns a new query narrowed by pred. The receiver is not modified.
func (q *Query[T]) Where(pred func(T) bool) *Query[T] {
	preds := make([]func(T) bool, 0, len(q.preds)+1)
	preds = append(preds, q.preds...)
	preds = append(preds, pred)
	return &Query[T]{load: q.load, preds: preds}
}

// All materializes every matching entity.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	all, err := q.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	matched := make([]T, 0, len(all))
outer:
	for _, e := range all {
		for _, pred := range q.preds {
			if !pred(e) {
				continue outer
			}
		}
		matched = append(matched, e)
	}

	return matched, nil
}

// SingleOrDefault returns the single matching entity, or the zero value when
// nothing matches. More than one match is a data-integrity fault, not a
// normal miss.
func (q *Query[T]) SingleOrDefault(ctx context.Context) (T, error) {
	var zero T

	matched, err := q.All(ctx)
	if err != nil {
		return zero, err
	}

	switch len(matched) {
	case 0:
		return zero, nil
	case 1:
		return matched[0], nil
	default:
		return zero, fmt.Errorf("expected at most one match, got %d: %w", len(matched), common.ErrIntegrity)
	}
}

// Count materializes only the number of matches.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	matched, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}
