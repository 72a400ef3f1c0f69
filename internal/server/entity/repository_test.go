package entity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/gallery/internal/common"
)

type widget struct {
	key  int
	Name string
}

func (w *widget) EntityKey() int     { return w.key }
func (w *widget) SetEntityKey(k int) { w.key = k }

func nameIndex() UniqueIndex[*widget] {
	return UniqueIndex[*widget]{
		Name:   "widgets_name",
		Values: func(w *widget) []string { return []string{w.Name} },
	}
}

func TestRepository_InsertIsInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[*widget]()
	repo := NewRepository(store)

	repo.InsertOnCommit(&widget{Name: "a"})

	n, err := repo.GetAll().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "staged insert must not be visible before commit")

	require.NoError(t, repo.CommitChanges(ctx))

	n, err = repo.GetAll().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepository_GetByKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[*widget]()
	repo := NewRepository(store)

	w := &widget{Name: "a"}
	repo.InsertOnCommit(w)
	require.NoError(t, repo.CommitChanges(ctx))
	require.NotZero(t, w.EntityKey(), "commit must assign a surrogate key")

	got, err := repo.Get(ctx, w.EntityKey())
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_CommitIsAtomicOnConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nameIndex())

	repo := NewRepository[*widget](store)
	repo.InsertOnCommit(&widget{Name: "taken"})
	require.NoError(t, repo.CommitChanges(ctx))

	// One fine insert and one conflicting insert in the same unit of work:
	// neither may land.
	repo2 := NewRepository[*widget](store)
	repo2.InsertOnCommit(&widget{Name: "fresh"})
	repo2.InsertOnCommit(&widget{Name: "TAKEN"})

	err := repo2.CommitChanges(ctx)
	assert.ErrorIs(t, err, common.ErrConflict)

	n, err := NewRepository[*widget](store).GetAll().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed commit must not partially apply")
}

func TestRepository_DeleteOnCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[*widget]()

	repo := NewRepository[*widget](store)
	w := &widget{Name: "doomed"}
	repo.InsertOnCommit(w)
	require.NoError(t, repo.CommitChanges(ctx))

	repo2 := NewRepository[*widget](store)
	repo2.DeleteOnCommit(w)
	require.NoError(t, repo2.CommitChanges(ctx))

	_, err := repo2.Get(ctx, w.EntityKey())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_UpdateFreesUniqueValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nameIndex())

	repo := NewRepository[*widget](store)
	w := &widget{Name: "old"}
	repo.InsertOnCommit(w)
	require.NoError(t, repo.CommitChanges(ctx))

	w.Name = "new"
	repo2 := NewRepository[*widget](store)
	repo2.UpdateOnCommit(w)
	repo2.InsertOnCommit(&widget{Name: "old"})
	require.NoError(t, repo2.CommitChanges(ctx), "updated row must release its old index value")
}

func TestRepository_UpdateOfUnknownEntityIsIntegrityFault(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore[*widget]())

	repo.UpdateOnCommit(&widget{key: 42, Name: "ghost"})
	err := repo.CommitChanges(ctx)
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestQuery_WhereComposesLazily(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[*widget]()
	repo := NewRepository(store)
	for _, n := range []string{"apple", "apricot", "banana"} {
		repo.InsertOnCommit(&widget{Name: n})
	}
	require.NoError(t, repo.CommitChanges(ctx))

	base := repo.GetAll().Where(func(w *widget) bool { return strings.HasPrefix(w.Name, "ap") })
	narrowed := base.Where(func(w *widget) bool { return strings.HasSuffix(w.Name, "cot") })

	all, err := base.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "narrowing must not mutate the base query")

	one, err := narrowed.SingleOrDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "apricot", one.Name)
}

func TestQuery_SingleOrDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[*widget]()
	repo := NewRepository(store)
	repo.InsertOnCommit(&widget{Name: "dup"})
	repo.InsertOnCommit(&widget{Name: "dup"})
	require.NoError(t, repo.CommitChanges(ctx))

	missing, err := repo.GetAll().Where(func(w *widget) bool { return w.Name == "nope" }).SingleOrDefault(ctx)
	require.NoError(t, err, "zero matches is a normal miss")
	assert.Nil(t, missing)

	_, err = repo.GetAll().Where(func(w *widget) bool { return w.Name == "dup" }).SingleOrDefault(ctx)
	require.Error(t, err, "multiple matches violate the uniqueness expectation")
	assert.True(t, errors.Is(err, common.ErrIntegrity))
}
