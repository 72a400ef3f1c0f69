// Package postgres implements the entity.Store contracts over PostgreSQL
// (pgx stdlib driver). The schema's unique indexes are the primary defense
// against the read-then-write race on uniqueness checks: a losing commit
// fails with a conflict error instead of half-applying.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkgforge/gallery/internal/common"
	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/migrations"
	"github.com/pkgforge/gallery/internal/server/models"
)

type Manager struct {
	db *sql.DB
}

func NewManager(dsn string) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &Manager{db: db}, nil
}

func (m *Manager) Conn() *sql.DB { return m.db }

func (m *Manager) Close() error { return m.db.Close() }

func (m *Manager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (m *Manager) Users() entity.Store[*models.User] {
	return &userStore{db: m.db}
}

func (m *Manager) Registrations() entity.Store[*models.PackageRegistration] {
	return &registrationStore{db: m.db}
}

// mapDBError surfaces unique-violation errors as common.ErrConflict so the
// services can tell a racing duplicate from a dead database.
func mapDBError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, common.ErrConflict)
	}
	return err
}
