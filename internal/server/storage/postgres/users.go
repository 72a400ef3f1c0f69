package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkgforge/gallery/internal/dbx"
	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/models"
)

// userStore persists the User aggregate (user row plus its queued messages).
type userStore struct {
	db *sql.DB
}

func (s *userStore) Load(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, username, email_address, hashed_password, created_at
		 FROM users ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	byKey := make(map[int]*models.User)
	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.Key, &u.Username, &u.EmailAddress, &u.HashedPassword, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		byKey[u.Key] = u
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	msgRows, err := s.db.QueryContext(ctx,
		`SELECT key, user_key, subject, body FROM email_messages ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		m := &models.EmailMessage{}
		var userKey int
		if err := msgRows.Scan(&m.Key, &userKey, &m.Subject, &m.Body); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if u, ok := byKey[userKey]; ok {
			u.Messages = append(u.Messages, m)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func (s *userStore) Apply(ctx context.Context, cs entity.Changeset[*models.User]) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, u := range cs.Deletes {
			// email_messages go with the user via ON DELETE CASCADE
			if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE key = $1`, u.Key); err != nil {
				return err
			}
		}

		for _, u := range cs.Updates {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET username = $2, email_address = $3, hashed_password = $4
				 WHERE key = $1`,
				u.Key, u.Username, u.EmailAddress, u.HashedPassword); err != nil {
				return err
			}
		}

		for _, u := range cs.Inserts {
			var key int
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO users (username, email_address, hashed_password, created_at)
				 VALUES ($1, $2, $3, $4)
				 RETURNING key`,
				u.Username, u.EmailAddress, u.HashedPassword, u.CreatedAt).Scan(&key); err != nil {
				return err
			}
			u.SetEntityKey(key)

			for _, m := range u.Messages {
				if err := tx.QueryRowContext(ctx,
					`INSERT INTO email_messages (user_key, subject, body)
					 VALUES ($1, $2, $3)
					 RETURNING key`,
					key, m.Subject, m.Body).Scan(&m.Key); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return mapDBError(err)
	}
	return nil
}
