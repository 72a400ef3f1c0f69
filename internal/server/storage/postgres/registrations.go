package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkgforge/gallery/internal/dbx"
	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/models"
)

// registrationStore persists the PackageRegistration aggregate: the
// registration row plus every version submitted under it.
type registrationStore struct {
	db *sql.DB
}

func (s *registrationStore) Load(ctx context.Context) ([]*models.PackageRegistration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, id FROM package_registrations ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	byKey := make(map[int]*models.PackageRegistration)
	var regs []*models.PackageRegistration
	for rows.Next() {
		r := &models.PackageRegistration{}
		if err := rows.Scan(&r.Key, &r.ID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		byKey[r.Key] = r
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	pkgRows, err := s.db.QueryContext(ctx,
		`SELECT key, registration_key, version, title, summary, description, authors,
		        tags, project_url, license_url, requires_license_acceptance,
		        is_published, published_at, created_at
		 FROM packages ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer pkgRows.Close()

	for pkgRows.Next() {
		p := &models.Package{}
		var regKey int
		var authors []byte
		if err := pkgRows.Scan(&p.Key, &regKey, &p.Version, &p.Title, &p.Summary,
			&p.Description, &authors, &p.Tags, &p.ProjectURL, &p.LicenseURL,
			&p.RequiresLicenseAcceptance, &p.IsPublished, &p.PublishedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(authors, &p.Authors); err != nil {
			return nil, fmt.Errorf("authors decode error: %w", err)
		}
		if r, ok := byKey[regKey]; ok {
			p.Registration = r
			r.Packages = append(r.Packages, p)
		}
	}
	if err := pkgRows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return regs, nil
}

func (s *registrationStore) Apply(ctx context.Context, cs entity.Changeset[*models.PackageRegistration]) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, r := range cs.Deletes {
			// packages cascade with the registration
			if _, err := tx.ExecContext(ctx, `DELETE FROM package_registrations WHERE key = $1`, r.Key); err != nil {
				return err
			}
		}

		for _, r := range cs.Inserts {
			var key int
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO package_registrations (id) VALUES ($1) RETURNING key`,
				r.ID).Scan(&key); err != nil {
				return err
			}
			r.SetEntityKey(key)

			if err := upsertPackages(ctx, tx, r); err != nil {
				return err
			}
		}

		for _, r := range cs.Updates {
			if err := upsertPackages(ctx, tx, r); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// upsertPackages writes the versions owned by a registration: new versions
// (key 0) are inserted, existing ones rewritten.
func upsertPackages(ctx context.Context, tx dbx.DBTX, r *models.PackageRegistration) error {
	for _, p := range r.Packages {
		authors, err := json.Marshal(p.Authors)
		if err != nil {
			return fmt.Errorf("authors encode error: %w", err)
		}

		if p.Key == 0 {
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO packages (registration_key, version, title, summary, description,
				                       authors, tags, project_url, license_url,
				                       requires_license_acceptance, is_published, published_at, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				 RETURNING key`,
				r.Key, p.Version, p.Title, p.Summary, p.Description, authors, p.Tags,
				p.ProjectURL, p.LicenseURL, p.RequiresLicenseAcceptance,
				p.IsPublished, p.PublishedAt, p.CreatedAt).Scan(&p.Key); err != nil {
				return err
			}
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE packages SET title = $2, summary = $3, description = $4, authors = $5,
			        tags = $6, project_url = $7, license_url = $8,
			        requires_license_acceptance = $9, is_published = $10, published_at = $11
			 WHERE key = $1`,
			p.Key, p.Title, p.Summary, p.Description, authors, p.Tags,
			p.ProjectURL, p.LicenseURL, p.RequiresLicenseAcceptance,
			p.IsPublished, p.PublishedAt); err != nil {
			return err
		}
	}
	return nil
}
