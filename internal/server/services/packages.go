package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/pkgforge/gallery/internal/common"
	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/models"
)

// PackageService runs the per-version lifecycle: a submitted archive becomes
// an unpublished Package pending verification, and verification commits the
// transition to published. Registrations are created on first submission of
// an id.
type PackageService struct {
	registrations entity.Store[*models.PackageRegistration]
}

func NewPackageService(registrations entity.Store[*models.PackageRegistration]) *PackageService {
	return &PackageService{registrations: registrations}
}

// FindByIDAndVersion resolves a package by its caller-supplied id and
// version, both case-insensitive. A miss is common.ErrNotFound: the key may
// be stale or mistyped, so this is a navigational outcome, not a fault.
func (s *PackageService) FindByIDAndVersion(ctx context.Context, id, version string) (*models.Package, error) {
	reg, err := s.findRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("package %s %s: %w", id, version, common.ErrNotFound)
	}

	pkg := reg.FindVersion(version)
	if pkg == nil {
		return nil, fmt.Errorf("package %s %s: %w", id, version, common.ErrNotFound)
	}
	return pkg, nil
}

// CreatePackage turns parsed archive metadata into a new unpublished version
// owned by the submitting user. The (id, version) pair must be unused; a
// duplicate fails with an EntityError carrying the display message and
// persists nothing. Creation and commit are one unit of work.
func (s *PackageService) CreatePackage(ctx context.Context, meta *models.PackageMetadata, owner *models.User) (*models.Package, error) {
	if owner == nil {
		return nil, fmt.Errorf("package submission without an owner: %w", common.ErrIntegrity)
	}

	reg, err := s.findRegistration(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	if reg != nil && reg.FindVersion(meta.Version) != nil {
		return nil, errPackageExists(meta.ID, meta.Version)
	}

	repo := entity.NewRepository(s.registrations)

	isNewRegistration := reg == nil
	if isNewRegistration {
		reg = &models.PackageRegistration{ID: meta.ID}
	}

	pkg := &models.Package{
		Registration:              reg,
		Version:                   meta.Version,
		Title:                     meta.Title,
		Summary:                   meta.Summary,
		Description:               meta.Description,
		Authors:                   meta.Authors,
		Tags:                      meta.Tags,
		ProjectURL:                meta.ProjectURL,
		LicenseURL:                meta.LicenseURL,
		RequiresLicenseAcceptance: meta.RequiresLicenseAcceptance,
		CreatedAt:                 time.Now().UTC(),
	}
	reg.Packages = append(reg.Packages, pkg)

	if isNewRegistration {
		repo.InsertOnCommit(reg)
	} else {
		repo.UpdateOnCommit(reg)
	}

	if err := repo.CommitChanges(ctx); err != nil {
		reg.Packages = reg.Packages[:len(reg.Packages)-1]
		if isConflict(err) {
			// Lost the race with a concurrent submission of the same version;
			// the store's unique index rejected the late commit.
			return nil, errPackageExists(meta.ID, meta.Version)
		}
		return nil, fmt.Errorf("creating package: %w", err)
	}

	return pkg, nil
}

// PublishPackage commits the PendingVerification -> Published transition.
// Publishing an already-published package is an idempotent no-op: the
// original publication timestamp is kept.
func (s *PackageService) PublishPackage(ctx context.Context, pkg *models.Package) error {
	if pkg.IsPublished {
		return nil
	}

	now := time.Now().UTC()
	pkg.IsPublished = true
	pkg.PublishedAt = &now

	repo := entity.NewRepository(s.registrations)
	repo.UpdateOnCommit(pkg.Registration)
	if err := repo.CommitChanges(ctx); err != nil {
		pkg.IsPublished = false
		pkg.PublishedAt = nil
		return fmt.Errorf("publishing package: %w", err)
	}

	return nil
}

// GetLatestVersionOfPublishedPackages returns, per registration, the highest
// published version. Registrations with no published version are omitted.
// Versions are ordered semantically where they parse as semver, falling back
// to a case-insensitive string comparison otherwise.
func (s *PackageService) GetLatestVersionOfPublishedPackages(ctx context.Context) ([]*models.Package, error) {
	regs, err := entity.NewRepository(s.registrations).GetAll().All(ctx)
	if err != nil {
		return nil, err
	}

	var latest []*models.Package
	for _, reg := range regs {
		var best *models.Package
		for _, pkg := range reg.Packages {
			if !pkg.IsPublished {
				continue
			}
			if best == nil || versionLess(best.Version, pkg.Version) {
				best = pkg
			}
		}
		if best != nil {
			latest = append(latest, best)
		}
	}

	return latest, nil
}

func (s *PackageService) findRegistration(ctx context.Context, id string) (*models.PackageRegistration, error) {
	return entity.NewRepository(s.registrations).GetAll().
		Where(func(r *models.PackageRegistration) bool { return strings.EqualFold(r.ID, id) }).
		SingleOrDefault(ctx)
}

func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.LessThan(vb)
	}
	return strings.ToLower(a) < strings.ToLower(b)
}
