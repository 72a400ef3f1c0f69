package models

import (
	"strings"
	"time"
)

// PackageRegistration is the identity anchor for a package name. It owns all
// versions submitted under that id; deleting a registration deletes them.
type PackageRegistration struct {
	Key int

	// ID is the package name. Immutable, globally unique case-insensitively.
	ID string

	Packages []*Package
}

func (r *PackageRegistration) EntityKey() int     { return r.Key }
func (r *PackageRegistration) SetEntityKey(k int) { r.Key = k }

// FindVersion returns the version matching case-insensitively, or nil.
func (r *PackageRegistration) FindVersion(version string) *Package {
	for _, p := range r.Packages {
		if strings.EqualFold(p.Version, version) {
			return p
		}
	}
	return nil
}

// Package is one version of a registration. The (registration id, version)
// pair is unique across the store. Immutable once published.
type Package struct {
	Key int

	// Registration is the owning registration, set whenever a Package is
	// loaded or created. Never nil outside construction.
	Registration *PackageRegistration

	Version     string
	Title       string
	Summary     string
	Description string
	Authors     []string
	Tags        string
	ProjectURL  string
	LicenseURL  string

	RequiresLicenseAcceptance bool

	IsPublished bool
	PublishedAt *time.Time

	CreatedAt time.Time
}

// FlattenedAuthors renders the ordered author list for display.
func (p *Package) FlattenedAuthors() string {
	return strings.Join(p.Authors, ", ")
}

// PackageMetadata is what the archive reader extracts from an uploaded
// package. It carries everything needed to create a Package.
type PackageMetadata struct {
	ID          string
	Version     string
	Title       string
	Summary     string
	Description string
	Authors     []string
	Tags        string
	ProjectURL  string
	LicenseURL  string

	RequiresLicenseAcceptance bool
}
