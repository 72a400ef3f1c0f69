// Package nupkg parses uploaded .nupkg archives (zip files carrying a nuspec
// manifest) into package metadata. It is a thin adapter in front of the
// submission workflow: the workflow only consumes the parsed metadata and
// never touches the archive bytes itself.
package nupkg

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/pkgforge/gallery/internal/server/models"
)

var ErrInvalidArchive = errors.New("not a valid package archive")

type nuspec struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		ID                        string `xml:"id"`
		Version                   string `xml:"version"`
		Title                     string `xml:"title"`
		Summary                   string `xml:"summary"`
		Description               string `xml:"description"`
		Authors                   string `xml:"authors"`
		Tags                      string `xml:"tags"`
		ProjectURL                string `xml:"projectUrl"`
		LicenseURL                string `xml:"licenseUrl"`
		RequiresLicenseAcceptance bool   `xml:"requiresLicenseAcceptance"`
	} `xml:"metadata"`
}

// Reader satisfies the httpapi.ArchiveReader contract.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

func (Reader) Read(data []byte) (*models.PackageMetadata, error) {
	return Read(data)
}

// Read extracts the package metadata from archive bytes. The archive must be
// a readable zip with exactly one top-level .nuspec entry declaring at least
// an id and a version.
func Read(data []byte) (*models.PackageMetadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	var manifest *zip.File
	for _, f := range zr.File {
		if path.Dir(f.Name) != "." {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), ".nuspec") {
			if manifest != nil {
				return nil, fmt.Errorf("%w: multiple manifests", ErrInvalidArchive)
			}
			manifest = f
		}
	}
	if manifest == nil {
		return nil, fmt.Errorf("%w: missing manifest", ErrInvalidArchive)
	}

	rc, err := manifest.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer rc.Close()

	var spec nuspec
	if err := xml.NewDecoder(rc).Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	meta := spec.Metadata
	if strings.TrimSpace(meta.ID) == "" || strings.TrimSpace(meta.Version) == "" {
		return nil, fmt.Errorf("%w: manifest is missing id or version", ErrInvalidArchive)
	}

	return &models.PackageMetadata{
		ID:                        strings.TrimSpace(meta.ID),
		Version:                   strings.TrimSpace(meta.Version),
		Title:                     meta.Title,
		Summary:                   meta.Summary,
		Description:               meta.Description,
		Authors:                   splitAuthors(meta.Authors),
		Tags:                      meta.Tags,
		ProjectURL:                meta.ProjectURL,
		LicenseURL:                meta.LicenseURL,
		RequiresLicenseAcceptance: meta.RequiresLicenseAcceptance,
	}, nil
}

// splitAuthors keeps the manifest's author order.
func splitAuthors(s string) []string {
	parts := strings.Split(s, ",")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}
