package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pkgforge/gallery/internal/common"
	"github.com/pkgforge/gallery/internal/server/auth"
	"github.com/pkgforge/gallery/internal/server/models"
	"github.com/pkgforge/gallery/internal/server/nupkg"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var creds credentials
	if err := c.BodyParser(&creds); err != nil {
		return validationError(c, "username and password are required")
	}

	user, err := s.users.FindByUsernameAndPassword(c.UserContext(), creds.Username, creds.Password)
	if err != nil {
		return s.renderError(c, err)
	}
	if user == nil {
		// Unknown username and wrong password produce the same answer.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid username or password"})
	}

	token, err := auth.GenerateToken(user.Username, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}

type registration struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	EmailAddress string `json:"emailAddress"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var reg registration
	if err := c.BodyParser(&reg); err != nil {
		return validationError(c, "username, password and emailAddress are required")
	}
	if reg.Username == "" || reg.Password == "" || reg.EmailAddress == "" {
		return validationError(c, "username, password and emailAddress are required")
	}

	user, err := s.users.Create(c.UserContext(), reg.Username, reg.Password, reg.EmailAddress)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"username":     user.Username,
		"emailAddress": user.EmailAddress,
	})
}

func (s *Server) handleSubmitPackage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	fileHeader, err := c.FormFile("packageFile")
	if err != nil {
		return validationError(c, "A package file is required.")
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), common.PackageFileExtension) {
		return validationError(c, fmt.Sprintf("The package file must be a %s file.", common.PackageFileExtension))
	}

	currentUser, err := s.users.FindByUsername(ctx, currentUsername(c))
	if err != nil {
		return s.renderError(c, err)
	}
	if currentUser == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown user"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return validationError(c, "The package file could not be read.")
	}
	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		return validationError(c, "The package file could not be read.")
	}

	meta, err := s.archives.Read(data)
	if err != nil {
		if errors.Is(err, nupkg.ErrInvalidArchive) {
			return validationError(c, "The uploaded file is not a valid package archive.")
		}
		return s.renderError(c, err)
	}

	pkg, err := s.packages.CreatePackage(ctx, meta, currentUser)
	if err != nil {
		return s.renderError(c, err)
	}

	if err := s.files.SavePackageFile(ctx, meta.ID, meta.Version, bytes.NewReader(data)); err != nil {
		return s.renderError(c, err)
	}

	return c.Redirect(verifyPath(pkg), fiber.StatusFound)
}

func (s *Server) handleShowVerifyPackage(c *fiber.Ctx) error {
	pkg, err := s.packages.FindByIDAndVersion(c.UserContext(), c.Params("id"), c.Params("version"))
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":                        pkg.Registration.ID,
		"version":                   pkg.Version,
		"title":                     pkg.Title,
		"summary":                   pkg.Summary,
		"description":               pkg.Description,
		"requiresLicenseAcceptance": pkg.RequiresLicenseAcceptance,
		"licenseUrl":                pkg.LicenseURL,
		"tags":                      pkg.Tags,
		"projectUrl":                pkg.ProjectURL,
	})
}

func (s *Server) handleVerifyPackage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	pkg, err := s.packages.FindByIDAndVersion(ctx, c.Params("id"), c.Params("version"))
	if err != nil {
		return s.renderError(c, err)
	}

	if err := s.packages.PublishPackage(ctx, pkg); err != nil {
		return s.renderError(c, err)
	}

	return c.Redirect(displayPath(pkg), fiber.StatusFound)
}

func (s *Server) handleDisplayPackage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	pkg, err := s.packages.FindByIDAndVersion(ctx, c.Params("id"), c.Params("version"))
	if err != nil {
		return s.renderError(c, err)
	}

	resp := fiber.Map{
		"id":          pkg.Registration.ID,
		"version":     pkg.Version,
		"description": pkg.Description,
		"authors":     pkg.FlattenedAuthors(),
	}

	if url, err := s.files.DownloadURL(ctx, pkg.Registration.ID, pkg.Version); err == nil {
		resp["downloadUrl"] = url
	} else {
		s.logger.Warn(ctx, "presigning download url failed", "error", err.Error())
	}

	return c.JSON(resp)
}

func (s *Server) handleListPackages(c *fiber.Ctx) error {
	latest, err := s.packages.GetLatestVersionOfPublishedPackages(c.UserContext())
	if err != nil {
		return s.renderError(c, err)
	}

	type listEntry struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	}

	entries := make([]listEntry, 0, len(latest))
	for _, pkg := range latest {
		entries = append(entries, listEntry{ID: pkg.Registration.ID, Version: pkg.Version})
	}

	return c.JSON(entries)
}

func verifyPath(pkg *models.Package) string {
	return fmt.Sprintf("/packages/verify/%s/%s", pkg.Registration.ID, pkg.Version)
}

func displayPath(pkg *models.Package) string {
	return fmt.Sprintf("/packages/%s/%s", pkg.Registration.ID, pkg.Version)
}

// validationError re-presents a user-input problem on the submission form.
// Nothing has been persisted when it is returned.
func validationError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// renderError maps service errors onto the response taxonomy: conflicts carry
// their display message, a miss on a caller-supplied key is a plain 404, and
// anything else is a generic failure with no internal detail leaked.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	var entityErr *common.EntityError
	if errors.As(err, &entityErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": entityErr.Error()})
	}

	if errors.Is(err, common.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
