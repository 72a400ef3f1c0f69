// Package httpapi exposes the gallery over HTTP: package submission,
// verification, publication, display and listing, plus the login endpoint
// that feeds the identity middleware. Handlers stay thin; every persistence
// and crypto concern is delegated to the services layer.
package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pkgforge/gallery/internal/logging"
	"github.com/pkgforge/gallery/internal/server/models"
)

// UserDirectory is the slice of the users service the HTTP layer needs.
type UserDirectory interface {
	Create(ctx context.Context, username, password, emailAddress string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByUsernameAndPassword(ctx context.Context, username, password string) (*models.User, error)
}

// PackageProvider is the package workflow contract.
type PackageProvider interface {
	CreatePackage(ctx context.Context, meta *models.PackageMetadata, owner *models.User) (*models.Package, error)
	FindByIDAndVersion(ctx context.Context, id, version string) (*models.Package, error)
	PublishPackage(ctx context.Context, pkg *models.Package) error
	GetLatestVersionOfPublishedPackages(ctx context.Context) ([]*models.Package, error)
}

// PackageFileStore persists accepted archive bytes keyed by (id, version).
type PackageFileStore interface {
	SavePackageFile(ctx context.Context, id, version string, file io.Reader) error
	DownloadURL(ctx context.Context, id, version string) (string, error)
}

// ArchiveReader parses archive bytes into package metadata.
type ArchiveReader interface {
	Read(data []byte) (*models.PackageMetadata, error)
}

type Server struct {
	app    *fiber.App
	logger logging.Logger

	users    UserDirectory
	packages PackageProvider
	files    PackageFileStore
	archives ArchiveReader

	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewServer(
	logger logging.Logger,
	users UserDirectory,
	packages PackageProvider,
	files PackageFileStore,
	archives ArchiveReader,
	jwtSecret []byte,
	tokenValidity time.Duration,
) *Server {
	s := &Server{
		logger:        logger,
		users:         users,
		packages:      packages,
		files:         files,
		archives:      archives,
		jwtSecret:     jwtSecret,
		tokenValidity: tokenValidity,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024 * 1024,
	})

	app.Use(s.requestID())
	app.Use(s.requestLogger())

	app.Post("/login", s.handleLogin)
	app.Post("/users", s.handleRegister)

	app.Post("/packages/submit", s.requireAuth, s.handleSubmitPackage)
	app.Get("/packages/verify/:id/:version", s.requireAuth, s.handleShowVerifyPackage)
	app.Post("/packages/verify/:id/:version", s.requireAuth, s.handleVerifyPackage)
	app.Get("/packages", s.handleListPackages)
	app.Get("/packages/:id/:version", s.handleDisplayPackage)

	s.app = app
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }
