// Package server wires the gallery together: storage, services and the HTTP
// surface, picked from configuration and run until shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkgforge/gallery/internal/cryptox"
	"github.com/pkgforge/gallery/internal/logging"
	"github.com/pkgforge/gallery/internal/server/config"
	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/httpapi"
	"github.com/pkgforge/gallery/internal/server/models"
	"github.com/pkgforge/gallery/internal/server/nupkg"
	"github.com/pkgforge/gallery/internal/server/services"
	"github.com/pkgforge/gallery/internal/server/storage/postgres"
)

type App struct {
	config *config.Config
	logger logging.Logger

	manager *postgres.Manager
	server  *httpapi.Server
}

func NewApp(cfg *config.Config) *App {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	return &App{config: cfg, logger: logger}
}

// userIndexes mirror the database unique indexes for the in-memory store.
func userIndexes() []entity.UniqueIndex[*models.User] {
	return []entity.UniqueIndex[*models.User]{
		{Name: "users_username", Values: func(u *models.User) []string { return []string{u.Username} }},
		{Name: "users_email_address", Values: func(u *models.User) []string { return []string{u.EmailAddress} }},
	}
}

func registrationIndexes() []entity.UniqueIndex[*models.PackageRegistration] {
	return []entity.UniqueIndex[*models.PackageRegistration]{
		{Name: "package_registrations_id", Values: func(r *models.PackageRegistration) []string {
			return []string{r.ID}
		}},
		{Name: "packages_id_version", Values: func(r *models.PackageRegistration) []string {
			values := make([]string, 0, len(r.Packages))
			for _, p := range r.Packages {
				values = append(values, r.ID+" "+p.Version)
			}
			return values
		}},
	}
}

// initStores selects persistence from the configured DSN: an empty DSN means
// the in-memory dev store, anything else is PostgreSQL with migrations applied
// on startup.
func (a *App) initStores(ctx context.Context) (entity.Store[*models.User], entity.Store[*models.PackageRegistration], error) {
	if a.config.DatabaseDSN == "" {
		a.logger.Info(ctx, "no database dsn configured, using in-memory store")
		return entity.NewMemoryStore(userIndexes()...), entity.NewMemoryStore(registrationIndexes()...), nil
	}

	manager, err := postgres.NewManager(a.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init: %w", err)
	}

	if err := manager.RunMigrations(ctx); err != nil {
		return nil, nil, fmt.Errorf("storage init: %w", err)
	}

	a.manager = manager
	return manager.Users(), manager.Registrations(), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	users, registrations, err := a.initStores(ctx)
	if err != nil {
		return err
	}
	if a.manager != nil {
		defer a.manager.Close()
	}

	usersService := services.NewUsersService(users, cryptox.NewService())
	packageService := services.NewPackageService(registrations)
	fileService := services.NewPackageFileService(a.config)

	a.server = httpapi.NewServer(
		a.logger,
		usersService,
		packageService,
		fileService,
		nupkg.NewReader(),
		[]byte(a.config.SecretKey),
		a.config.TokenValidityDuration,
	)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logger.Info(ctx, "starting http server", "addr", a.config.EndpointAddr)
		if err := a.server.Run(ctx, a.config.EndpointAddr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		a.logger.Info(context.Background(), "shutting down")
		wg.Wait()
		return nil
	}
}
