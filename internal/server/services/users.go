// Package services contains the gallery's business logic: the user directory
// and the package submission/publication workflow, both built over the
// generic entity repository.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkgforge/gallery/internal/server/entity"
	"github.com/pkgforge/gallery/internal/server/models"
)

// Cryptographer is the credential-hashing capability the user directory
// depends on. cryptox.Service is the production implementation.
type Cryptographer interface {
	GenerateSaltedHash(plaintext string) (string, error)
	ValidateSaltedHash(hashed, candidate string) bool
}

const (
	welcomeSubject = "Welcome to the gallery"
	welcomeBody    = "Your account has been created. You can now submit packages."
)

// UsersService creates and looks up user accounts. It owns the uniqueness of
// usernames and email addresses and the password-hash discipline; it holds no
// state of its own beyond the injected store handle.
type UsersService struct {
	users  entity.Store[*models.User]
	crypto Cryptographer
}

func NewUsersService(users entity.Store[*models.User], crypto Cryptographer) *UsersService {
	return &UsersService{users: users, crypto: crypto}
}

// Create registers a new account. The username and email address must both be
// unused (case-insensitively); violations come back as EntityError with a
// displayable message. The user and its queued welcome message are committed
// as one unit of work, so a failed commit leaves no trace of either.
func (s *UsersService) Create(ctx context.Context, username, password, emailAddress string) (*models.User, error) {
	existing, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errUsernameNotAvailable(username)
	}

	existing, err = s.FindByEmailAddress(ctx, emailAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errEmailAddressInUse(emailAddress)
	}

	hashedPassword, err := s.crypto.GenerateSaltedHash(password)
	if err != nil {
		return nil, fmt.Errorf("password hashing: %w", err)
	}

	user := models.NewUser(username, hashedPassword, emailAddress)
	user.Messages = append(user.Messages, &models.EmailMessage{
		Subject: welcomeSubject,
		Body:    welcomeBody,
	})

	repo := entity.NewRepository(s.users)
	repo.InsertOnCommit(user)
	if err := repo.CommitChanges(ctx); err != nil {
		// The store's unique index is the backstop for the check-then-insert
		// race above: a losing commit is reported as the same conflict.
		if isConflict(err) {
			return nil, errUsernameNotAvailable(username)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// FindByUsername resolves an exact (case-insensitive) username, or nil if
// absent. More than one match is a data-integrity fault.
func (s *UsersService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return entity.NewRepository(s.users).GetAll().
		Where(func(u *models.User) bool { return strings.EqualFold(u.Username, username) }).
		SingleOrDefault(ctx)
}

// FindByEmailAddress resolves an exact (case-insensitive) email address, or
// nil if absent.
func (s *UsersService) FindByEmailAddress(ctx context.Context, emailAddress string) (*models.User, error) {
	return entity.NewRepository(s.users).GetAll().
		Where(func(u *models.User) bool { return strings.EqualFold(u.EmailAddress, emailAddress) }).
		SingleOrDefault(ctx)
}

// FindByUsernameAndPassword returns the matching user only when both the
// username resolves and the password validates. A missing user and a wrong
// password are both a nil result, never an error, so callers cannot tell the
// two apart.
func (s *UsersService) FindByUsernameAndPassword(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if !s.crypto.ValidateSaltedHash(user.HashedPassword, password) {
		return nil, nil
	}

	return user, nil
}
