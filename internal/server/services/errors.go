package services

import (
	"errors"

	"github.com/pkgforge/gallery/internal/common"
)

// User-displayable conflict messages. These are surfaced directly on the
// submission/registration forms, so they must stay actionable and free of
// internal detail.

func errUsernameNotAvailable(username string) error {
	return common.NewEntityError("The username %q is not available.", username)
}

func errEmailAddressInUse(emailAddress string) error {
	return common.NewEntityError("The email address %q is already in use.", emailAddress)
}

func errPackageExists(id, version string) error {
	return common.NewEntityError("A package with id %q and version %q already exists.", id, version)
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrConflict)
}
