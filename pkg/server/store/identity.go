package store

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
)

// ErrUserNotFound is returned when a user id does not exist
var ErrUserNotFound = errors.New("user not found")

// IdentityStore loads users as identities
type IdentityStore interface {
	// LoadIdentity returns an authenticated identity for userID with its
	// groups and the union of its own and its groups' permissions.
	LoadIdentity(ctx context.Context, userID int64) (*identity.Identity, error)
}
