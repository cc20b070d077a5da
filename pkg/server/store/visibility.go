package store

import (
	"context"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// VisibilityStore looks up visibility grants
type VisibilityStore interface {
	// LookupVisibleCategories returns the distinct item types granted to any
	// of the identity's groups, ascending.
	LookupVisibleCategories(ctx context.Context, id *identity.Identity) ([]model.ItemType, error)
}
