// Package visibility resolves which item categories a connection may
// observe.
package visibility

import (
	"context"
	"fmt"
	"sort"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

// Resolver maps identities to the categories granted to their groups
type Resolver struct {
	store store.VisibilityStore
}

// NewResolver returns a Resolver backed by s
func NewResolver(s store.VisibilityStore) *Resolver {
	return &Resolver{store: s}
}

// ResolveSubscriptions returns the distinct categories visible to id in
// ascending order. Nil, unauthenticated and inactive identities see nothing.
func (r *Resolver) ResolveSubscriptions(ctx context.Context, id *identity.Identity) ([]model.ItemType, error) {
	if !id.IsActive() {
		return nil, nil
	}

	types, err := r.store.LookupVisibleCategories(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible categories for user %d: %w", id.ID, err)
	}

	seen := make(map[model.ItemType]bool, len(types))
	out := make([]model.ItemType, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
