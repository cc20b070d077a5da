// Package authz decides whether an identity may open a lock connection.
package authz

import (
	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// DefaultRequiredPermissions is the capability set a user needs to connect.
var DefaultRequiredPermissions = []string{
	model.PermViewItemLock,
	model.PermAddItemLock,
	model.PermChangeItemLock,
	model.PermViewItem,
}

// Gate checks identities against a fixed capability set.
type Gate struct {
	required []string
}

// NewGate creates a gate requiring the given permissions. An empty list means
// DefaultRequiredPermissions.
func NewGate(required ...string) *Gate {
	if len(required) == 0 {
		required = DefaultRequiredPermissions
	}
	r := make([]string, len(required))
	copy(r, required)
	return &Gate{required: r}
}

// Authorize denies nil, unauthenticated and inactive identities, and those
// missing any required permission.
func (g *Gate) Authorize(id *identity.Identity) bool {
	return id.HasPerms(g.required...)
}

// Required returns a copy of the required permission set.
func (g *Gate) Required() []string {
	out := make([]string, len(g.required))
	copy(out, g.required)
	return out
}
