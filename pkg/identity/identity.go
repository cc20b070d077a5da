package identity

import (
	"context"
	"net"
	"sort"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated principal for a connection.
type Identity struct {
	ID            int64
	Username      string
	Authenticated bool
	Active        bool
	Superuser     bool
	Groups        []int64
	Permissions   map[string]struct{}

	// Request context
	RemoteIP  net.IP
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// New returns an authenticated identity with the given permission codenames.
func New(id int64, username string, active bool, groups []int64, permissions ...string) *Identity {
	i := &Identity{
		ID:            id,
		Username:      username,
		Authenticated: true,
		Active:        active,
		Groups:        groups,
		Permissions:   make(map[string]struct{}, len(permissions)),
	}
	for _, p := range permissions {
		i.Permissions[p] = struct{}{}
	}
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// WithTokenTimes records the validity window of the token the identity was
// established from.
func (i *Identity) WithTokenTimes(issuedAt, expiresAt time.Time) *Identity {
	i.IssuedAt = issuedAt
	i.ExpiresAt = expiresAt
	return i
}

// IsActive reports whether the identity is authenticated and not disabled.
func (i *Identity) IsActive() bool {
	return i != nil && i.Authenticated && i.Active
}

// HasPerms reports whether the identity holds every one of perms. Active
// superusers hold all permissions.
func (i *Identity) HasPerms(perms ...string) bool {
	if !i.IsActive() {
		return false
	}
	if i.Superuser {
		return true
	}
	for _, p := range perms {
		if _, ok := i.Permissions[p]; !ok {
			return false
		}
	}
	return true
}

// PermissionList returns the permission codenames in sorted order.
func (i *Identity) PermissionList() []string {
	if i == nil {
		return nil
	}
	out := make([]string, 0, len(i.Permissions))
	for p := range i.Permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
