package authenticator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidCredentials is returned when credentials are missing, malformed
// or fail verification.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator defines the interface for all authenticators
type Authenticator interface {
	// Name returns the authenticator name (e.g. "authn-jwt")
	Name() string

	// Authenticate validates credentials and returns the authenticated user
	Authenticate(ctx context.Context, input Input) (*Result, error)
}

// Input contains the input for authentication
type Input struct {
	Credentials []byte
	ClientIP    string
}

// Result identifies the authenticated user and the validity window of the
// credentials used.
type Result struct {
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Registry holds named authenticators. Authenticate tries the enabled ones in
// registration order.
type Registry struct {
	mu             sync.RWMutex
	order          []string
	authenticators map[string]Authenticator
}

// NewRegistry creates a new authenticator registry
func NewRegistry(auths ...Authenticator) *Registry {
	r := &Registry{authenticators: make(map[string]Authenticator)}
	for _, a := range auths {
		r.Register(a)
	}
	return r
}

// Register adds an authenticator to the registry
func (r *Registry) Register(auth Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authenticators[auth.Name()]; !ok {
		r.order = append(r.order, auth.Name())
	}
	r.authenticators[auth.Name()] = auth
}

// Get returns an authenticator by name
func (r *Registry) Get(name string) (Authenticator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auth, ok := r.authenticators[name]
	return auth, ok
}

// Installed returns all installed authenticator names
func (r *Registry) Installed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Name implements Authenticator.
func (r *Registry) Name() string {
	return "registry"
}

// Authenticate returns the first successful result. When every
// authenticator rejects the input the error wraps ErrInvalidCredentials.
func (r *Registry) Authenticate(ctx context.Context, input Input) (*Result, error) {
	r.mu.RLock()
	auths := make([]Authenticator, 0, len(r.order))
	for _, name := range r.order {
		auths = append(auths, r.authenticators[name])
	}
	r.mu.RUnlock()

	if len(auths) == 0 {
		return nil, fmt.Errorf("%w: no authenticators installed", ErrInvalidCredentials)
	}

	var lastErr error
	for _, a := range auths {
		res, err := a.Authenticate(ctx, input)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, ErrInvalidCredentials) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, lastErr)
}
