package store

import "context"

// HealthStore backs GET /health.
type HealthStore interface {
	// CheckConnectivity returns an error when the lock database cannot be
	// reached. The memory store never fails.
	CheckConnectivity(ctx context.Context) error
}
