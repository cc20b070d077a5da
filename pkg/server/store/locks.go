package store

import (
	"context"
	"time"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// Lock is a lock row together with the type of the item it covers
type Lock struct {
	ID        int64
	ItemID    int64
	ItemType  model.ItemType
	UserID    int64
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockTx exposes the lock primitives available inside one transaction.
// Results are ordered by item id.
type LockTx interface {
	// Validate keeps the ids that exist and whose item type is visible to
	// the identity through its groups. Unknown or invisible ids are dropped.
	Validate(id *identity.Identity, itemIDs []int64) ([]int64, error)

	// CurrentActiveLocks returns the identity's active locks.
	CurrentActiveLocks(id *identity.Identity) ([]Lock, error)

	// Release deactivates the identity's active locks on items not in keep
	// and returns them.
	Release(id *identity.Identity, keep []int64) ([]Lock, error)

	// Acquire creates active locks owned by the identity for every item in
	// itemIDs that nobody holds an active lock on, and returns the new rows.
	Acquire(id *identity.Identity, itemIDs []int64) ([]Lock, error)

	// ReleaseAll deactivates all of the identity's active locks and returns
	// them.
	ReleaseAll(id *identity.Identity) ([]Lock, error)
}

// LockStore abstracts persisted lock state
type LockStore interface {
	// Transaction runs fn in one atomic unit. Concurrent transactions that
	// touch the same item are serialized.
	Transaction(ctx context.Context, fn func(tx LockTx) error) error

	// ListActiveLocks returns active locks on items of the given types.
	ListActiveLocks(ctx context.Context, types []model.ItemType) ([]Lock, error)

	// ClearLocks deactivates the active locks of userID, or of every user
	// when userID is 0, and returns them.
	ClearLocks(ctx context.Context, userID int64) ([]Lock, error)
}
