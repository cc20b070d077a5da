// Package reconcile turns a connection's declared set of desired items into
// lock acquisitions and releases.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

// ErrPersistence wraps any store failure. The transaction that hit it was
// rolled back.
var ErrPersistence = errors.New("lock persistence failed")

var tracer = otel.Tracer("github.com/doodlesbykumbi/ws-lock/pkg/reconcile")

// Engine runs reconciliation passes against a LockStore
type Engine struct {
	store store.LockStore
}

// NewEngine returns an Engine backed by s
func NewEngine(s store.LockStore) *Engine {
	return &Engine{store: s}
}

// Reconcile makes the identity's active locks match desired as far as
// visibility and other holders allow. It returns the locks released
// followed by the locks acquired, each ordered by item id. Items already
// held stay held and are not reported. Items held by someone else are
// skipped without error.
func (e *Engine) Reconcile(ctx context.Context, id *identity.Identity, desired []int64) ([]store.Lock, error) {
	ctx, span := tracer.Start(ctx, "lock.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", id.ID),
		attribute.Int("lock.desired", len(desired)),
	)

	var changes []store.Lock
	err := e.store.Transaction(ctx, func(tx store.LockTx) error {
		validated, err := tx.Validate(id, desired)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}

		released, err := tx.Release(id, validated)
		if err != nil {
			return fmt.Errorf("release: %w", err)
		}

		current, err := tx.CurrentActiveLocks(id)
		if err != nil {
			return fmt.Errorf("current locks: %w", err)
		}
		held := make(map[int64]bool, len(current))
		for _, l := range current {
			held[l.ItemID] = true
		}
		var wanted []int64
		for _, itemID := range validated {
			if !held[itemID] {
				wanted = append(wanted, itemID)
			}
		}

		var acquired []store.Lock
		if len(wanted) > 0 {
			acquired, err = tx.Acquire(id, wanted)
			if err != nil {
				return fmt.Errorf("acquire: %w", err)
			}
		}

		changes = append(released, acquired...)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	span.SetAttributes(attribute.Int("lock.changes", len(changes)))
	return changes, nil
}

// ReleaseAll deactivates every active lock the identity holds and returns
// the released rows.
func (e *Engine) ReleaseAll(ctx context.Context, id *identity.Identity) ([]store.Lock, error) {
	ctx, span := tracer.Start(ctx, "lock.release_all")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", id.ID))

	var released []store.Lock
	err := e.store.Transaction(ctx, func(tx store.LockTx) error {
		var err error
		released, err = tx.ReleaseAll(id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release all failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	span.SetAttributes(attribute.Int("lock.changes", len(released)))
	return released, nil
}
