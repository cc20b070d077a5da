// Package store provides storage abstractions for the lock server.
//
// Interfaces here decouple the reconciliation engine, the session and the
// HTTP endpoints from the database. Implementations live in the gorm
// subpackage (Postgres) and the memory subpackage (tests, development).
//
// # Available Stores
//
//   - LockStore: transactional lock reconciliation primitives (via LockTx)
//   - VisibilityStore: which item types a user may observe
//   - IdentityStore: users with their groups and effective permissions
//   - HealthStore: connectivity checks
//
// # Transactions
//
// Every LockTx operation runs inside the transaction opened by
// LockStore.Transaction. Returning an error from the callback rolls back
// everything the callback did.
//
//	err := locks.Transaction(ctx, func(tx store.LockTx) error {
//	    valid, err := tx.Validate(id, desired)
//	    if err != nil {
//	        return err
//	    }
//	    released, err = tx.Release(id, valid)
//	    return err
//	})
package store
