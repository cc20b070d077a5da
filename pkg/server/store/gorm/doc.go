// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Lock transactions serialize on item rows: Acquire takes
// SELECT ... FOR UPDATE on the requested items (in id order) before it
// checks for existing active locks, so two transactions racing for the same
// item run one after the other. The partial unique index on
// item_locks(item_id) WHERE locked rejects anything that slips through.
package gorm
