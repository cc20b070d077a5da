package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

// Ensure LockStore implements store.LockStore
var _ store.LockStore = (*LockStore)(nil)

const selectLocks = `SELECT il.id, il.item_id, i.item_type, il.user_id, il.locked, il.created_at, il.updated_at
FROM item_locks il JOIN items i ON i.id = il.item_id`

// LockStore implements store.LockStore using GORM
type LockStore struct {
	db *gorm.DB
}

// NewLockStore creates a new LockStore
func NewLockStore(db *gorm.DB) *LockStore {
	return &LockStore{db: db}
}

// Transaction runs fn inside a database transaction.
func (s *LockStore) Transaction(ctx context.Context, fn func(tx store.LockTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&lockTx{db: tx})
	})
}

// ListActiveLocks returns active locks on items of the given types.
func (s *LockStore) ListActiveLocks(ctx context.Context, types []model.ItemType) ([]store.Lock, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var locks []store.Lock
	err := s.db.WithContext(ctx).
		Raw(selectLocks+` WHERE il.locked AND i.item_type IN ? ORDER BY il.item_id`, types).
		Scan(&locks).Error
	return locks, err
}

// ClearLocks deactivates the active locks of userID, or of everyone when
// userID is 0.
func (s *LockStore) ClearLocks(ctx context.Context, userID int64) ([]store.Lock, error) {
	var cleared []store.Lock
	err := s.Transaction(ctx, func(tx store.LockTx) error {
		var err error
		cleared, err = tx.(*lockTx).deactivate(userID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

type lockTx struct {
	db *gorm.DB
}

func (t *lockTx) Validate(id *identity.Identity, itemIDs []int64) ([]int64, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var valid []int64
	err := t.db.Raw(`SELECT DISTINCT i.id FROM items i
JOIN group_type_visibilities gtv ON gtv.item_type = i.item_type
JOIN user_groups ug ON ug.group_id = gtv.group_id
WHERE ug.user_id = ? AND i.id IN ?
ORDER BY i.id`, id.ID, itemIDs).Scan(&valid).Error
	return valid, err
}

func (t *lockTx) CurrentActiveLocks(id *identity.Identity) ([]store.Lock, error) {
	var locks []store.Lock
	err := t.db.Raw(selectLocks+` WHERE il.user_id = ? AND il.locked ORDER BY il.item_id`, id.ID).
		Scan(&locks).Error
	return locks, err
}

func (t *lockTx) Release(id *identity.Identity, keep []int64) ([]store.Lock, error) {
	return t.deactivate(id.ID, keep)
}

func (t *lockTx) ReleaseAll(id *identity.Identity) ([]store.Lock, error) {
	return t.deactivate(id.ID, nil)
}

// deactivate flips active locks to false. userID 0 matches every user;
// items in keep are left alone.
func (t *lockTx) deactivate(userID int64, keep []int64) ([]store.Lock, error) {
	query := selectLocks + ` WHERE il.locked`
	var args []interface{}
	if userID != 0 {
		query += ` AND il.user_id = ?`
		args = append(args, userID)
	}
	if len(keep) > 0 {
		query += ` AND il.item_id NOT IN ?`
		args = append(args, keep)
	}
	query += ` ORDER BY il.item_id FOR UPDATE OF il`

	var locks []store.Lock
	if err := t.db.Raw(query, args...).Scan(&locks).Error; err != nil {
		return nil, err
	}
	if len(locks) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(locks))
	for i, l := range locks {
		ids[i] = l.ID
	}
	now := time.Now().UTC()
	err := t.db.Model(&model.ItemLock{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"locked": false, "updated_at": now}).Error
	if err != nil {
		return nil, err
	}

	for i := range locks {
		locks[i].Locked = false
		locks[i].UpdatedAt = now
	}
	return locks, nil
}

func (t *lockTx) Acquire(id *identity.Identity, itemIDs []int64) ([]store.Lock, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	var items []model.Item
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", itemIDs).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var taken []int64
	err = t.db.Model(&model.ItemLock{}).
		Where("item_id IN ? AND locked", itemIDs).
		Pluck("item_id", &taken).Error
	if err != nil {
		return nil, err
	}
	held := make(map[int64]struct{}, len(taken))
	for _, itemID := range taken {
		held[itemID] = struct{}{}
	}

	var rows []model.ItemLock
	types := make(map[int64]model.ItemType, len(items))
	for _, item := range items {
		if _, ok := held[item.ID]; ok {
			continue
		}
		types[item.ID] = item.ItemType
		rows = append(rows, model.ItemLock{ItemID: item.ID, UserID: id.ID, Locked: true})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := t.db.Create(&rows).Error; err != nil {
		return nil, err
	}

	acquired := make([]store.Lock, len(rows))
	for i, r := range rows {
		acquired[i] = store.Lock{
			ID:        r.ID,
			ItemID:    r.ItemID,
			ItemType:  types[r.ItemID],
			UserID:    r.UserID,
			Locked:    true,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return acquired, nil
}
