package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

var _ store.VisibilityStore = (*VisibilityStore)(nil)

// VisibilityStore implements store.VisibilityStore using GORM
type VisibilityStore struct {
	db *gorm.DB
}

// NewVisibilityStore creates a new VisibilityStore
func NewVisibilityStore(db *gorm.DB) *VisibilityStore {
	return &VisibilityStore{db: db}
}

// LookupVisibleCategories returns the distinct item types visible to the
// identity's groups.
func (s *VisibilityStore) LookupVisibleCategories(ctx context.Context, id *identity.Identity) ([]model.ItemType, error) {
	var types []model.ItemType
	err := s.db.WithContext(ctx).Raw(`SELECT DISTINCT gtv.item_type FROM group_type_visibilities gtv
JOIN user_groups ug ON ug.group_id = gtv.group_id
WHERE ug.user_id = ?
ORDER BY gtv.item_type`, id.ID).Scan(&types).Error
	return types, err
}
