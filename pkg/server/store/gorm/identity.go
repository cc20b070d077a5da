package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

var _ store.IdentityStore = (*IdentityStore)(nil)

// IdentityStore implements store.IdentityStore using GORM
type IdentityStore struct {
	db *gorm.DB
}

// NewIdentityStore creates a new IdentityStore
func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// LoadIdentity loads a user with its groups and effective permissions.
func (s *IdentityStore) LoadIdentity(ctx context.Context, userID int64) (*identity.Identity, error) {
	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}

	var groups []int64
	err := db.Model(&model.UserGroup{}).
		Where("user_id = ?", userID).
		Order("group_id").
		Pluck("group_id", &groups).Error
	if err != nil {
		return nil, err
	}

	var perms []string
	err = db.Raw(`SELECT p.codename FROM permissions p
JOIN user_permissions up ON up.permission_id = p.id
WHERE up.user_id = ?
UNION
SELECT p.codename FROM permissions p
JOIN group_permissions gp ON gp.permission_id = p.id
JOIN user_groups ug ON ug.group_id = gp.group_id
WHERE ug.user_id = ?`, userID, userID).Scan(&perms).Error
	if err != nil {
		return nil, err
	}

	id := identity.New(user.ID, user.Username, user.IsActive, groups, perms...)
	id.Superuser = user.IsSuperuser
	return id, nil
}
