package fixtures

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// Apply writes the fixture into the database in one transaction. Existing
// rows are kept; users are updated in place.
func (f *Fixture) Apply(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]int64)
		for _, codename := range f.Permissions() {
			p := model.Permission{Codename: codename}
			if err := tx.Where(model.Permission{Codename: codename}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("permission %q: %w", codename, err)
			}
			permIDs[codename] = p.ID
		}

		groupIDs := make(map[string]int64)
		for _, g := range f.Groups {
			group := model.Group{Name: g.Name}
			if err := tx.Where(model.Group{Name: g.Name}).FirstOrCreate(&group).Error; err != nil {
				return fmt.Errorf("group %q: %w", g.Name, err)
			}
			groupIDs[g.Name] = group.ID

			for _, t := range g.Visible {
				grant := model.GroupTypeVisibility{ItemType: t, GroupID: group.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
					return fmt.Errorf("group %q visibility %s: %w", g.Name, t, err)
				}
			}
			for _, p := range g.Permissions {
				gp := model.GroupPermission{GroupID: group.ID, PermissionID: permIDs[p]}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gp).Error; err != nil {
					return fmt.Errorf("group %q permission %q: %w", g.Name, p, err)
				}
			}
		}

		for _, u := range f.Users {
			user := model.User{
				ID:          u.ID,
				Username:    u.Username,
				IsActive:    u.IsActive(),
				IsSuperuser: u.Superuser,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"username", "is_active", "is_superuser"}),
			}).Create(&user).Error
			if err != nil {
				return fmt.Errorf("user %q: %w", u.Username, err)
			}
			// is_active defaults to true in the schema, so a false value
			// must be written explicitly.
			if !user.IsActive {
				if err := tx.Model(&model.User{}).Where("id = ?", u.ID).Update("is_active", false).Error; err != nil {
					return fmt.Errorf("user %q: %w", u.Username, err)
				}
			}

			for _, g := range u.Groups {
				ug := model.UserGroup{UserID: u.ID, GroupID: groupIDs[g]}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ug).Error; err != nil {
					return fmt.Errorf("user %q group %q: %w", u.Username, g, err)
				}
			}
			for _, p := range u.Permissions {
				up := model.UserPermission{UserID: u.ID, PermissionID: permIDs[p]}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&up).Error; err != nil {
					return fmt.Errorf("user %q permission %q: %w", u.Username, p, err)
				}
			}
		}

		for _, it := range f.Items {
			item := model.Item{ID: it.ID, ItemType: it.Type}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
				return fmt.Errorf("item %d: %w", it.ID, err)
			}
		}

		// Explicit ids bypass the serial sequences.
		for _, table := range []string{"users", "items"} {
			q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))", table, table)
			if err := tx.Exec(q).Error; err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
}
