package model

import "time"

// ItemLock is one user's claim on one item. Releasing a lock sets Locked to
// false; rows are kept as history.
type ItemLock struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	ItemID    int64     `gorm:"column:item_id;not null"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Locked    bool      `gorm:"column:locked;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ItemLock) TableName() string {
	return "item_locks"
}
