package model

// Item is a lockable resource. Its type never changes after creation.
type Item struct {
	ID       int64    `gorm:"column:id;primaryKey"`
	ItemType ItemType `gorm:"column:item_type;not null"`
}

func (Item) TableName() string {
	return "items"
}
