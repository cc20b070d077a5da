package model

// GroupTypeVisibility lets members of a group observe lock events for one
// item type. (item_type, group_id) is unique.
type GroupTypeVisibility struct {
	ID       int64    `gorm:"column:id;primaryKey"`
	ItemType ItemType `gorm:"column:item_type;not null;uniqueIndex:group_type_visibility_uniq"`
	GroupID  int64    `gorm:"column:group_id;not null;uniqueIndex:group_type_visibility_uniq"`
}

func (GroupTypeVisibility) TableName() string {
	return "group_type_visibilities"
}
