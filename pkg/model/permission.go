package model

// Capability codenames a user needs to open a lock connection
const (
	PermViewItemLock   = "view_itemlock"
	PermAddItemLock    = "add_itemlock"
	PermChangeItemLock = "change_itemlock"
	PermViewItem       = "view_item"
)

// Permission is a named capability
type Permission struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	Codename string `gorm:"column:codename;uniqueIndex;not null"`
}

func (Permission) TableName() string {
	return "permissions"
}

type UserPermission struct {
	UserID       int64 `gorm:"column:user_id;primaryKey"`
	PermissionID int64 `gorm:"column:permission_id;primaryKey"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// GroupPermission grants a capability to every member of a group
type GroupPermission struct {
	GroupID      int64 `gorm:"column:group_id;primaryKey"`
	PermissionID int64 `gorm:"column:permission_id;primaryKey"`
}

func (GroupPermission) TableName() string {
	return "group_permissions"
}
