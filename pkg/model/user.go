package model

import "time"

// User is a principal that can connect and hold locks
type User struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Username    string    `gorm:"column:username;uniqueIndex;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	IsSuperuser bool      `gorm:"column:is_superuser;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

type Group struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}

func (Group) TableName() string {
	return "groups"
}

// UserGroup is a membership of a user in a group
type UserGroup struct {
	UserID  int64 `gorm:"column:user_id;primaryKey"`
	GroupID int64 `gorm:"column:group_id;primaryKey"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}
