package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserStatus 定义了用户账户的生命周期状态。
type UserStatus string

const (
	StatusActive      UserStatus = "active"      // 账号正常
	StatusSuspended   UserStatus = "suspended"   // 账号被暂停
	StatusDeactivated UserStatus = "deactivated" // 账号已停用
)

// UserRole 是用户在应用内的角色。
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
)

// User 代表系统中的一个用户账户，同时承担个人资料 (profile) 的字段。
type User struct {
	gorm.Model

	Email     string `gorm:"uniqueIndex;size:255;not null"`
	Username  string `gorm:"size:255;not null"`
	FullName  string `gorm:"size:255"`
	AvatarURL string `gorm:"size:1024"`
	Password  string `gorm:"size:255" json:"-"` // 存储哈希后的密码，json中忽略

	Role        UserRole   `gorm:"type:varchar(20);default:'user';not null"`
	Status      UserStatus `gorm:"type:varchar(20);default:'active';not null"`
	LastLoginAt *time.Time
	Settings    datatypes.JSON
}

func (User) TableName() string {
	return "users"
}
