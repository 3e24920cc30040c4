package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChatType 区分会话的使用场景。
type ChatType string

const (
	ChatGeneral  ChatType = "general"
	ChatSearch   ChatType = "search"
	ChatCanvas   ChatType = "canvas"
	ChatDocument ChatType = "document"
)

// Valid 判断会话类型是否合法。
func (t ChatType) Valid() bool {
	switch t {
	case ChatGeneral, ChatSearch, ChatCanvas, ChatDocument:
		return true
	}
	return false
}

const DefaultChatTitle = "New Chat"

// Chat 是一次会话。删除只做归档。
type Chat struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	FolderID      *string        `gorm:"size:36;index" json:"folder_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Description   *string        `gorm:"type:text" json:"description"`
	Type          ChatType       `gorm:"type:varchar(20);not null;default:'general'" json:"type"`
	IsPinned      bool           `gorm:"not null;default:false" json:"is_pinned"`
	IsArchived    bool           `gorm:"not null;default:false;index" json:"is_archived"`
	IsShared      bool           `gorm:"not null;default:false" json:"is_shared"`
	ShareToken    *string        `gorm:"size:64;uniqueIndex" json:"share_token"`
	Settings      datatypes.JSON `json:"settings"`
	Metadata      datatypes.JSON `json:"metadata"`
	ModelName     string         `gorm:"size:128" json:"model_name"`
	MessageCount  int            `gorm:"not null;default:0" json:"message_count"`
	LastMessageAt *time.Time     `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
