package models

import "time"

const (
	DefaultFolderColor = "#6B7280"
	DefaultFolderIcon  = "folder"
)

// Folder 用于组织会话，支持通过 ParentID 嵌套。
type Folder struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	ParentID    *string   `gorm:"size:36;index" json:"parent_id"`
	Color       string    `gorm:"size:16;not null;default:'#6B7280'" json:"color"`
	Icon        string    `gorm:"size:64;not null;default:'folder'" json:"icon"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	IsArchived  bool      `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 以下字段只在树形视图中计算，不落库。
	Children  []*Folder `gorm:"-" json:"children,omitempty"`
	ChatCount int64     `gorm:"-" json:"chat_count"`
}
