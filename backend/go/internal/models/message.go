package models

import (
	"time"

	"gorm.io/datatypes"
)

// FileAttachment 是随消息上传的文件，Content 为已提取的文本。
type FileAttachment struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

// Message 是会话中的一条消息。
type Message struct {
	ID           string                             `gorm:"primaryKey;size:36" json:"id"`
	ChatID       string                             `gorm:"size:36;not null;index" json:"chat_id"`
	Role         SpeakerRole                        `gorm:"type:varchar(16);not null" json:"role"`
	Content      string                             `gorm:"type:text;not null" json:"content"`
	Attachments  datatypes.JSONSlice[FileAttachment] `json:"attachments"`
	Metadata     datatypes.JSON                     `json:"metadata"`
	ModelName    *string                            `gorm:"size:128" json:"model_name"`
	TokensInput  int                                `gorm:"not null;default:0" json:"tokens_input"`
	TokensOutput int                                `gorm:"not null;default:0" json:"tokens_output"`
	IsEdited     bool                               `gorm:"not null;default:false" json:"is_edited"`
	IsDeleted    bool                               `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}
