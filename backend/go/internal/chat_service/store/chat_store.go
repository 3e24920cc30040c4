package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"

	"github.com/google/uuid"
)

// FolderFilter 限定会话列表所在的文件夹。
// 为 nil 时不过滤；Root 为 true 时只返回不在任何文件夹中的会话。
type FolderFilter struct {
	Root     bool
	FolderID string
}

// ChatUpdate 是会话的部分更新，nil 字段保持不变。
type ChatUpdate struct {
	Title       *string
	Description *string
	SetFolder   bool    // 为 true 时用 FolderID 覆盖文件夹，FolderID 为 nil 表示移出文件夹
	FolderID    *string
	IsPinned    *bool
}

// ListChats 返回用户未归档的会话，按最近消息时间倒序，没有消息的排在最后。
func (s *Store) ListChats(ctx context.Context, userID uint, filter *FolderFilter) ([]models.Chat, error) {
	q := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_archived = ?", userID, false)
	if filter != nil {
		if filter.Root {
			q = q.Where("folder_id IS NULL")
		} else {
			q = q.Where("folder_id = ?", filter.FolderID)
		}
	}

	chats := make([]models.Chat, 0)
	err := q.Order("last_message_at IS NULL").
		Order("last_message_at DESC").
		Order("created_at DESC").
		Find(&chats).Error
	return chats, err
}

// CreateChat 为用户创建会话，文件夹必须属于同一用户。
func (s *Store) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat.FolderID != nil {
		if _, err := s.GetFolder(ctx, chat.UserID, *chat.FolderID); err != nil {
			return err
		}
	}
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Title == "" {
		chat.Title = models.DefaultChatTitle
	}
	if chat.Type == "" {
		chat.Type = models.ChatGeneral
	}
	return s.DB.WithContext(ctx).Create(chat).Error
}

// GetChat 返回属于用户的会话。
func (s *Store) GetChat(ctx context.Context, userID uint, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

// UpdateChat 部分更新会话并返回更新后的记录。
func (s *Store) UpdateChat(ctx context.Context, userID uint, id string, upd ChatUpdate) (*models.Chat, error) {
	if _, err := s.GetChat(ctx, userID, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.IsPinned != nil {
		fields["is_pinned"] = *upd.IsPinned
	}
	if upd.SetFolder {
		if upd.FolderID != nil {
			if _, err := s.GetFolder(ctx, userID, *upd.FolderID); err != nil {
				return nil, err
			}
		}
		fields["folder_id"] = upd.FolderID
	}

	if len(fields) > 0 {
		err := s.DB.WithContext(ctx).Model(&models.Chat{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
	}
	return s.GetChat(ctx, userID, id)
}

// ArchiveChat 软删除会话。
func (s *Store) ArchiveChat(ctx context.Context, userID uint, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_archived", true).Error
}
