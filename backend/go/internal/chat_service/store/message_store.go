package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListMessages 返回会话中未删除的消息，按创建时间升序。会话必须属于用户。
func (s *Store) ListMessages(ctx context.Context, userID uint, chatID string) ([]models.Message, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0)
	err := s.DB.WithContext(ctx).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// CreateMessage 在一个事务中写入消息，并更新会话的消息数和最近消息时间。
func (s *Store) CreateMessage(ctx context.Context, userID uint, msg *models.Message) error {
	return s.CreateMessages(ctx, userID, msg)
}

// CreateMessages 在同一个事务中写入一组属于同一会话的消息，要么全部写入要么都不写。
// 批内的创建时间严格递增，保证按时间列出时顺序不变。
func (s *Store) CreateMessages(ctx context.Context, userID uint, msgs ...*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now()
	var prev time.Time
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		if !prev.IsZero() && !msg.CreatedAt.After(prev) {
			msg.CreatedAt = prev.Add(time.Millisecond)
		}
		prev = msg.CreatedAt
	}

	chatID := msgs[0].ChatID
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Chat{}).
			Where("id = ? AND user_id = ?", chatID, userID).
			Updates(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + ?", len(msgs)),
				"last_message_at": prev,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, msg := range msgs {
			if msg.ChatID != chatID {
				return ErrNotFound
			}
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
