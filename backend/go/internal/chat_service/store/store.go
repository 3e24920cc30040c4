package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示记录不存在，或者不属于当前用户。
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken 表示注册邮箱已被使用。
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidParent 表示把文件夹移动到自身或其子孙之下。
	ErrInvalidParent = errors.New("folder cannot be nested under itself")
)

// Store 封装了聊天服务的所有数据库操作，所有查询都带上 user_id 条件。
type Store struct {
	DB *gorm.DB
}

// NewStore 创建一个新的 Store 实例。
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// AutoMigrate 创建或更新聊天服务的表结构。
func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(&models.User{}, &models.Folder{}, &models.Chat{}, &models.Message{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
