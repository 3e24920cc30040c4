package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFactStore 是基于 GORM 的 FactStore 实现，表为 user_memories。
type GormFactStore struct {
	db *gorm.DB
}

// NewGormFactStore 创建一个新的 GormFactStore 实例。
func NewGormFactStore(db *gorm.DB) *GormFactStore {
	return &GormFactStore{db: db}
}

// AutoMigrate 创建或更新 user_memories 表及其唯一索引。
func (s *GormFactStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Fact{})
}

// SetMemory 以 (user_id, key) 为冲突键插入或覆盖一条记忆，单条语句完成，并发写入也只会留下一行。
func (s *GormFactStore) SetMemory(ctx context.Context, userID uint, key, value string, category models.FactCategory) (*models.Fact, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return nil, ErrEmptyField
	}
	if category == "" {
		category = models.CategoryFact
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	now := time.Now()
	fact := &models.Fact{
		UserID:    userID,
		Key:       key,
		Value:     value,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var saved models.Fact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "category", "updated_at"}),
		}).Create(fact).Error
		if err != nil {
			return fmt.Errorf("upsert memory %q: %w", key, err)
		}
		// 冲突更新时 MySQL 不会回填原有行的 id 和 created_at，在同一事务里重新读一次
		err = tx.Where("user_id = ? AND `key` = ?", userID, key).First(&saved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("memory %q missing after upsert: %w", key, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetMemory 查询单条记忆，不存在时返回 (nil, nil)。
func (s *GormFactStore) GetMemory(ctx context.Context, userID uint, key string) (*models.Fact, error) {
	var fact models.Fact
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND `key` = ?", userID, strings.TrimSpace(key)).
		First(&fact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %q: %w", key, err)
	}
	return &fact, nil
}

// GetAllMemories 返回用户的全部记忆，最近更新的在前。
func (s *GormFactStore) GetAllMemories(ctx context.Context, userID uint) ([]models.Fact, error) {
	facts := []models.Fact{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		Find(&facts).Error
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return facts, nil
}

// GetMemoriesByCategory 返回用户某一类别的记忆，最近更新的在前。
func (s *GormFactStore) GetMemoriesByCategory(ctx context.Context, userID uint, category models.FactCategory) ([]models.Fact, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	facts := []models.Fact{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		Order("updated_at DESC").Order("id DESC").
		Find(&facts).Error
	if err != nil {
		return nil, fmt.Errorf("list memories by category: %w", err)
	}
	return facts, nil
}

// DeleteMemory 删除一条记忆，key 不存在时不报错。
func (s *GormFactStore) DeleteMemory(ctx context.Context, userID uint, key string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND `key` = ?", userID, strings.TrimSpace(key)).
		Delete(&models.Fact{}).Error
	if err != nil {
		return fmt.Errorf("delete memory %q: %w", key, err)
	}
	return nil
}
