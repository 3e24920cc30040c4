package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newFactStore(t *testing.T) *GormFactStore {
	s := NewGormFactStore(newTestDB(t))
	require.NoError(t, s.AutoMigrate())
	return s
}

func TestSetMemoryUpsertsOnUserAndKey(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	first, err := s.SetMemory(ctx, 1, "favorite_color", "blue", models.CategoryPreference)
	require.NoError(t, err)
	second, err := s.SetMemory(ctx, 1, "favorite_color", "green", models.CategoryPreference)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "green", second.Value)

	all, err := s.GetAllMemories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "green", all[0].Value)
}

func TestSetMemoryErrorsWhenRowVanishes(t *testing.T) {
	db := newTestDB(t)
	s := NewGormFactStore(db)
	require.NoError(t, s.AutoMigrate())

	// 模拟 upsert 和回读之间的并发删除
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:vanish", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_memories" {
			tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM user_memories")
		}
	}))

	f, err := s.SetMemory(context.Background(), 1, "city", "Paris", models.CategoryFact)
	assert.Nil(t, f)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetMemoryTrimsAndValidates(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	f, err := s.SetMemory(ctx, 1, "  name ", "  Ada  ", models.CategoryFact)
	require.NoError(t, err)
	assert.Equal(t, "name", f.Key)
	assert.Equal(t, "Ada", f.Value)

	_, err = s.SetMemory(ctx, 1, "   ", "x", models.CategoryFact)
	assert.ErrorIs(t, err, ErrEmptyField)
	_, err = s.SetMemory(ctx, 1, "k", " ", models.CategoryFact)
	assert.ErrorIs(t, err, ErrEmptyField)
	_, err = s.SetMemory(ctx, 1, "k", "v", models.FactCategory("mood"))
	assert.ErrorIs(t, err, ErrInvalidCategory)

	f, err = s.SetMemory(ctx, 1, "city", "Paris", "")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFact, f.Category)
}

func TestUserIsolation(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	_, err := s.SetMemory(ctx, 1, "name", "Ada", models.CategoryFact)
	require.NoError(t, err)
	_, err = s.SetMemory(ctx, 2, "name", "Bob", models.CategoryFact)
	require.NoError(t, err)

	f, err := s.GetMemory(ctx, 2, "name")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Bob", f.Value)

	require.NoError(t, s.DeleteMemory(ctx, 2, "name"))
	f, err = s.GetMemory(ctx, 1, "name")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Ada", f.Value)
}

func TestGetMemoryMissingAndDeleteIdempotent(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	f, err := s.GetMemory(ctx, 1, "nope")
	assert.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, s.DeleteMemory(ctx, 1, "nope"))
}

func TestOrderingAndCategoryFilter(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	_, err := s.SetMemory(ctx, 1, "a", "1", models.CategoryFact)
	require.NoError(t, err)
	_, err = s.SetMemory(ctx, 1, "b", "2", models.CategorySkill)
	require.NoError(t, err)
	_, err = s.SetMemory(ctx, 1, "a", "3", models.CategoryFact)
	require.NoError(t, err)

	all, err := s.GetAllMemories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "b", all[1].Key)

	skills, err := s.GetMemoriesByCategory(ctx, 1, models.CategorySkill)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "b", skills[0].Key)

	_, err = s.GetMemoriesByCategory(ctx, 1, "bogus")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	empty, err := s.GetAllMemories(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestConcurrentSetMemoryLeavesOneRow(t *testing.T) {
	s := newFactStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, v := range []string{"x", "y", "z", "w"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			_, err := s.SetMemory(ctx, 1, "k", v, models.CategoryFact)
			assert.NoError(t, err)
		}(v)
	}
	wg.Wait()

	all, err := s.GetAllMemories(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
