package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyField 表示 key 或 value 去掉空白后为空。
	ErrEmptyField = errors.New("memory: key and value are required")
	// ErrInvalidCategory 表示类别不在允许的枚举内。
	ErrInvalidCategory = errors.New("memory: invalid category")
)

// FactStore 保存用户的键值记忆，所有操作都限定在 userID 之内。
type FactStore interface {
	SetMemory(ctx context.Context, userID uint, key, value string, category models.FactCategory) (*models.Fact, error)
	GetMemory(ctx context.Context, userID uint, key string) (*models.Fact, error)
	GetAllMemories(ctx context.Context, userID uint) ([]models.Fact, error)
	GetMemoriesByCategory(ctx context.Context, userID uint, category models.FactCategory) ([]models.Fact, error)
	DeleteMemory(ctx context.Context, userID uint, key string) error
}

// SemanticStore 保存带向量的自由文本记忆。
type SemanticStore interface {
	// Add 写入一条记忆。相同用户的相同内容映射到同一个 ID，重复写入只会刷新它。
	Add(ctx context.Context, mem models.SemanticMemory) (*models.SemanticMemory, error)
	// Search 只返回属于 userID 且相似度 >= threshold 的记忆，
	// 按相似度降序、创建时间降序排列，最多 limit 条。没有命中时返回空切片。
	Search(ctx context.Context, userID uint, query []float32, threshold float32, limit int) ([]models.SemanticHit, error)
}

// memoryNamespace 用于生成内容寻址的记忆 ID。
var memoryNamespace = uuid.MustParse("6f1c2b7e-3d4a-5b8c-9e0f-1a2b3c4d5e6f")

// MemoryID 由用户和规范化后的内容生成稳定的 ID。
func MemoryID(userID uint, content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	return uuid.NewSHA1(memoryNamespace, []byte(fmt.Sprintf("%d:%s", userID, normalized))).String()
}

// prepareSemantic 校验并补全一条待写入的记忆。
func prepareSemantic(mem models.SemanticMemory) (models.SemanticMemory, error) {
	mem.Content = strings.TrimSpace(mem.Content)
	if mem.Content == "" {
		return mem, fmt.Errorf("semantic memory content is empty")
	}
	if len(mem.Embedding) == 0 {
		return mem, fmt.Errorf("semantic memory embedding is empty")
	}
	if mem.UserID == 0 {
		return mem, fmt.Errorf("semantic memory user id is empty")
	}
	mem.ID = MemoryID(mem.UserID, mem.Content)
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	return mem, nil
}

// rankHits 过滤低于阈值的结果，排序后截断到 limit。
func rankHits(hits []models.SemanticHit, threshold float32, limit int) []models.SemanticHit {
	out := make([]models.SemanticHit, 0, len(hits))
	for _, h := range hits {
		if h.Similarity >= threshold {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// overflow 返回按创建时间排序后超出 keep 的最旧记忆 ID。
func overflow(ids []string, created []time.Time, keep int) []string {
	if keep <= 0 || len(ids) <= keep {
		return nil
	}
	idx := make([]int, len(ids))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return created[idx[a]].After(created[idx[b]])
	})
	var drop []string
	for _, i := range idx[keep:] {
		drop = append(drop, ids[i])
	}
	return drop
}
