package service

import (
	"Jarvis_chat/backend/go/internal/memory/extractor"
	"Jarvis_chat/backend/go/internal/memory/store"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
)

// Embedder 把文本转为向量，*embedding.Client 满足这个接口。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options 是记忆检索的参数。
type Options struct {
	MatchThreshold float32 // 语义检索的相似度阈值
	SearchLimit    int     // SearchSemanticMemories 的默认条数
	ContextLimit   int     // 注入对话上下文的语义记忆条数
}

// MemoryService 把事实存储、语义存储、向量化和提取器组合在一起。
type MemoryService struct {
	facts     store.FactStore
	semantic  store.SemanticStore
	embedder  Embedder
	extractor extractor.Extractor
	opts      Options
	logger    *logger.Logger
}

// NewMemoryService creates a new MemoryService.
func NewMemoryService(facts store.FactStore, semantic store.SemanticStore, embedder Embedder, ext extractor.Extractor, opts Options, log *logger.Logger) *MemoryService {
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = 0.7
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 3
	}
	return &MemoryService{
		facts:     facts,
		semantic:  semantic,
		embedder:  embedder,
		extractor: ext,
		opts:      opts,
		logger:    log,
	}
}

// SetMemory 写入或覆盖一条键值记忆。
func (s *MemoryService) SetMemory(ctx context.Context, userID uint, key, value string, category models.FactCategory) (*models.Fact, error) {
	return s.facts.SetMemory(ctx, userID, key, value, category)
}

// GetMemory 查询单条记忆，不存在时返回 (nil, nil)。
func (s *MemoryService) GetMemory(ctx context.Context, userID uint, key string) (*models.Fact, error) {
	return s.facts.GetMemory(ctx, userID, key)
}

// GetAllMemories 返回用户的全部键值记忆。
func (s *MemoryService) GetAllMemories(ctx context.Context, userID uint) ([]models.Fact, error) {
	return s.facts.GetAllMemories(ctx, userID)
}

// GetMemoriesByCategory 返回某一类别的键值记忆。
func (s *MemoryService) GetMemoriesByCategory(ctx context.Context, userID uint, category models.FactCategory) ([]models.Fact, error) {
	return s.facts.GetMemoriesByCategory(ctx, userID, category)
}

// DeleteMemory 删除一条键值记忆。
func (s *MemoryService) DeleteMemory(ctx context.Context, userID uint, key string) error {
	return s.facts.DeleteMemory(ctx, userID, key)
}

// AddSemanticMemory 向量化 content 并写入语义存储。
func (s *MemoryService) AddSemanticMemory(ctx context.Context, userID uint, content, chatID, messageID string) (*models.SemanticMemory, error) {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed semantic memory: %w", err)
	}
	return s.semantic.Add(ctx, models.SemanticMemory{
		UserID:          userID,
		Content:         content,
		Embedding:       vec,
		SourceChatID:    chatID,
		SourceMessageID: messageID,
	})
}

// SearchSemanticMemories 检索与 query 相似的记忆，limit <= 0 时使用默认条数。
func (s *MemoryService) SearchSemanticMemories(ctx context.Context, userID uint, query string, limit int) ([]models.SemanticHit, error) {
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.semantic.Search(ctx, userID, vec, s.opts.MatchThreshold, limit)
}

// ExtractMemoriesFromMessage 从一条消息中提取并保存记忆。
// 只处理用户消息，空消息直接跳过。提取失败时放弃整次提取；
// 每条事实独立写入，一条失败不影响其他条。不向调用方返回错误。
func (s *MemoryService) ExtractMemoriesFromMessage(ctx context.Context, job models.ExtractionJob) {
	log := s.logger.WithField("user_id", job.UserID).WithField("chat_id", job.ChatID)

	if strings.TrimSpace(job.Message) == "" {
		return
	}
	if job.Role != models.SpeakerUser {
		log.WithField("role", job.Role).Debug("skip memory extraction for non-user message")
		return
	}

	ext, err := s.extractor.Extract(ctx, job.Message, job.Role)
	if err != nil {
		log.WithErr(err).Warn("memory extraction abandoned")
		return
	}

	saved := 0
	for _, f := range ext.Facts {
		if _, err := s.facts.SetMemory(ctx, job.UserID, f.Key, f.Value, f.Category); err != nil {
			log.WithErr(err).WithField("key", f.Key).Warn("failed to save extracted fact")
			continue
		}
		saved++
	}

	if ext.ShouldRemember && ext.SemanticSummary != "" {
		if _, err := s.AddSemanticMemory(ctx, job.UserID, ext.SemanticSummary, job.ChatID, job.MessageID); err != nil {
			log.WithErr(err).Warn("failed to save semantic memory")
		}
	}

	log.WithPayload(map[string]interface{}{
		"facts_extracted": len(ext.Facts),
		"facts_saved":     saved,
		"semantic":        ext.ShouldRemember,
	}).Debug("memory extraction finished")
}
