package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"fmt"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

const (
	metaUserID    = "user_id"
	metaCreatedAt = "created_at"
	metaChatID    = "source_chat_id"
	metaMessageID = "source_message_id"
)

// ChromemStore 是嵌入式的 SemanticStore 实现。所有用户共用一个集合，
// 查询时用 user_id 元数据过滤，保证只在该用户的记忆中检索。
type ChromemStore struct {
	col        *chromem.Collection
	maxPerUser int
	logger     *logger.Logger
}

// NewChromemStore 打开 (或创建) 集合。persistPath 为空时只保存在内存中。
func NewChromemStore(persistPath, collection string, maxPerUser int, log *logger.Logger) (*ChromemStore, error) {
	if log == nil {
		log = logger.New("memory_service", "", "")
	}
	var db *chromem.DB
	if persistPath == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(persistPath, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", persistPath, err)
		}
	}

	// 向量总是由调用方提供，嵌入函数不会被调用
	col, err := db.GetOrCreateCollection(collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("create chromem collection: %w", err)
	}
	return &ChromemStore{col: col, maxPerUser: maxPerUser, logger: log}, nil
}

func noEmbed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("chromem: documents must carry their own embedding")
}

func (s *ChromemStore) Add(ctx context.Context, mem models.SemanticMemory) (*models.SemanticMemory, error) {
	mem, err := prepareSemantic(mem)
	if err != nil {
		return nil, err
	}

	doc := chromem.Document{
		ID:        mem.ID,
		Content:   mem.Content,
		Embedding: mem.Embedding,
		Metadata: map[string]string{
			metaUserID:    userKey(mem.UserID),
			metaCreatedAt: mem.CreatedAt.UTC().Format(time.RFC3339Nano),
			metaChatID:    mem.SourceChatID,
			metaMessageID: mem.SourceMessageID,
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("add document: %w", err)
	}

	if s.maxPerUser > 0 {
		if err := s.prune(ctx, mem.UserID, mem.Embedding); err != nil {
			s.logger.WithErr(err).WithField("user_id", mem.UserID).Warn("chromem: prune failed")
		}
	}
	return &mem, nil
}

func (s *ChromemStore) Search(ctx context.Context, userID uint, query []float32, threshold float32, limit int) ([]models.SemanticHit, error) {
	results, err := s.userDocs(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SemanticHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.SemanticHit{
			SemanticMemory: fromResult(r),
			Similarity:     r.Similarity,
		})
	}
	return rankHits(hits, threshold, limit), nil
}

// userDocs 返回该用户的全部文档。chromem 要求 nResults 不超过集合总数，因此按总数查询。
func (s *ChromemStore) userDocs(ctx context.Context, userID uint, probe []float32) ([]chromem.Result, error) {
	total := s.col.Count()
	if total == 0 {
		return nil, nil
	}
	results, err := s.col.QueryEmbedding(ctx, probe, total, map[string]string{metaUserID: userKey(userID)}, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	return results, nil
}

func (s *ChromemStore) prune(ctx context.Context, userID uint, probe []float32) error {
	results, err := s.userDocs(ctx, userID, probe)
	if err != nil || len(results) <= s.maxPerUser {
		return err
	}
	ids := make([]string, len(results))
	created := make([]time.Time, len(results))
	for i, r := range results {
		ids[i] = r.ID
		created[i] = parseCreatedAt(r.Metadata[metaCreatedAt])
	}
	drop := overflow(ids, created, s.maxPerUser)
	if len(drop) == 0 {
		return nil
	}
	return s.col.Delete(ctx, nil, nil, drop...)
}

// Count 返回集合中的文档总数 (所有用户)。
func (s *ChromemStore) Count() int {
	return s.col.Count()
}

func fromResult(r chromem.Result) models.SemanticMemory {
	uid, _ := strconv.ParseUint(r.Metadata[metaUserID], 10, 64)
	return models.SemanticMemory{
		ID:              r.ID,
		UserID:          uint(uid),
		Content:         r.Content,
		Embedding:       r.Embedding,
		SourceChatID:    r.Metadata[metaChatID],
		SourceMessageID: r.Metadata[metaMessageID],
		CreatedAt:       parseCreatedAt(r.Metadata[metaCreatedAt]),
	}
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func parseCreatedAt(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}
