package store

import (
	"Jarvis_chat/backend/go/internal/database/milvus"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Milvus 集合中的字段名，需与配置中的 schema 一致。
const (
	fieldID        = "id"
	fieldUserID    = "user_id"
	fieldContent   = "content"
	fieldChatID    = "source_chat_id"
	fieldMessageID = "source_message_id"
	fieldCreatedAt = "created_at"
)

var milvusOutputFields = []string{fieldID, fieldUserID, fieldContent, fieldChatID, fieldMessageID, fieldCreatedAt}

// MilvusStore 是基于 Milvus 的 SemanticStore 实现，使用 COSINE 度量。
// 用户隔离通过搜索表达式 user_id == N 在服务端完成。
type MilvusStore struct {
	client     *milvus.MilvusClient
	maxPerUser int
	logger     *logger.Logger
}

// NewMilvusStore creates a new MilvusStore. 集合需要事先通过 EnsureCollection 创建并加载。
func NewMilvusStore(client *milvus.MilvusClient, maxPerUser int, log *logger.Logger) *MilvusStore {
	if log == nil {
		log = logger.New("memory_service", "", "")
	}
	return &MilvusStore{client: client, maxPerUser: maxPerUser, logger: log}
}

func (s *MilvusStore) Add(ctx context.Context, mem models.SemanticMemory) (*models.SemanticMemory, error) {
	mem, err := prepareSemantic(mem)
	if err != nil {
		return nil, err
	}
	if dim := s.client.VectorDim(); dim > 0 && dim != len(mem.Embedding) {
		return nil, fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(mem.Embedding), dim)
	}

	err = s.client.Upsert(ctx,
		entity.NewColumnVarChar(fieldID, []string{mem.ID}),
		entity.NewColumnInt64(fieldUserID, []int64{int64(mem.UserID)}),
		entity.NewColumnVarChar(fieldContent, []string{mem.Content}),
		entity.NewColumnVarChar(fieldChatID, []string{mem.SourceChatID}),
		entity.NewColumnVarChar(fieldMessageID, []string{mem.SourceMessageID}),
		entity.NewColumnInt64(fieldCreatedAt, []int64{mem.CreatedAt.UnixMilli()}),
		entity.NewColumnFloatVector(s.client.Config.Schema.VectorField, len(mem.Embedding), [][]float32{mem.Embedding}),
	)
	if err != nil {
		return nil, err
	}

	if s.maxPerUser > 0 {
		if err := s.prune(ctx, mem.UserID); err != nil {
			s.logger.WithErr(err).WithField("user_id", mem.UserID).Warn("清理语义记忆失败")
		}
	}
	return &mem, nil
}

func (s *MilvusStore) Search(ctx context.Context, userID uint, query []float32, threshold float32, limit int) ([]models.SemanticHit, error) {
	if limit <= 0 {
		limit = 5
	}
	// 多取一些候选，阈值过滤和按时间打破平局都在本地完成
	topK := limit * 4
	if topK > 16384 {
		topK = 16384
	}

	res, err := s.client.Search(ctx, userExpr(userID), milvusOutputFields, query, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SemanticHit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount && i < len(res.Scores); i++ {
		mem := rowFromColumns(res.Fields, i)
		if mem.ID == "" && res.IDs != nil {
			mem.ID, _ = res.IDs.GetAsString(i)
		}
		hits = append(hits, models.SemanticHit{SemanticMemory: mem, Similarity: res.Scores[i]})
	}
	return rankHits(hits, threshold, limit), nil
}

func (s *MilvusStore) prune(ctx context.Context, userID uint) error {
	rs, err := s.client.Query(ctx, userExpr(userID), []string{fieldID, fieldCreatedAt})
	if err != nil {
		return err
	}
	idCol := rs.GetColumn(fieldID)
	tsCol := rs.GetColumn(fieldCreatedAt)
	if idCol == nil || tsCol == nil || idCol.Len() <= s.maxPerUser {
		return nil
	}

	ids := make([]string, idCol.Len())
	created := make([]time.Time, idCol.Len())
	for i := range ids {
		ids[i], _ = idCol.GetAsString(i)
		ms, _ := tsCol.GetAsInt64(i)
		created[i] = time.UnixMilli(ms)
	}
	drop := overflow(ids, created, s.maxPerUser)
	if len(drop) == 0 {
		return nil
	}
	quoted := make([]string, len(drop))
	for i, id := range drop {
		quoted[i] = strconv.Quote(id)
	}
	return s.client.Delete(ctx, fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ",")))
}

func userExpr(userID uint) string {
	return fmt.Sprintf("%s == %d", fieldUserID, userID)
}

func rowFromColumns(rs client.ResultSet, i int) models.SemanticMemory {
	str := func(name string) string {
		if col := rs.GetColumn(name); col != nil {
			v, _ := col.GetAsString(i)
			return v
		}
		return ""
	}
	num := func(name string) int64 {
		if col := rs.GetColumn(name); col != nil {
			v, _ := col.GetAsInt64(i)
			return v
		}
		return 0
	}
	return models.SemanticMemory{
		ID:              str(fieldID),
		UserID:          uint(num(fieldUserID)),
		Content:         str(fieldContent),
		SourceChatID:    str(fieldChatID),
		SourceMessageID: str(fieldMessageID),
		CreatedAt:       time.UnixMilli(num(fieldCreatedAt)),
	}
}
