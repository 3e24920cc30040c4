package service

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/memory/extractor"
	"Jarvis_chat/backend/go/internal/memory/store"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// memFacts 是内存版 FactStore，可以按 key 注入写入失败。
type memFacts struct {
	mu      sync.Mutex
	rows    []models.Fact
	failKey string
	listErr error
}

func (m *memFacts) SetMemory(_ context.Context, userID uint, key, value string, category models.FactCategory) (*models.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == m.failKey {
		return nil, errors.New("write failed")
	}
	for i := range m.rows {
		if m.rows[i].UserID == userID && m.rows[i].Key == key {
			m.rows[i].Value, m.rows[i].Category = value, category
			f := m.rows[i]
			return &f, nil
		}
	}
	f := models.Fact{ID: uint(len(m.rows) + 1), UserID: userID, Key: key, Value: value, Category: category}
	m.rows = append(m.rows, f)
	return &f, nil
}

func (m *memFacts) GetMemory(_ context.Context, userID uint, key string) (*models.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.rows {
		if f.UserID == userID && f.Key == key {
			return &f, nil
		}
	}
	return nil, nil
}

func (m *memFacts) GetAllMemories(_ context.Context, userID uint) ([]models.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Fact
	for _, f := range m.rows {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFacts) GetMemoriesByCategory(ctx context.Context, userID uint, category models.FactCategory) ([]models.Fact, error) {
	all, err := m.GetAllMemories(ctx, userID)
	var out []models.Fact
	for _, f := range all {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out, err
}

func (m *memFacts) DeleteMemory(_ context.Context, userID uint, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.rows {
		if f.UserID == userID && f.Key == key {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	return nil
}

// fixedEmbedder 按文本返回预设向量，未登记的文本返回错误。
type fixedEmbedder map[string][]float32

func (f fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := f[text]
	if !ok {
		return nil, errors.New("embedding unavailable")
	}
	return v, nil
}

type stubExtractor struct {
	out   *extractor.Extraction
	err   error
	calls int
}

func (s *stubExtractor) Extract(context.Context, string, models.SpeakerRole) (*extractor.Extraction, error) {
	s.calls++
	return s.out, s.err
}

func newService(t *testing.T, facts store.FactStore, emb Embedder, ext extractor.Extractor) (*MemoryService, *store.ChromemStore) {
	t.Helper()
	sem, err := store.NewChromemStore("", "memories", 0, logger.New("test", "", ""))
	require.NoError(t, err)
	svc := NewMemoryService(facts, sem, emb, ext, Options{MatchThreshold: 0.7, SearchLimit: 5, ContextLimit: 3}, logger.New("test", "", ""))
	return svc, sem
}

func TestRenderContextFormat(t *testing.T) {
	facts := []models.Fact{
		{Key: "favorite_language", Value: "Go", Category: models.CategoryPreference},
		{Key: "job", Value: "engineer", Category: models.CategoryFact},
		{Key: "editor", Value: "vim", Category: models.CategoryPreference},
	}
	hits := []models.SemanticHit{
		{SemanticMemory: models.SemanticMemory{Content: "Is planning a trip to Japan"}},
		{SemanticMemory: models.SemanticMemory{Content: "Has a dog named Rex"}},
	}

	want := "## User Information:\n" +
		"**Preferences**: favorite_language: Go, editor: vim\n" +
		"**Facts**: job: engineer\n" +
		"\n" +
		"## Relevant Context:\n" +
		"1. Is planning a trip to Japan\n" +
		"2. Has a dog named Rex\n" +
		"\n"
	assert.Equal(t, want, RenderContext(facts, hits))
	assert.Equal(t, "", RenderContext(nil, nil))
	assert.Equal(t, "## Relevant Context:\n1. x\n\n",
		RenderContext(nil, []models.SemanticHit{{SemanticMemory: models.SemanticMemory{Content: "x"}}}))
}

func TestExtractMemoriesFromMessage(t *testing.T) {
	facts := &memFacts{}
	emb := fixedEmbedder{"Is learning the violin": {1, 0, 0}}
	ext := &stubExtractor{out: &extractor.Extraction{
		Facts: []extractor.ExtractedFact{
			{Key: "name", Value: "Ana", Category: models.CategoryFact},
			{Key: "likes", Value: "tea", Category: models.CategoryPreference},
		},
		ShouldRemember:  true,
		SemanticSummary: "Is learning the violin",
	}}
	svc, sem := newService(t, facts, emb, ext)

	svc.ExtractMemoriesFromMessage(context.Background(), models.ExtractionJob{
		UserID: 7, Message: "I'm Ana, I love tea and I'm learning the violin", Role: models.SpeakerUser,
		ChatID: "chat-1", MessageID: "msg-1",
	})

	got, err := facts.GetAllMemories(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, sem.Count())

	hits, err := sem.Search(context.Background(), 7, []float32{1, 0, 0}, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chat-1", hits[0].SourceChatID)
	assert.Equal(t, "msg-1", hits[0].SourceMessageID)
}

func TestExtractSkipsNonUserAndEmpty(t *testing.T) {
	ext := &stubExtractor{out: &extractor.Extraction{}}
	svc, _ := newService(t, &memFacts{}, fixedEmbedder{}, ext)

	svc.ExtractMemoriesFromMessage(context.Background(), models.ExtractionJob{UserID: 1, Message: "hello", Role: models.SpeakerAssistant})
	svc.ExtractMemoriesFromMessage(context.Background(), models.ExtractionJob{UserID: 1, Message: "   ", Role: models.SpeakerUser})
	assert.Equal(t, 0, ext.calls)
}

func TestExtractInvalidPayloadWritesNothing(t *testing.T) {
	facts := &memFacts{}
	ext := &stubExtractor{err: extractor.ErrInvalidPayload}
	svc, sem := newService(t, facts, fixedEmbedder{}, ext)

	svc.ExtractMemoriesFromMessage(context.Background(), models.ExtractionJob{UserID: 1, Message: "hi", Role: models.SpeakerUser})
	got, _ := facts.GetAllMemories(context.Background(), 1)
	assert.Empty(t, got)
	assert.Equal(t, 0, sem.Count())
}

func TestExtractFactFailureDoesNotBlockOthers(t *testing.T) {
	facts := &memFacts{failKey: "bad"}
	ext := &stubExtractor{out: &extractor.Extraction{
		Facts: []extractor.ExtractedFact{
			{Key: "bad", Value: "x", Category: models.CategoryFact},
			{Key: "good", Value: "y", Category: models.CategoryFact},
		},
		ShouldRemember:  true,
		SemanticSummary: "not embeddable",
	}}
	svc, sem := newService(t, facts, fixedEmbedder{}, ext)

	svc.ExtractMemoriesFromMessage(context.Background(), models.ExtractionJob{UserID: 3, Message: "stuff", Role: models.SpeakerUser})
	got, _ := facts.GetAllMemories(context.Background(), 3)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Key)
	// 向量化失败时不写入语义记忆
	assert.Equal(t, 0, sem.Count())
}

func TestGetMemoryContextCombinesSources(t *testing.T) {
	facts := &memFacts{}
	emb := fixedEmbedder{
		"Enjoys hiking":      {1, 0},
		"Works night shifts": {0, 1},
		"what should I do?":  {1, 0.1},
	}
	svc, _ := newService(t, facts, emb, &stubExtractor{})
	ctx := context.Background()

	_, err := svc.SetMemory(ctx, 1, "city", "Lisbon", models.CategoryFact)
	require.NoError(t, err)
	_, err = svc.AddSemanticMemory(ctx, 1, "Enjoys hiking", "", "")
	require.NoError(t, err)
	_, err = svc.AddSemanticMemory(ctx, 1, "Works night shifts", "", "")
	require.NoError(t, err)

	got := svc.GetMemoryContext(ctx, 1, "what should I do?")
	assert.Equal(t, "## User Information:\n**Facts**: city: Lisbon\n\n## Relevant Context:\n1. Enjoys hiking\n\n", got)

	// 其他用户看不到
	assert.Equal(t, "", svc.GetMemoryContext(ctx, 2, "what should I do?"))
}

func TestGetMemoryContextDropsFailingSource(t *testing.T) {
	facts := &memFacts{listErr: errors.New("db down")}
	emb := fixedEmbedder{"Enjoys hiking": {1, 0}, "hike?": {1, 0}}
	svc, _ := newService(t, facts, emb, &stubExtractor{})
	ctx := context.Background()

	_, err := svc.AddSemanticMemory(ctx, 1, "Enjoys hiking", "", "")
	require.NoError(t, err)

	assert.Equal(t, "## Relevant Context:\n1. Enjoys hiking\n\n", svc.GetMemoryContext(ctx, 1, "hike?"))
	// 向量化失败且事实读取失败时返回空串
	assert.Equal(t, "", svc.GetMemoryContext(ctx, 1, "unknown"))
}

type scriptedCompleter string

func (c scriptedCompleter) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return string(c), nil
}

func TestPreferenceFlowsIntoNextPrompt(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	facts := store.NewGormFactStore(db)
	require.NoError(t, facts.AutoMigrate())

	reply := scriptedCompleter("```json\n" +
		`{"facts":[{"key":"favorite_programming_language","value":"Rust","category":"preference"}],` +
		`"should_remember":true,"semantic_summary":"Prefers Rust for systems work"}` +
		"\n```")
	ext := extractor.NewLlmExtractor(reply, config.ExtractionConfig{Model: "gpt-4o-mini", MaxTokens: 300, Temperature: 0.1})
	emb := fixedEmbedder{
		"Prefers Rust for systems work":          {1, 0},
		"Which language should I use for a CLI?": {0.9, 0.1},
	}
	svc, sem := newService(t, facts, emb, ext)
	ctx := context.Background()

	svc.ExtractMemoriesFromMessage(ctx, models.ExtractionJob{
		UserID: 1, Message: "My favorite programming language is Rust", Role: models.SpeakerUser,
	})

	stored, err := facts.GetMemory(ctx, 1, "favorite_programming_language")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Rust", stored.Value)
	assert.Equal(t, 1, sem.Count())

	got := svc.GetMemoryContext(ctx, 1, "Which language should I use for a CLI?")
	assert.Equal(t, "## User Information:\n"+
		"**Preferences**: favorite_programming_language: Rust\n"+
		"\n"+
		"## Relevant Context:\n"+
		"1. Prefers Rust for systems work\n"+
		"\n", got)

	assert.Equal(t, "", svc.GetMemoryContext(ctx, 2, "Which language should I use for a CLI?"))
}
