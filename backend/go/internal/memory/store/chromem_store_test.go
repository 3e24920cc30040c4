package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChromem(t *testing.T, maxPerUser int) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore("", "test_memories", maxPerUser, logger.New("test", "", ""))
	require.NoError(t, err)
	return s
}

func add(t *testing.T, s SemanticStore, userID uint, content string, emb []float32, at time.Time) *models.SemanticMemory {
	t.Helper()
	m, err := s.Add(context.Background(), models.SemanticMemory{
		UserID:    userID,
		Content:   content,
		Embedding: emb,
		CreatedAt: at,
	})
	require.NoError(t, err)
	return m
}

func TestChromemSearchThresholdAndOrder(t *testing.T) {
	s := newChromem(t, 0)
	base := time.Unix(1700000000, 0)

	add(t, s, 1, "likes hiking", []float32{1, 0}, base)
	add(t, s, 1, "works as a nurse", []float32{0.8, 0.6}, base.Add(time.Minute))
	add(t, s, 1, "unrelated", []float32{0, 1}, base.Add(2*time.Minute))

	hits, err := s.Search(context.Background(), 1, []float32{1, 0}, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "likes hiking", hits[0].Content)
	assert.Equal(t, "works as a nurse", hits[1].Content)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
	assert.InDelta(t, 0.8, hits[1].Similarity, 1e-4)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Similarity, float32(0.7))
	}
}

func TestChromemSearchTieBrokenByRecency(t *testing.T) {
	s := newChromem(t, 0)
	base := time.Unix(1700000000, 0)

	add(t, s, 1, "older", []float32{1, 0}, base)
	add(t, s, 1, "newer", []float32{2, 0}, base.Add(time.Hour))

	hits, err := s.Search(context.Background(), 1, []float32{1, 0}, 0.7, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "newer", hits[0].Content)
}

func TestChromemUserIsolation(t *testing.T) {
	s := newChromem(t, 0)
	add(t, s, 1, "user one secret", []float32{1, 0}, time.Now())
	add(t, s, 2, "user two secret", []float32{1, 0}, time.Now())

	hits, err := s.Search(context.Background(), 2, []float32{1, 0}, 0.1, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(2), hits[0].UserID)
	assert.Equal(t, "user two secret", hits[0].Content)

	hits, err = s.Search(context.Background(), 3, []float32{1, 0}, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemEmptyCollection(t *testing.T) {
	s := newChromem(t, 0)
	hits, err := s.Search(context.Background(), 1, []float32{1, 0}, 0.7, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemContentAddressedDedup(t *testing.T) {
	s := newChromem(t, 0)
	a := add(t, s, 1, "Loves  Jazz", []float32{1, 0}, time.Unix(1, 0))
	b := add(t, s, 1, "loves jazz", []float32{1, 0}, time.Unix(2, 0))
	c := add(t, s, 2, "loves jazz", []float32{1, 0}, time.Unix(3, 0))

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 2, s.Count())
}

func TestChromemPrunesOldestBeyondCap(t *testing.T) {
	s := newChromem(t, 2)
	base := time.Unix(1700000000, 0)
	add(t, s, 1, "first", []float32{1, 0}, base)
	add(t, s, 1, "second", []float32{1, 0.1}, base.Add(time.Minute))
	add(t, s, 1, "third", []float32{1, 0.2}, base.Add(2*time.Minute))
	add(t, s, 2, "other user", []float32{1, 0}, base)

	hits, err := s.Search(context.Background(), 1, []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	var contents []string
	for _, h := range hits {
		contents = append(contents, h.Content)
	}
	assert.ElementsMatch(t, []string{"second", "third"}, contents)
	assert.Equal(t, 3, s.Count())
}

func TestChromemAddValidation(t *testing.T) {
	s := newChromem(t, 0)
	_, err := s.Add(context.Background(), models.SemanticMemory{UserID: 1, Content: "  ", Embedding: []float32{1}})
	assert.Error(t, err)
	_, err = s.Add(context.Background(), models.SemanticMemory{UserID: 1, Content: "x"})
	assert.Error(t, err)
}
