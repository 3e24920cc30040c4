package extractor

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	ext, err := Parse(`{"facts":[{"key":"favorite_color","value":"blue","category":"preference"}],"should_remember":true,"semantic_summary":"User likes blue"}`)
	require.NoError(t, err)
	require.Len(t, ext.Facts, 1)
	assert.Equal(t, ExtractedFact{Key: "favorite_color", Value: "blue", Category: models.CategoryPreference}, ext.Facts[0])
	assert.True(t, ext.ShouldRemember)
	assert.Equal(t, "User likes blue", ext.SemanticSummary)
}

func TestParseCodeFence(t *testing.T) {
	ext, err := Parse("```json\n{\"facts\":[],\"should_remember\":false,\"semantic_summary\":\"\"}\n```")
	require.NoError(t, err)
	assert.Empty(t, ext.Facts)
	assert.False(t, ext.ShouldRemember)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"not json":           `I think the user likes blue`,
		"empty":              ``,
		"unknown field":      `{"facts":[],"should_remember":false,"semantic_summary":"","mood":"happy"}`,
		"missing facts":      `{"should_remember":false,"semantic_summary":""}`,
		"missing remember":   `{"facts":[],"semantic_summary":""}`,
		"bad category":       `{"facts":[{"key":"k","value":"v","category":"mood"}],"should_remember":false}`,
		"pipe category":      `{"facts":[{"key":"k","value":"v","category":"fact|preference"}],"should_remember":false}`,
		"empty key":          `{"facts":[{"key":"  ","value":"v","category":"fact"}],"should_remember":false}`,
		"missing value":      `{"facts":[{"key":"k","category":"fact"}],"should_remember":false}`,
		"summary required":   `{"facts":[],"should_remember":true,"semantic_summary":"  "}`,
		"trailing":           `{"facts":[],"should_remember":false} {"x":1}`,
		"wrong type":         `{"facts":"none","should_remember":false}`,
		"unknown fact field": `{"facts":[{"key":"k","value":"v","category":"fact","confidence":1}],"should_remember":false}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			ext, err := Parse(in)
			assert.Nil(t, ext)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

type recordingCompleter struct {
	req llm.CompletionRequest
	out string
	err error
}

func (r *recordingCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	r.req = req
	return r.out, r.err
}

func TestLlmExtractorRequest(t *testing.T) {
	rc := &recordingCompleter{out: `{"facts":[],"should_remember":false,"semantic_summary":""}`}
	e := NewLlmExtractor(rc, config.ExtractionConfig{Model: "gpt-4o-mini", MaxTokens: 300, Temperature: 0.1})

	_, err := e.Extract(context.Background(), "I'm a nurse", models.SpeakerUser)
	require.NoError(t, err)

	assert.Equal(t, 300, rc.req.MaxTokens)
	assert.InDelta(t, 0.1, rc.req.Temperature, 1e-6)
	assert.Equal(t, "gpt-4o-mini", rc.req.Model)
	require.Len(t, rc.req.Messages, 1)
	assert.Equal(t, models.SpeakerUser, rc.req.Messages[0].Role)
	assert.Contains(t, rc.req.Messages[0].Content, `Analyze this user message`)
	assert.Contains(t, rc.req.Messages[0].Content, `Message: "I'm a nurse"`)
	assert.Contains(t, rc.req.Messages[0].Content, `"should_remember": boolean`)
}

func TestLlmExtractorPropagatesErrors(t *testing.T) {
	boom := errors.New("timeout")
	e := NewLlmExtractor(&recordingCompleter{err: boom}, config.ExtractionConfig{})
	_, err := e.Extract(context.Background(), "hi", models.SpeakerUser)
	assert.ErrorIs(t, err, boom)

	e = NewLlmExtractor(&recordingCompleter{out: "sure! here you go"}, config.ExtractionConfig{})
	_, err = e.Extract(context.Background(), "hi", models.SpeakerUser)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestLlmExtractorSendsTemperature(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"{\"facts\":[],\"should_remember\":false,\"semantic_summary\":\"\"}"},"finish_reason":"stop"}]}`))
	}))
	defer ts.Close()

	e := NewLlmExtractor(llm.NewOpenAI("gpt-4o-mini", "key", ts.URL), config.ExtractionConfig{MaxTokens: 300, Temperature: 0.1})
	ext, err := e.Extract(context.Background(), "I'm a nurse", models.SpeakerUser)
	require.NoError(t, err)
	assert.False(t, ext.ShouldRemember)

	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	assert.EqualValues(t, 300, got["max_tokens"])
	assert.Equal(t, "gpt-4o-mini", got["model"])
}
