package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
auth:
  jwtSecret: s3cret
server:
  address: ":9090"
databases:
  etcd:
    endpoints: ["127.0.0.1:2379"]
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JwtSecret)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, cfg.LLM.Model, cfg.Extraction.Model)
	assert.Equal(t, 300, cfg.Extraction.MaxTokens)
	assert.Equal(t, "chromem", cfg.Memory.SemanticStore)
	assert.InDelta(t, 0.7, cfg.Memory.MatchThreshold, 1e-6)
	assert.Equal(t, 3, cfg.Memory.ContextLimit)
	assert.Equal(t, "local", cfg.Memory.Dispatcher.Mode)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, int64(20<<20), cfg.Documents.MaxUploadBytes)
	assert.Equal(t, "tokenBucket", cfg.Middleware.RateLimiter.Algorithm)
	assert.Equal(t, ":9090", cfg.Databases.Etcd.AdvertiseAddr)
	assert.Equal(t, int64(10), cfg.Databases.Etcd.LeaseTTL)
	assert.False(t, cfg.App.IsDevelopment())
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "llm:\n  model: x\n"))
	assert.ErrorContains(t, err, "auth.jwtSecret")

	_, err = LoadConfig(writeConfig(t, "auth:\n  jwtSecret: s\nsearch:\n  timeout: soon\n"))
	assert.ErrorContains(t, err, "search.timeout")

	_, err = LoadConfig(writeConfig(t, "auth:\n  jwtSecret: s\nmemory:\n  matchThreshold: 1.5\n"))
	assert.ErrorContains(t, err, "memory.matchThreshold")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, Duration("30s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
}
