package embedding

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/pkg/util"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrEmptyInput 表示输入在去除首尾空白后为空，这是调用方的错误。
var ErrEmptyInput = errors.New("embedding: empty input")

// Error 包装了 embedding 提供商的失败。
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client 在某个 Embedding 模型之上做输入规范化、错误归类和可选的结果缓存。
// 不做重试，失败直接交给调用方。
type Client struct {
	model    Embedding
	provider string
	cache    *util.LRUCache[string, []float32]
}

// NewClient 创建 Client。cfg.CacheSize 为 0 时不缓存。
func NewClient(model Embedding, cfg config.EmbeddingConfig) (*Client, error) {
	c := &Client{model: model, provider: cfg.Provider}
	if cfg.CacheSize > 0 {
		cache, err := util.NewWithConfig(util.CacheConfig[string, []float32]{
			Capacity: cfg.CacheSize,
			TTL:      config.Duration(cfg.CacheTTL, 10*time.Minute),
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Embed 返回 text 去掉首尾空白后的向量。返回的切片归调用方所有，修改它不影响缓存。
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(text); ok {
			return slices.Clone(v), nil
		}
	}

	v, err := c.model.Embed(ctx, text)
	if err != nil {
		return nil, &Error{Provider: c.provider, Err: err}
	}
	if len(v) == 0 {
		return nil, &Error{Provider: c.provider, Err: errors.New("empty vector")}
	}
	if c.cache != nil {
		c.cache.Put(text, slices.Clone(v), 1)
	}
	return v, nil
}
