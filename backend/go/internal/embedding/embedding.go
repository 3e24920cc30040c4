package embedding

import (
	"Jarvis_chat/backend/go/internal/config"
	"context"
	"fmt"
)

// NewEmdModel 根据配置的提供商创建一个 Embedding 模型实例。
//
// 参数:
//
//	cfg: embedding 配置，provider 为 "gemini"、"openai" 或 "ollama"。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGoogleModel(ctx, cfg.APIKey, cfg.Model)
	case "openai", "":
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
