package llm

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/circuitbreaker"
	"context"
	"fmt"
)

// CompletionRequest 是一次非流式对话补全请求。
// Model 为空时使用客户端的默认模型，MaxTokens 和 Temperature 为 0 时交给服务端默认。
type CompletionRequest struct {
	Messages    []models.ChatMessage
	Model       string
	MaxTokens   int
	Temperature float32
}

// Completer 定义了所有大型语言模型客户端必须实现的通用接口。
// 返回的文本可能为空字符串，由调用方决定如何处理。
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 Completer 接口的客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL), nil
	case "gemini":
		return NewGemini(ctx, cfg.Model, cfg.APIKey)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// breakerCompleter 在熔断器打开时直接失败，避免模型服务故障时请求堆积。
type breakerCompleter struct {
	next    Completer
	breaker circuitbreaker.CircuitBreaker
}

// WithBreaker 用熔断器包装一个 Completer，breaker 为 nil 时原样返回。
func WithBreaker(next Completer, breaker circuitbreaker.CircuitBreaker) Completer {
	if breaker == nil {
		return next
	}
	return &breakerCompleter{next: next, breaker: breaker}
}

func (b *breakerCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var out string
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = b.next.Complete(ctx, req)
		return err
	})
	return out, err
}
