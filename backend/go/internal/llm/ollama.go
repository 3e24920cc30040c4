package llm

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的补全客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 默认模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 120 * time.Second,
	}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Complete 使用 /api/chat 非流式生成回复。
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]olla.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := string(m.Role)
		if !m.Role.Valid() {
			role = string(models.SpeakerUser)
		}
		messages = append(messages, olla.Message{Role: role, Content: m.Content})
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	options := map[string]interface{}{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}

	stream := false
	var content string
	err := o.client.Chat(ctx, &olla.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(resp olla.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to chat with ollama: %w", err)
	}
	return content, nil
}
