package llm

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI (或兼容网关) 的补全客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 默认模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端，baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete 调用 chat completions 接口并返回第一个候选的文本。
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) toOpenAIRequest(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(m.Role),
			Content: m.Content,
		})
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	out := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	// 该客户端的 Temperature 是指针，nil 时不上送。
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	return out
}

func toOpenAIRole(r models.SpeakerRole) string {
	switch r {
	case models.SpeakerSystem:
		return openai.ChatMessageRoleSystem
	case models.SpeakerAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
