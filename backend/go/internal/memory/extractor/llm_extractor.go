package extractor

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"fmt"
)

const promptTemplate = `Analyze this %s message and extract any important facts, preferences, or personal information that should be remembered about the user.

Message: "%s"

Extract information in this JSON format:
{
  "facts": [{"key": "descriptive_key", "value": "fact_value", "category": "fact|preference|skill|context"}],
  "should_remember": boolean,
  "semantic_summary": "brief summary if worth remembering semantically"
}

Only extract information that would be useful for future conversations. Return empty arrays if nothing significant.`

// LlmExtractor 通过一次低温度、小预算的补全调用提取记忆。
type LlmExtractor struct {
	completer   llm.Completer
	model       string
	maxTokens   int
	temperature float32
}

// NewLlmExtractor creates a new LlmExtractor.
func NewLlmExtractor(completer llm.Completer, cfg config.ExtractionConfig) *LlmExtractor {
	return &LlmExtractor{
		completer:   completer,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// BuildPrompt 生成发送给模型的提取提示。
func BuildPrompt(message string, role models.SpeakerRole) string {
	return fmt.Sprintf(promptTemplate, role, message)
}

// Extract 调用模型并严格校验输出。模型失败原样返回，输出不合法返回 ErrInvalidPayload。
func (e *LlmExtractor) Extract(ctx context.Context, message string, role models.SpeakerRole) (*Extraction, error) {
	out, err := e.completer.Complete(ctx, llm.CompletionRequest{
		Messages:    []models.ChatMessage{{Role: models.SpeakerUser, Content: BuildPrompt(message, role)}},
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}
	return Parse(out)
}
