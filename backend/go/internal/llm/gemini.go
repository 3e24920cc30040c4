package llm

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 Completer 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 默认的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete 把 system 消息放入 SystemInstruction，之前的消息作为历史，最后一条作为本轮输入。
// 每次调用都新建会话，客户端本身不保存对话状态。
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	name := req.Model
	if name == "" {
		name = g.model
	}
	gm := g.client.GenerativeModel(name)
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		gm.SetTemperature(req.Temperature)
	}

	var system []string
	var history []*genai.Content
	for _, m := range req.Messages {
		if m.Role == models.SpeakerSystem {
			system = append(system, m.Content)
			continue
		}
		history = append(history, &genai.Content{
			Role:  toGeminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	if len(system) > 0 {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(system, "\n\n")))
	}
	if len(history) == 0 {
		return "", fmt.Errorf("gemini: no user message to send")
	}

	last := history[len(history)-1]
	cs := gm.StartChat()
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini send message: %w", err)
	}
	return responseText(resp), nil
}

func toGeminiRole(r models.SpeakerRole) string {
	if r == models.SpeakerAssistant {
		return "model"
	}
	return "user"
}

// responseText 拼接第一个候选中的全部文本片段。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
