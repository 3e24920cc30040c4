package service

import (
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/internal/websearch"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ErrMissingInput 表示请求既没有消息也没有附件。
var ErrMissingInput = errors.New("message or files are required")

// CompletionError 包装对话补全失败，请求因此失败。
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return "LLM API Error: " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error { return e.Err }

// MemoryProvider 提供记忆上下文，*memory/service.MemoryService 满足它。
type MemoryProvider interface {
	GetMemoryContext(ctx context.Context, userID uint, currentMessage string) string
}

// JobDispatcher 接收后台提取任务。
type JobDispatcher interface {
	Dispatch(job models.ExtractionJob)
}

// ConversationStore 用于把对话写入已有会话。CreateMessages 必须是原子的。
type ConversationStore interface {
	GetChat(ctx context.Context, userID uint, id string) (*models.Chat, error)
	CreateMessages(ctx context.Context, userID uint, msgs ...*models.Message) error
}

// ChatRequest 是一次对话请求。
type ChatRequest struct {
	Message    string                  `json:"message"`
	Files      []models.FileAttachment `json:"files"`
	SearchMode bool                    `json:"searchMode"`
	CanvasMode bool                    `json:"canvasMode"`
	History    []models.ChatMessage    `json:"history"`
	ChatID     string                  `json:"chatId,omitempty"`
}

// ChatResponse 是返回给调用方的回复。
type ChatResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"messageId,omitempty"`
}

// ChatOptions 是补全调用的参数。
type ChatOptions struct {
	Model         string
	MaxTokens     int
	Temperature   float32
	SearchResults int
}

// ChatService 编排一次对话请求：搜索、附件、记忆、补全，最后派发记忆提取。
type ChatService struct {
	completer  llm.Completer
	searcher   websearch.Searcher
	memory     MemoryProvider
	dispatcher JobDispatcher
	store      ConversationStore
	opts       ChatOptions
	logger     *logger.Logger
}

// NewChatService creates a ChatService. searcher and store may be nil.
func NewChatService(completer llm.Completer, searcher websearch.Searcher, memory MemoryProvider, dispatcher JobDispatcher, store ConversationStore, opts ChatOptions, log *logger.Logger) *ChatService {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.SearchResults <= 0 {
		opts.SearchResults = 3
	}
	return &ChatService{
		completer:  completer,
		searcher:   searcher,
		memory:     memory,
		dispatcher: dispatcher,
		store:      store,
		opts:       opts,
		logger:     log,
	}
}

// Respond 处理一次已认证的对话请求。
// 校验失败返回 ErrMissingInput，会话不存在返回 store 的 ErrNotFound，补全失败返回 *CompletionError。
// 其余外部调用失败都会降级，不影响回复。
func (s *ChatService) Respond(ctx context.Context, userID uint, req ChatRequest) (*ChatResponse, error) {
	log := s.logger.WithField("user_id", userID)

	// VALIDATE_INPUT
	if req.Message == "" && len(req.Files) == 0 {
		return nil, ErrMissingInput
	}
	if req.ChatID != "" && s.store != nil {
		if _, err := s.store.GetChat(ctx, userID, req.ChatID); err != nil {
			return nil, err
		}
	}

	// SEARCH
	var searchBlock string
	if req.SearchMode && req.Message != "" {
		searchBlock = s.search(ctx, log, req.Message)
	}

	// BUILD_USER_CONTENT
	userContent := BuildUserContent(req.Message, searchBlock, req.Files)

	// FETCH_CONTEXT
	memoryContext := ""
	if s.memory != nil {
		memoryContext = s.memory.GetMemoryContext(ctx, userID, req.Message)
	}

	// BUILD_SYSTEM_PROMPT + BUILD_MESSAGE_LIST
	messages := BuildMessages(BuildSystemPrompt(req.CanvasMode, memoryContext), req.History, userContent)
	log.WithPayload(map[string]interface{}{
		"messages":       len(messages),
		"content_length": len(userContent),
		"memory_length":  len(memoryContext),
	}).Debug("calling completion")

	askedAt := time.Now()

	// COMPLETE
	out, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	// RESPOND
	if strings.TrimSpace(out) == "" {
		out = FallbackResponse
	}
	resp := &ChatResponse{Response: out}
	userMsgID, assistantMsgID := s.persist(ctx, log, userID, req, askedAt, out)
	resp.MessageID = assistantMsgID

	// SCHEDULE_EXTRACTION
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(models.ExtractionJob{
			UserID:    userID,
			Message:   req.Message,
			Role:      models.SpeakerUser,
			ChatID:    req.ChatID,
			MessageID: userMsgID,
			CreatedAt: time.Now(),
		})
	}
	return resp, nil
}

func (s *ChatService) search(ctx context.Context, log *logger.Logger, query string) string {
	if s.searcher == nil {
		return SearchBlock(query, nil, errors.New("search disabled"))
	}
	results, err := s.searcher.Search(ctx, query, s.opts.SearchResults)
	if err != nil {
		log.WithErr(err).Warn("web search failed")
	}
	return SearchBlock(query, results, err)
}

// persist 在补全成功后把本轮问答一起写入会话，失败只记录日志。没有会话时返回空 ID。
func (s *ChatService) persist(ctx context.Context, log *logger.Logger, userID uint, req ChatRequest, askedAt time.Time, reply string) (string, string) {
	if req.ChatID == "" || s.store == nil {
		return "", ""
	}
	content := req.Message
	if content == "" && len(req.Files) > 0 {
		content = filesOnlyMessage
	}
	userMsg := &models.Message{
		ChatID:      req.ChatID,
		Role:        models.SpeakerUser,
		Content:     content,
		Attachments: datatypes.NewJSONSlice(req.Files),
		CreatedAt:   askedAt,
	}
	model := s.opts.Model
	assistantMsg := &models.Message{
		ChatID:      req.ChatID,
		Role:        models.SpeakerAssistant,
		Content:     reply,
		Attachments: datatypes.NewJSONSlice[models.FileAttachment](nil),
		CreatedAt:   time.Now(),
	}
	if model != "" {
		assistantMsg.ModelName = &model
	}
	if err := s.store.CreateMessages(ctx, userID, userMsg, assistantMsg); err != nil {
		log.WithErr(err).WithField("chat_id", req.ChatID).Warn("failed to persist exchange")
		return "", ""
	}
	return userMsg.ID, assistantMsg.ID
}
