package api

import (
	"Jarvis_chat/backend/go/internal/chat_service/service"
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/document"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/internal/websearch"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MemoryManager 是记忆接口需要的操作，*memory/service.MemoryService 满足它。
type MemoryManager interface {
	SetMemory(ctx context.Context, userID uint, key, value string, category models.FactCategory) (*models.Fact, error)
	GetAllMemories(ctx context.Context, userID uint) ([]models.Fact, error)
	GetMemoriesByCategory(ctx context.Context, userID uint, category models.FactCategory) ([]models.Fact, error)
	DeleteMemory(ctx context.Context, userID uint, key string) error
}

// WebSearcher 是搜索接口需要的操作，*websearch.Client 满足它。
type WebSearcher interface {
	websearch.Searcher
	Enrich(ctx context.Context, results []websearch.Result, n int)
}

// Uploader 保存上传的原始文件，*store.ObjectStore 满足它。
type Uploader interface {
	PutUpload(ctx context.Context, userID uint, name, contentType string, r io.Reader, size int64) (string, error)
	PresignedURL(ctx context.Context, object string, ttl time.Duration) (string, error)
}

// HealthCheck 检查一个外部依赖。
type HealthCheck func(ctx context.Context) error

// Deps 是 Handler 的依赖。Searcher、Uploader 可以为 nil。
type Deps struct {
	Auth           *service.AuthService
	Chat           *service.ChatService
	Memory         MemoryManager
	Store          *store.Store
	Searcher       WebSearcher
	Parser         *document.Parser
	Uploader       Uploader
	HealthChecks   map[string]HealthCheck
	MaxUploadBytes int64
	Development    bool
	Logger         *logger.Logger
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	Deps
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(deps Deps) *Handler {
	if deps.Parser == nil {
		deps.Parser = document.NewParser()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 20 << 20
	}
	if deps.Logger == nil {
		deps.Logger = logger.New("chat_service", "", "")
	}
	return &Handler{Deps: deps}
}

func currentUser(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

// internalError 返回 500，开发环境下附带 details。
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.Logger.WithErr(err).WithField("path", c.FullPath()).Error(msg)
	body := gin.H{"error": msg}
	if h.Development && err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// --- Registration and Login Handlers ---

// RegisterEmailRequest 定义了邮箱注册请求的 JSON 结构。
type RegisterEmailRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username" binding:"required"`
	FullName string `json:"fullName"`
}

// RegisterEmail 处理邮箱注册请求。
func (h *Handler) RegisterEmail(c *gin.Context) {
	var req RegisterEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password, req.Username, req.FullName)
	if errors.Is(err, store.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to register user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "注册成功", "user_id": user.ID})
}

// LoginEmailRequest 定义了邮箱登录请求的 JSON 结构。
type LoginEmailRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginEmail 处理邮箱登录请求。
func (h *Handler) LoginEmail(c *gin.Context) {
	var req LoginEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, "Failed to login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// --- Chat ---

// Respond 处理一次对话请求。
func (h *Handler) Respond(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message or files are required"})
		return
	}

	resp, err := h.Chat.Respond(c.Request.Context(), currentUser(c), req)
	var completionErr *service.CompletionError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message or files are required"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
	case errors.As(err, &completionErr):
		h.Logger.WithErr(err).Error("chat completion failed")
		body := gin.H{"error": "Failed to process your request: " + completionErr.Error()}
		if h.Development {
			body["details"] = completionErr.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	default:
		h.internalError(c, "Failed to process your request: "+err.Error(), err)
	}
}

// --- Health ---

// Health 检查已配置的外部依赖，任一失败返回 503。
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = gin.H{"status": "error", "details": err.Error()}
			continue
		}
		checks[name] = gin.H{"status": "ok"}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
