package api

import (
	"Jarvis_chat/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。limiter 为 nil 时不做按用户限流。
func SetupRouter(h *Handler, jwtSecret string, limiter ratelimiter.KeyedLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Logger))

	// 创建认证中间件实例
	authMiddleware := AuthMiddleware(jwtSecret)

	// 使用 v1 版本对 API 进行分组
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", h.Health)

		// 用户认证路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", h.RegisterEmail)
			auth.POST("/login", h.LoginEmail)
		}

		// 以下路由都需要登录
		authed := apiV1.Group("")
		authed.Use(authMiddleware)
		if limiter != nil {
			authed.Use(UserRateLimit(limiter, h.Logger))
		}
		{
			authed.POST("/chat", h.Respond)

			authed.GET("/memory", h.ListMemories)
			authed.POST("/memory", h.SetMemory)
			authed.DELETE("/memory", h.DeleteMemory)

			authed.GET("/chats", h.ListChats)
			authed.POST("/chats", h.CreateChat)
			authed.GET("/chats/:id", h.GetChat)
			authed.PUT("/chats/:id", h.UpdateChat)
			authed.DELETE("/chats/:id", h.DeleteChat)
			authed.GET("/chats/:id/messages", h.ListMessages)
			authed.POST("/chats/:id/messages", h.CreateMessage)

			authed.GET("/folders", h.ListFolders)
			authed.GET("/folders/tree", h.FolderTree)
			authed.POST("/folders", h.CreateFolder)
			authed.PUT("/folders/:id", h.UpdateFolder)
			authed.DELETE("/folders/:id", h.DeleteFolder)

			authed.POST("/search", h.Search)
			authed.POST("/parse-document", h.ParseDocument)
		}
	}

	return r
}
