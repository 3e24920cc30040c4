package api

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"Jarvis_chat/backend/go/pkg/ratelimiter"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const userIDKey = "userID"

// AuthMiddleware 创建一个 Gin 中间件，用于验证 JWT。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 我们期望的格式是 "Bearer <token>"
		parts := strings.Split(c.GetHeader("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// 确保 token 的签名方法是我们期望的
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("非预期的签名方法")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c)
			return
		}
		sub, ok := claims["sub"].(float64) // JWT 解析数字时默认为 float64
		if !ok || sub <= 0 {
			unauthorized(c)
			return
		}

		c.Set(userIDKey, uint(sub))
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

// UserRateLimit 按用户限流，必须挂在 AuthMiddleware 之后。
// 限流器本身出错时放行请求。
func UserRateLimit(limiter ratelimiter.KeyedLimiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strconv.FormatUint(uint64(c.GetUint(userIDKey)), 10)
		ok, err := limiter.AllowKey(c.Request.Context(), key)
		if err != nil {
			log.WithErr(err).WithField("user_id", key).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// RequestLogger 记录每个请求的方法、路径、状态码和耗时。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMs:  time.Since(start).Milliseconds(),
		})
		if uid := c.GetUint(userIDKey); uid != 0 {
			entry = entry.WithField("user_id", uid)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
