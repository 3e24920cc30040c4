package api

import (
	memstore "Jarvis_chat/backend/go/internal/memory/store"
	"Jarvis_chat/backend/go/internal/models"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListMemories 返回当前用户的记忆，可按 category 过滤。
func (h *Handler) ListMemories(c *gin.Context) {
	var (
		facts []models.Fact
		err   error
	)
	if category := c.Query("category"); category != "" {
		if !models.FactCategory(category).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		facts, err = h.Memory.GetMemoriesByCategory(c.Request.Context(), currentUser(c), models.FactCategory(category))
	} else {
		facts, err = h.Memory.GetAllMemories(c.Request.Context(), currentUser(c))
	}
	if err != nil {
		h.internalError(c, "Internal server error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": facts})
}

type setMemoryRequest struct {
	Key      string              `json:"key"`
	Value    string              `json:"value"`
	Category models.FactCategory `json:"category"`
}

// SetMemory 写入或覆盖一条记忆。
func (h *Handler) SetMemory(c *gin.Context) {
	var req setMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Key) == "" || strings.TrimSpace(req.Value) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key and value are required"})
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryFact
	}
	if !req.Category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	fact, err := h.Memory.SetMemory(c.Request.Context(), currentUser(c), req.Key, req.Value, req.Category)
	switch {
	case errors.Is(err, memstore.ErrEmptyField):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key and value are required"})
		return
	case err != nil:
		h.internalError(c, "Database error: "+err.Error(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "memory": fact})
}

// DeleteMemory 删除一条记忆，key 可以放在 body 或 query 中。
func (h *Handler) DeleteMemory(c *gin.Context) {
	var req struct {
		Key string `json:"key"`
	}
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = strings.TrimSpace(c.Query("key"))
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key is required"})
		return
	}

	if err := h.Memory.DeleteMemory(c.Request.Context(), currentUser(c), key); err != nil {
		h.internalError(c, "Failed to delete memory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
