package api

import (
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/models"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// --- Chats ---

// ListChats 返回会话列表。folderId=null 只返回根目录下的会话。
func (h *Handler) ListChats(c *gin.Context) {
	var filter *store.FolderFilter
	if folderID, ok := c.GetQuery("folderId"); ok {
		if folderID == "null" || folderID == "" {
			filter = &store.FolderFilter{Root: true}
		} else {
			filter = &store.FolderFilter{FolderID: folderID}
		}
	}

	chats, err := h.Store.ListChats(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.internalError(c, "Failed to fetch chats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type createChatRequest struct {
	Title    string          `json:"title"`
	FolderID *string         `json:"folderId"`
	Type     models.ChatType `json:"type"`
}

// CreateChat 创建会话。
func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Type != "" && !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat type"})
		return
	}
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
	}

	chat := &models.Chat{
		UserID:   currentUser(c),
		Title:    req.Title,
		FolderID: req.FolderID,
		Type:     req.Type,
	}
	err := h.Store.CreateChat(c.Request.Context(), chat)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Folder not found"})
		return
	case err != nil:
		h.internalError(c, "Failed to create chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// GetChat 返回一个会话。
func (h *Handler) GetChat(c *gin.Context) {
	chat, err := h.Store.GetChat(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.chatError(c, err, "Failed to fetch chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

type updateChatRequest struct {
	Title       optional[string] `json:"title"`
	Description optional[string] `json:"description"`
	FolderID    optional[string] `json:"folderId"`
	IsPinned    optional[bool]   `json:"isPinned"`
}

// UpdateChat 部分更新会话，folderId 为 null 时移出文件夹。
func (h *Handler) UpdateChat(c *gin.Context) {
	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := store.ChatUpdate{
		Title:       req.Title.ptr(),
		Description: req.Description.ptr(),
		IsPinned:    req.IsPinned.ptr(),
		SetFolder:   req.FolderID.Set,
		FolderID:    req.FolderID.ptr(),
	}
	chat, err := h.Store.UpdateChat(c.Request.Context(), currentUser(c), c.Param("id"), upd)
	if err != nil {
		h.chatError(c, err, "Failed to update chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// DeleteChat 归档会话。
func (h *Handler) DeleteChat(c *gin.Context) {
	if err := h.Store.ArchiveChat(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.internalError(c, "Failed to delete chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) chatError(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	h.internalError(c, msg, err)
}

// --- Messages ---

// ListMessages 返回会话中未删除的消息，按时间正序。
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.Store.ListMessages(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.chatError(c, err, "Failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type createMessageRequest struct {
	Content string             `json:"content"`
	Role    models.SpeakerRole `json:"role"`
}

// CreateMessage 向会话追加一条消息。
func (h *Handler) CreateMessage(c *gin.Context) {
	userID := currentUser(c)
	if _, err := h.Store.GetChat(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.chatError(c, err, "Failed to create message")
		return
	}

	var req createMessageRequest
	_ = c.ShouldBindJSON(&req)
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message role"})
		return
	}

	msg := &models.Message{ChatID: c.Param("id"), Role: req.Role, Content: content}
	if err := h.Store.CreateMessage(c.Request.Context(), userID, msg); err != nil {
		h.chatError(c, err, "Failed to create message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// --- Folders ---

// ListFolders 返回当前用户的文件夹。
func (h *Handler) ListFolders(c *gin.Context) {
	folders, err := h.Store.ListFolders(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, "Failed to fetch folders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// FolderTree 返回嵌套的文件夹树。
func (h *Handler) FolderTree(c *gin.Context) {
	tree, err := h.Store.FolderTree(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, "Failed to fetch folders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": tree})
}

type createFolderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
}

// CreateFolder 创建文件夹。
func (h *Handler) CreateFolder(c *gin.Context) {
	var req createFolderRequest
	_ = c.ShouldBindJSON(&req)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Folder name is required"})
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	folder := &models.Folder{
		UserID:      currentUser(c),
		Name:        name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Color:       req.Color,
		Icon:        req.Icon,
	}
	if err := h.Store.CreateFolder(c.Request.Context(), folder); err != nil {
		h.folderError(c, err, "Failed to create folder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"folder": folder})
}

type updateFolderRequest struct {
	Name        optional[string] `json:"name"`
	Description optional[string] `json:"description"`
	Color       optional[string] `json:"color"`
	Icon        optional[string] `json:"icon"`
	ParentID    optional[string] `json:"parentId"`
}

// UpdateFolder 部分更新文件夹，parentId 为 null 时移到根目录。
func (h *Handler) UpdateFolder(c *gin.Context) {
	var req updateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if name := req.Name.ptr(); name != nil && strings.TrimSpace(*name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Folder name is required"})
		return
	}

	upd := store.FolderUpdate{
		Name:        req.Name.ptr(),
		Description: req.Description.ptr(),
		Color:       req.Color.ptr(),
		Icon:        req.Icon.ptr(),
		SetParent:   req.ParentID.Set,
		ParentID:    req.ParentID.ptr(),
	}
	folder, err := h.Store.UpdateFolder(c.Request.Context(), currentUser(c), c.Param("id"), upd)
	if err != nil {
		h.folderError(c, err, "Failed to update folder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"folder": folder})
}

// DeleteFolder 归档文件夹。
func (h *Handler) DeleteFolder(c *gin.Context) {
	if err := h.Store.ArchiveFolder(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.internalError(c, "Failed to delete folder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) folderError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Folder not found"})
	case errors.Is(err, store.ErrInvalidParent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent folder"})
	default:
		h.internalError(c, msg, err)
	}
}
