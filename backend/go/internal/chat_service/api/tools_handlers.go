package api

import (
	"Jarvis_chat/backend/go/internal/document"
	"Jarvis_chat/backend/go/internal/websearch"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	searchResultLimit = 5
	fetchContentTop   = 3
	uploadURLTTL      = 24 * time.Hour
)

type searchRequest struct {
	Query        string `json:"query"`
	FetchContent bool   `json:"fetchContent"`
}

// Search 执行联网搜索，fetchContent 为 true 时抓取前几个结果的正文。
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}
	if h.Searcher == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: web search is disabled"})
		return
	}

	results, err := h.Searcher.Search(c.Request.Context(), req.Query, searchResultLimit)
	if err != nil {
		h.Logger.WithErr(err).WithField("query", req.Query).Error("web search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}
	if results == nil {
		results = []websearch.Result{}
	}
	if req.FetchContent && len(results) > 0 {
		h.Searcher.Enrich(c.Request.Context(), results, fetchContentTop)
	}

	c.JSON(http.StatusOK, gin.H{
		"query":     req.Query,
		"results":   results,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ParseDocument 解析 multipart 上传的 file 字段。
func (h *Handler) ParseDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if fh.Size > h.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Failed to parse document: file exceeds %d bytes", h.MaxUploadBytes)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse document: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse document: " + err.Error()})
		return
	}

	parsed, err := h.Parser.Parse(fh.Filename, data)
	if errors.Is(err, document.ErrEmpty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if errors.Is(err, document.ErrRejected) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Failed to parse document: file type not allowed"})
		return
	}
	if err != nil {
		h.Logger.WithErr(err).WithField("file", fh.Filename).Error("document parsing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse document: " + err.Error()})
		return
	}

	body := gin.H{
		"text": parsed.Text,
		"type": parsed.Type,
		"name": parsed.Name,
		"size": parsed.Size,
	}
	if h.Uploader != nil {
		// 原始文件存储失败不影响解析结果
		if url, err := h.storeUpload(c, fh.Filename, parsed.Type, data); err != nil {
			h.Logger.WithErr(err).WithField("file", fh.Filename).Warn("failed to store upload")
		} else {
			body["url"] = url
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) storeUpload(c *gin.Context, name, contentType string, data []byte) (string, error) {
	ctx := c.Request.Context()
	object, err := h.Uploader.PutUpload(ctx, currentUser(c), name, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	return h.Uploader.PresignedURL(ctx, object, uploadURLTTL)
}
