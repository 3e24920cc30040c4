package models

import "time"

// SemanticMemory 是一段带向量的自由文本记忆，创建后不可修改。
type SemanticMemory struct {
	ID              string    `json:"id"`
	UserID          uint      `json:"user_id"`
	Content         string    `json:"content"`
	Embedding       []float32 `json:"-"`
	SourceChatID    string    `json:"source_chat_id,omitempty"`
	SourceMessageID string    `json:"source_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SemanticHit 是一次相似度检索的命中结果。
type SemanticHit struct {
	SemanticMemory
	Similarity float32 `json:"similarity"`
}
