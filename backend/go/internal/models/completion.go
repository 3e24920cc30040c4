package models

import "time"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerSystem    SpeakerRole = "system"    // 系统提示。
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
)

// Valid 判断角色是否为可持久化的消息角色。
func (r SpeakerRole) Valid() bool {
	return r == SpeakerSystem || r == SpeakerUser || r == SpeakerAssistant
}

// ChatMessage 是发送给补全接口的一条消息。
type ChatMessage struct {
	Role    SpeakerRole `json:"role"`
	Content string      `json:"content"`
}

// ExtractionJob 是一次后台记忆提取任务，本地队列和 Kafka 共用这个载荷。
type ExtractionJob struct {
	UserID    uint        `json:"userId"`
	Message   string      `json:"message"`
	Role      SpeakerRole `json:"role"`
	ChatID    string      `json:"chatId,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}
