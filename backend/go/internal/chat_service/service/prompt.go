package service

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/internal/websearch"
	"fmt"
	"strings"
)

const (
	normalSystemPrompt = "You are a helpful AI assistant with web search capabilities. You can analyze text files, images, documents, and search the web for current information. When provided with search results, integrate them naturally into your response and cite sources when relevant. Provide clear and detailed responses based on all available information."
	canvasSystemPrompt = "You are a helpful AI assistant in canvas mode. Focus on creating well-structured, detailed content suitable for editing and iteration. Format your responses with proper headings, sections, and markdown when appropriate. Create comprehensive content that can be refined and edited. This content will be displayed in an editable panel for the user to modify and iterate on."

	memoryInstruction = "\nUse this information to personalize your responses and reference relevant context from previous conversations."
	filesOnlyMessage  = "Please analyze the attached files."

	// FallbackResponse 在模型返回空内容时使用。
	FallbackResponse = "I apologize, but I could not generate a response."
)

// SearchBlock 渲染附加在用户消息后的搜索结果段落。err 不为 nil 时渲染不可用提示。
func SearchBlock(query string, results []websearch.Result, err error) string {
	if err != nil {
		return "\n\n🔍 **WEB SEARCH**: Currently unavailable. Please provide information based on general knowledge."
	}
	if len(results) == 0 {
		return "\n\n🔍 **WEB SEARCH**: No current results found for \"" + query + "\". Please provide information based on general knowledge."
	}

	items := make([]string, 0, len(results))
	for i, r := range results {
		item := fmt.Sprintf("**%d. %s**\n%s", i+1, r.Title, r.Snippet)
		if r.URL != "" {
			item += "\nSource: " + r.URL
		}
		items = append(items, item+"\n")
	}
	return "\n\n🔍 **WEB SEARCH RESULTS** for \"" + query + "\":\n\n" +
		strings.Join(items, "\n") +
		"\n*Note: Please use this current web information to provide an accurate and up-to-date response.*"
}

// RenderFile 渲染一个附件。图片只标注存在，不内联数据。
func RenderFile(f models.FileAttachment) string {
	if f.Content == "" {
		return fmt.Sprintf("\n\nFile: %s (%s, %d bytes) - No content extracted", f.Name, f.Type, f.Size)
	}
	name := strings.ToLower(f.Name)
	switch {
	case strings.HasPrefix(f.Type, "text/") || f.Type == "application/json":
		return fmt.Sprintf("\n\nFile: %s\nContent:\n%s", f.Name, f.Content)
	case strings.HasPrefix(f.Type, "image/"):
		return fmt.Sprintf("\n\nImage: %s (image data provided)", f.Name)
	case f.Type == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" || strings.HasSuffix(name, ".docx"):
		return fmt.Sprintf("\n\nDocument: %s\nExtracted Text:\n%s", f.Name, f.Content)
	case f.Type == "application/pdf" || strings.HasSuffix(name, ".pdf"):
		return fmt.Sprintf("\n\nPDF: %s\nContent:\n%s", f.Name, f.Content)
	default:
		return fmt.Sprintf("\n\nFile: %s\nContent:\n%s", f.Name, f.Content)
	}
}

// BuildUserContent 拼接用户消息、搜索结果和附件。
func BuildUserContent(message, searchBlock string, files []models.FileAttachment) string {
	var sb strings.Builder
	if message != "" {
		sb.WriteString(message)
	} else {
		sb.WriteString(filesOnlyMessage)
	}
	sb.WriteString(searchBlock)
	for _, f := range files {
		sb.WriteString(RenderFile(f))
	}
	return sb.String()
}

// BuildSystemPrompt 选择模板并追加记忆块。
func BuildSystemPrompt(canvas bool, memoryContext string) string {
	prompt := normalSystemPrompt
	if canvas {
		prompt = canvasSystemPrompt
	}
	if memoryContext != "" {
		prompt += "\n\n" + memoryContext + memoryInstruction
	}
	return prompt
}

// BuildMessages 按 system、历史、当前用户消息的顺序组装消息。
// 历史中除 user 外的角色都映射为 assistant。
func BuildMessages(systemPrompt string, history []models.ChatMessage, userContent string) []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, models.ChatMessage{Role: models.SpeakerSystem, Content: systemPrompt})
	for _, h := range history {
		role := models.SpeakerAssistant
		if h.Role == models.SpeakerUser {
			role = models.SpeakerUser
		}
		msgs = append(msgs, models.ChatMessage{Role: role, Content: h.Content})
	}
	return append(msgs, models.ChatMessage{Role: models.SpeakerUser, Content: userContent})
}
