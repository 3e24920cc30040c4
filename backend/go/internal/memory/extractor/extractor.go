package extractor

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPayload 表示模型输出不符合约定的 JSON 结构，整份输出都不可信。
var ErrInvalidPayload = errors.New("extractor: invalid extraction payload")

// Extractor 从一条消息中提取值得记住的信息。
type Extractor interface {
	Extract(ctx context.Context, message string, role models.SpeakerRole) (*Extraction, error)
}

// ExtractedFact 是模型给出的一条键值记忆。
type ExtractedFact struct {
	Key      string              `json:"key"`
	Value    string              `json:"value"`
	Category models.FactCategory `json:"category"`
}

// Extraction 是一次提取的结果，只有通过 Parse 校验的才会被返回。
type Extraction struct {
	Facts           []ExtractedFact `json:"facts"`
	ShouldRemember  bool            `json:"should_remember"`
	SemanticSummary string          `json:"semantic_summary"`
}

// 指针字段用于区分缺失和零值
type rawFact struct {
	Key      *string `json:"key"`
	Value    *string `json:"value"`
	Category *string `json:"category"`
}

type rawExtraction struct {
	Facts           *[]rawFact `json:"facts"`
	ShouldRemember  *bool      `json:"should_remember"`
	SemanticSummary *string    `json:"semantic_summary"`
}

// Parse 严格解析模型输出：允许外层包一层 markdown 代码块，
// 不允许未知字段、缺失字段、非法类别、空 key/value 或多余内容。
// should_remember 为 true 时 semantic_summary 必须非空。
func Parse(output string) (*Extraction, error) {
	body := stripCodeFence(output)
	if body == "" {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidPayload)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var raw rawExtraction
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrInvalidPayload)
	}

	if raw.Facts == nil || raw.ShouldRemember == nil {
		return nil, fmt.Errorf("%w: facts and should_remember are required", ErrInvalidPayload)
	}

	out := &Extraction{ShouldRemember: *raw.ShouldRemember}
	if raw.SemanticSummary != nil {
		out.SemanticSummary = strings.TrimSpace(*raw.SemanticSummary)
	}
	if out.ShouldRemember && out.SemanticSummary == "" {
		return nil, fmt.Errorf("%w: semantic_summary is required when should_remember is true", ErrInvalidPayload)
	}

	for i, f := range *raw.Facts {
		if f.Key == nil || f.Value == nil || f.Category == nil {
			return nil, fmt.Errorf("%w: fact %d is missing key, value or category", ErrInvalidPayload, i)
		}
		fact := ExtractedFact{
			Key:      strings.TrimSpace(*f.Key),
			Value:    strings.TrimSpace(*f.Value),
			Category: models.FactCategory(strings.TrimSpace(*f.Category)),
		}
		if fact.Key == "" || fact.Value == "" {
			return nil, fmt.Errorf("%w: fact %d has empty key or value", ErrInvalidPayload, i)
		}
		if !fact.Category.Valid() {
			return nil, fmt.Errorf("%w: fact %d has invalid category %q", ErrInvalidPayload, i, fact.Category)
		}
		out.Facts = append(out.Facts, fact)
	}
	return out, nil
}

// stripCodeFence 去掉 ```json ... ``` 包裹。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// 第一行是语言标记，例如 json
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
