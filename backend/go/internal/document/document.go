package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
)

var (
	// ErrEmpty 表示上传的文件为空。
	ErrEmpty = errors.New("document: empty file")
	// ErrRejected 表示文件名命中了拒绝列表。
	ErrRejected = errors.New("document: file type not allowed")
)

// Converter 把一种格式的文件内容转为纯文本或 markdown。
type Converter interface {
	AcceptedMimeTypes() []string
	AcceptedExtensions() []string
	Convert(data []byte) (string, error)
}

// Parsed 是一次解析的结果。
type Parsed struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Parser 管理已注册的转换器。
type Parser struct {
	Converters []Converter
	rejected   []glob.Glob
}

// NewParser 注册 PDF、DOCX、XLSX 和文本转换器。
func NewParser() *Parser {
	p := &Parser{}
	p.RegisterConverter(NewPdfConverter())
	p.RegisterConverter(NewDocxConverter())
	p.RegisterConverter(NewXlsxConverter())
	p.RegisterConverter(NewTextConverter())
	return p
}

// RegisterConverter adds a converter.
func (p *Parser) RegisterConverter(c Converter) {
	p.Converters = append(p.Converters, c)
}

// RejectNames 编译文件名模式，例如 "*.exe"、"*.{dll,so}"，匹配时忽略大小写。
func (p *Parser) RejectNames(patterns ...string) error {
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return fmt.Errorf("invalid reject pattern %q: %w", pattern, err)
		}
		p.rejected = append(p.rejected, g)
	}
	return nil
}

func (p *Parser) isRejected(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	for _, g := range p.rejected {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Parse 按内容嗅探 MIME 类型，再结合文件扩展名选择转换器。
// 没有合适的转换器时返回占位说明而不是错误。
func (p *Parser) Parse(name string, data []byte) (*Parsed, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if p.isRejected(name) {
		return nil, ErrRejected
	}
	mtype := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(name))

	out := &Parsed{Name: name, Size: int64(len(data)), Type: mtype.String()}
	for _, c := range p.Converters {
		if !accepts(mtype, ext, c) {
			continue
		}
		text, err := c.Convert(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out.Text = text
		return out, nil
	}

	out.Text = fmt.Sprintf("[%s file - content cannot be extracted]", baseType(mtype.String()))
	return out, nil
}

func accepts(mtype *mimetype.MIME, ext string, c Converter) bool {
	if slices.ContainsFunc(c.AcceptedMimeTypes(), mtype.Is) {
		return true
	}
	// zip 容器或纯文本的嗅探结果不够精确，再看扩展名
	generic := mtype.Is("application/zip") || mtype.Is("text/plain") || mtype.Is("application/octet-stream")
	return generic && slices.Contains(c.AcceptedExtensions(), ext)
}

func baseType(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		return m[:i]
	}
	return m
}
