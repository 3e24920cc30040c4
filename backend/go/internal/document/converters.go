package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/v2/document"
	"github.com/xuri/excelize/v2"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// --- PDF ---

type PdfConverter struct{}

func NewPdfConverter() *PdfConverter { return &PdfConverter{} }

func (PdfConverter) AcceptedMimeTypes() []string  { return []string{mimePDF} }
func (PdfConverter) AcceptedExtensions() []string { return []string{".pdf"} }

// Convert 按页提取纯文本。解析器遇到损坏的文件可能 panic，这里转成错误。
func (PdfConverter) Convert(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s, nil
	}
	return "[PDF contains no readable text]", nil
}

// --- DOCX ---

type DocxConverter struct{}

func NewDocxConverter() *DocxConverter { return &DocxConverter{} }

func (DocxConverter) AcceptedMimeTypes() []string  { return []string{mimeDOCX} }
func (DocxConverter) AcceptedExtensions() []string { return []string{".docx"} }

// Convert 拼接所有段落的文本，每段一行。
func (DocxConverter) Convert(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		sb.WriteString("\n")
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		return s, nil
	}
	return "[DOCX contains no readable text]", nil
}

// --- XLSX ---

type XlsxConverter struct{}

func NewXlsxConverter() *XlsxConverter { return &XlsxConverter{} }

func (XlsxConverter) AcceptedMimeTypes() []string  { return []string{mimeXLSX} }
func (XlsxConverter) AcceptedExtensions() []string { return []string{".xlsx"} }

// Convert 把每个工作表转为一张 markdown 表格。
func (XlsxConverter) Convert(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}

		fmt.Fprintf(&sb, "## %s\n\n", sheet)
		for i, row := range rows {
			cells := make([]string, width)
			copy(cells, row)
			sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			if i == 0 {
				sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// --- Text ---

type TextConverter struct{}

func NewTextConverter() *TextConverter { return &TextConverter{} }

func (TextConverter) AcceptedMimeTypes() []string {
	return []string{"text/plain", "text/csv", "text/html", "text/markdown", "application/json"}
}

func (TextConverter) AcceptedExtensions() []string {
	return []string{".txt", ".md", ".csv", ".json", ".log"}
}

func (TextConverter) Convert(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}
