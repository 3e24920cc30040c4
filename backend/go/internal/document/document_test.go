package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseText(t *testing.T) {
	p := NewParser()

	got, err := p.Parse("notes.txt", []byte("hello world\nsecond line"))
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", got.Text)
	assert.Equal(t, int64(23), got.Size)
	assert.True(t, strings.HasPrefix(got.Type, "text/plain"))

	got, err = p.Parse("data.json", []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got.Text)
}

func TestParseXlsxAsMarkdownTable(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"ana", 9}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := NewParser().Parse("scores.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, got.Text, "## Sheet1")
	assert.Contains(t, got.Text, "| name | score |")
	assert.Contains(t, got.Text, "| ana | 9 |")
}

func TestParseUnsupportedAndEmpty(t *testing.T) {
	p := NewParser()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	got, err := p.Parse("pic.png", png)
	require.NoError(t, err)
	assert.Equal(t, "[image/png file - content cannot be extracted]", got.Text)

	_, err = p.Parse("empty.txt", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRejectNames(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.RejectNames("*.exe", "*.{dll,so}"))

	_, err := p.Parse("Setup.EXE", []byte("MZ"))
	assert.ErrorIs(t, err, ErrRejected)
	_, err = p.Parse("dir/lib.so", []byte("x"))
	assert.ErrorIs(t, err, ErrRejected)

	got, err := p.Parse("readme.txt", []byte("fine"))
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Text)

	assert.Error(t, p.RejectNames("[z-a]"))
}
