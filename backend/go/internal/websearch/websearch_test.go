package websearch

import (
	"Jarvis_chat/backend/go/internal/config"
	apphttp "Jarvis_chat/backend/go/pkg/http"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgBody = `{
  "Answer": "42",
  "AnswerURL": "https://example.com/answer",
  "Abstract": "Go is a programming language.",
  "AbstractURL": "https://go.dev",
  "Heading": "Go",
  "RelatedTopics": [
    {"Text": "Gopher - the mascot", "FirstURL": "https://example.com/gopher"},
    {"Name": "Group", "Topics": []},
    {"Text": "Goroutine - lightweight thread", "FirstURL": "https://example.com/goroutine"},
    {"Text": "Channel - typed conduit", "FirstURL": "https://example.com/channel"}
  ]
}`

func newTestClient(t *testing.T, srvURL string, maxBody int64) *Client {
	t.Helper()
	doer, err := apphttp.NewClient(config.CircuitBreakerConfig{}, 2*time.Second)
	require.NoError(t, err)
	return NewClient(doer, config.SearchConfig{
		Endpoint:         srvURL,
		Timeout:          "2s",
		MaxBodyBytes:     maxBody,
		PageContentLimit: 2000,
		UserAgent:        "Mozilla/5.0 (compatible; ChatBot/1.0)",
	})
}

func TestSearchCollectsResultsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Mozilla/5.0 (compatible; ChatBot/1.0)", r.Header.Get("User-Agent"))
		w.Write([]byte(ddgBody))
	}))
	defer srv.Close()

	results, err := newTestClient(t, srv.URL, 1<<20).Search(context.Background(), "golang", 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "Instant Answer", results[0].Title)
	assert.Equal(t, "Go", results[1].Title)
	assert.Equal(t, "Gopher", results[2].Title)
	assert.Equal(t, "Goroutine", results[3].Title)
}

func TestSearchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/big" {
			w.Write([]byte(strings.Repeat("x", 64)))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 1<<20).Search(context.Background(), "q", 3)
	assert.Error(t, err)

	_, err = newTestClient(t, srv.URL, 16).FetchPageContent(context.Background(), srv.URL+"/big")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractMainContent(t *testing.T) {
	long := strings.Repeat("Useful paragraph text. ", 10)
	page := `<html><head><style>.x{}</style></head><body>
<header>Site header</header><nav>Menu</nav>
<div class="sidebar">short</div>
<article><p>` + long + `</p><script>var tracking = 1;</script></article>
<footer>Copyright</footer></body></html>`

	got, err := ExtractMainContent(strings.NewReader(page), 2000)
	require.NoError(t, err)
	assert.Contains(t, got, "Useful paragraph text.")
	assert.NotContains(t, got, "Menu")
	assert.NotContains(t, got, "tracking")
	assert.NotContains(t, got, "Copyright")
	assert.NotContains(t, got, "\n")
}

func TestExtractFallsBackToBodyAndTruncates(t *testing.T) {
	page := `<html><body><main>tiny</main><p>` + strings.Repeat("abc ", 100) + `</p></body></html>`
	got, err := ExtractMainContent(strings.NewReader(page), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "tiny"))
}

func TestEnrichFetchesTopPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><main>` + strings.Repeat("page body ", 20) + `</main></body></html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1<<20)
	results := []Result{
		{Title: "a", URL: srv.URL + "/a", Content: "old"},
		{Title: "b", URL: "", Content: "kept"},
		{Title: "c", URL: srv.URL + "/c", Content: "untouched"},
	}
	c.Enrich(context.Background(), results, 2)
	assert.Contains(t, results[0].Content, "page body")
	assert.Equal(t, "kept", results[1].Content)
	assert.Equal(t, "untouched", results[2].Content)
}
