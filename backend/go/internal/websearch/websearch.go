package websearch

import (
	"Jarvis_chat/backend/go/internal/config"
	apphttp "Jarvis_chat/backend/go/pkg/http"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrTooLarge 表示响应体超过了配置的上限。
var ErrTooLarge = apphttp.ErrTooLarge

// Result 是一条搜索结果。
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"`
}

// Searcher 是对话编排使用的搜索接口。
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Doer 发送 HTTP 请求，*apphttp.Client 满足它。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 调用 DuckDuckGo instant answer 接口并抓取网页正文。
type Client struct {
	doer         Doer
	endpoint     string
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	contentLimit int
}

// NewClient creates a search client.
func NewClient(doer Doer, cfg config.SearchConfig) *Client {
	return &Client{
		doer:         doer,
		endpoint:     cfg.Endpoint,
		userAgent:    cfg.UserAgent,
		timeout:      config.Duration(cfg.Timeout, 10*time.Second),
		maxBodyBytes: cfg.MaxBodyBytes,
		contentLimit: cfg.PageContentLimit,
	}
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

type ddgResponse struct {
	Answer        string          `json:"Answer"`
	AnswerURL     string          `json:"AnswerURL"`
	Abstract      string          `json:"Abstract"`
	AbstractURL   string          `json:"AbstractURL"`
	Heading       string          `json:"Heading"`
	RelatedTopics json.RawMessage `json:"RelatedTopics"`
}

// Search 返回最多 maxResults 条结果：即时答案、摘要，然后是相关主题。
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	var resp ddgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("web search: decode response: %w", err)
	}
	return collect(resp, maxResults), nil
}

func collect(resp ddgResponse, maxResults int) []Result {
	results := make([]Result, 0, maxResults)
	if resp.Answer != "" {
		results = append(results, Result{Title: "Instant Answer", URL: resp.AnswerURL, Snippet: resp.Answer, Content: resp.Answer})
	}
	if resp.Abstract != "" {
		title := resp.Heading
		if title == "" {
			title = "Abstract"
		}
		results = append(results, Result{Title: title, URL: resp.AbstractURL, Snippet: resp.Abstract, Content: resp.Abstract})
	}

	// RelatedTopics 里可能混有分组对象，解析失败的条目直接忽略
	var topics []ddgTopic
	_ = json.Unmarshal(resp.RelatedTopics, &topics)
	for _, t := range topics {
		if len(results) >= maxResults {
			break
		}
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		title := strings.SplitN(t.Text, " - ", 2)[0]
		if title == "" {
			title = "Related Topic"
		}
		results = append(results, Result{Title: title, URL: t.FirstURL, Snippet: t.Text, Content: t.Text})
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// FetchPageContent 抓取网页并提取正文文本。
func (c *Client) FetchPageContent(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return ExtractMainContent(strings.NewReader(string(body)), c.contentLimit)
}

// Enrich 为前 n 条带 http 链接的结果抓取正文，单条失败只保留原有内容。
func (c *Client) Enrich(ctx context.Context, results []Result, n int) {
	var g errgroup.Group
	for i := 0; i < len(results) && i < n; i++ {
		if !strings.HasPrefix(results[i].URL, "http") {
			continue
		}
		g.Go(func() error {
			if content, err := c.FetchPageContent(ctx, results[i].URL); err == nil {
				results[i].Content = content
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	limit := c.maxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := apphttp.ReadLimited(resp.Body, limit)
	if errors.Is(err, apphttp.ErrTooLarge) {
		return nil, ErrTooLarge
	}
	return body, err
}
