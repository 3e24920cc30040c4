package http

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/pkg/circuitbreaker"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTooLarge is returned by ReadLimited when a body exceeds the limit.
var ErrTooLarge = errors.New("response body too large")

// Client wraps http.Client with an optional circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a Client with the given per-request timeout.
// The breaker is only installed when cfg.Enabled.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	hc := &http.Client{Timeout: timeout}
	if !cfg.Enabled {
		return &Client{httpClient: hc}, nil
	}

	breaker, err := NewCircuitBreaker(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{httpClient: hc, breaker: breaker}, nil
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ReadLimited reads at most limit bytes of body, failing with ErrTooLarge beyond that.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
