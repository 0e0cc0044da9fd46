package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running llmshell daemon.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Headers are added to every request; the TUI uses this to tag its
	// polling so the server skips access-logging it.
	Headers map[string]string
}

// DefaultConfig targets a local daemon on the default port.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8776",
		Timeout: 30 * time.Second,
	}
}

// New creates an API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		headers: cfg.Headers,
	}
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Start launches a command and returns the post-settle status. The call
// blocks for up to the server's settle delay.
func (c *Client) Start(ctx context.Context, command string) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodPost, "/start?format=json", strings.NewReader(command), "text/plain", &st)
	return st, err
}

// Status fetches the current child's status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/status?format=json", nil, "", &st)
	return st, err
}

// Kill terminates the child with SIGTERM or SIGKILL.
func (c *Client) Kill(ctx context.Context, signalType string) (KillResult, error) {
	var res KillResult
	path := "/kill?format=json"
	if signalType != "" {
		path += "&type=" + url.QueryEscape(signalType)
	}
	err := c.do(ctx, http.MethodPost, path, nil, "", &res)
	return res, err
}

// Restart stops the child (graceful up to timeoutSecs) and starts the
// remembered command again. timeoutSecs < 0 uses the server default.
func (c *Client) Restart(ctx context.Context, timeoutSecs int) (Status, error) {
	var st Status
	path := "/restart?format=json"
	if timeoutSecs >= 0 {
		path += "&timeout=" + strconv.Itoa(timeoutSecs)
	}
	err := c.do(ctx, http.MethodPost, path, nil, "", &st)
	return st, err
}

// Logs fetches the current run's log lines. Pass lines or seconds > 0 to
// filter; both zero returns everything.
func (c *Client) Logs(ctx context.Context, lines, seconds int) (string, error) {
	path := "/logs"
	switch {
	case lines > 0:
		path += "?lines=" + strconv.Itoa(lines)
	case seconds > 0:
		path += "?seconds=" + strconv.Itoa(seconds)
	}
	body, _, err := c.raw(ctx, http.MethodGet, path, nil, "")
	return string(body), err
}

// Health checks the daemon is up.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, "", &h)
	return h, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	b, _, err := c.raw(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(b)}
	}
	return b, resp.StatusCode, nil
}

// errorMessage extracts the message from either error body shape.
func errorMessage(b []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimPrefix(strings.TrimSpace(string(b)), "error: ")
}
