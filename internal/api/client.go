package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foliotalk/foliotalk/internal/storage"
)

const defaultTimeout = 10 * time.Second

// Meta carries the pagination envelope returned by list endpoints
type Meta struct {
	CurrentPage int `json:"current_page"`
	NextPage    int `json:"next_page"`
	PrevPage    int `json:"prev_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

// envelope is the service's uniform response wrapper {status, data, meta?}
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Meta   *Meta           `json:"meta"`
	Error  *errorBody      `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client talks to the FolioTalk REST backend. It owns the bearer token pair
// and the single-flight refresh coordinator; it is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    *storage.TokenStore
	refresher *refresher
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides the fixed client-side request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates an API client for the given base URL
func NewClient(baseURL string, tokens *storage.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
	c.refresher = newRefresher(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON performs an authenticated GET and decodes the data payload
func (c *Client) getJSON(ctx context.Context, path string, out any) (*Meta, error) {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// postJSON performs an authenticated POST with a JSON body
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) (*Meta, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, payload, "application/json", out)
}

// do sends one request, handling the auth contract: bearer header, 401
// session teardown, and the 403 token-expired refresh-and-retry-once path.
// The body is kept as bytes so the retry can replay it.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) (*Meta, error) {
	meta, retry, err := c.send(ctx, method, path, body, contentType, out)
	if !retry {
		return meta, err
	}

	// Token expired: queue behind the one in-flight refresh, then retry once
	if _, rerr := c.refresher.refresh(ctx); rerr != nil {
		return nil, rerr
	}
	meta, retry, err = c.send(ctx, method, path, body, contentType, out)
	if retry {
		// Still expired after a successful refresh: give up, never loop
		return nil, &Error{Status: http.StatusForbidden, Code: codeTokenExpired, Message: "access token expired"}
	}
	return meta, err
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType string, out any) (meta *Meta, retry bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Get().AccessToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, &Error{Message: err.Error(), err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &Error{Status: resp.StatusCode, Message: err.Error(), err: err}
	}

	var env envelope
	if len(raw) > 0 {
		// A non-JSON error body is tolerated, the status code still decides
		_ = json.Unmarshal(raw, &env)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 is fatal to the session
		_ = c.tokens.Clear()
		return nil, false, &Error{Status: resp.StatusCode, Message: "unauthorized", err: ErrSessionExpired}

	case resp.StatusCode == http.StatusForbidden && env.Error != nil && env.Error.Code == codeTokenExpired:
		return nil, true, nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, false, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, false, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return env.Meta, false, nil
}
