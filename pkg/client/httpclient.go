package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a collaborator's reply is buffered.
const maxResponseBytes = 1 << 20

var ErrResponseTooLarge = errors.New("response body exceeds limit")

// JSONClient sends JSON requests to a single upstream service.
type JSONClient struct {
	baseURL string
	http    *http.Client
	headers http.Header
}

func NewJSONClient(baseURL string, timeout time.Duration) *JSONClient {
	return &JSONClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		headers: http.Header{"Accept": []string{"application/json"}},
	}
}

type RequestOption func(*http.Request)

// WithHeader sets a header on one request. Empty values are skipped.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DecodeJSON(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("failed to decode %d response: %w", r.StatusCode, err)
	}
	return nil
}

// ErrorMessage extracts a readable reason from an error body, falling back to
// the HTTP status text.
func (r *Response) ErrorMessage() string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		for _, s := range []string{body.Message, body.Reason, body.Error, body.Code} {
			if s != "" {
				return s
			}
		}
	}
	return http.StatusText(r.StatusCode)
}

func (c *JSONClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *JSONClient) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *JSONClient) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
