package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// BasicAuth carries credentials for an Authorization: Basic header.
type BasicAuth struct {
	Username string
	Password string
}

// RequestOptions holds HTTP request parameters.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string][]string
	Auth        *BasicAuth
	// Body is sent as-is for []byte/string/io.Reader. A map[string]string is
	// form-encoded when Content-Type is form; anything else is JSON.
	Body interface{}
}

// StatusError is returned by SendAndParse for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client is a thin JSON/form HTTP client used for outbound provider calls.
type Client struct {
	timeout time.Duration
	client  *http.Client
}

// NewClient creates a new HTTP client with options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient swaps the underlying transport client (tests point it at httptest servers).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

func (c *Client) SendRequest(ctx context.Context, opts *RequestOptions) (*http.Response, error) {
	req, err := c.buildRequest(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// SendAndParse sends the request and decodes a JSON response into dest (nil to discard).
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	resp, err := c.SendRequest(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if raw, ok := dest.(*[]byte); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		*raw = b
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for key, values := range opts.QueryParams {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if opts.Auth != nil {
		req.SetBasicAuth(opts.Auth.Username, opts.Auth.Password)
	}

	return req, nil
}

func encodeBody(opts *RequestOptions) (io.Reader, string, error) {
	switch v := opts.Body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "", nil
	case io.Reader:
		return v, "", nil
	case map[string]string:
		if opts.Headers["Content-Type"] == ContentTypeForm {
			values := url.Values{}
			for k, val := range v {
				values.Set(k, val)
			}
			return strings.NewReader(values.Encode()), ContentTypeForm, nil
		}
	}

	b, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal json: %w", err)
	}
	return bytes.NewReader(b), ContentTypeJSON, nil
}
