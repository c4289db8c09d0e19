package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is returned by DecodeJSON for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Config holds HTTP client configuration
type Config struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	SkipTLSVerify   bool

	// Username and Password enable basic auth when Username is set
	Username  string
	Password  string
	UserAgent string
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
		SkipTLSVerify:   false,
		UserAgent:       "go-deadlinejob",
	}
}

// Client wraps http.Client with convenient methods
type Client struct {
	http      *http.Client
	timeout   time.Duration
	username  string
	password  string
	userAgent string
}

// New creates a new HTTP client with the given configuration
func New(cfg Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify},
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		timeout:   cfg.Timeout,
		username:  cfg.Username,
		password:  cfg.Password,
		userAgent: cfg.UserAgent,
	}
}

// Do executes HTTP request with context, adding credentials and the user agent.
// http.Client.Timeout covers the body read, so no context deadline is added here.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}

// Get performs a GET request to the specified URL
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.Do(ctx, req)
}

// PostJSON performs a POST request with JSON-encoded body
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, url, payload)
}

// PutJSON performs a PUT request with JSON-encoded body
func (c *Client) PutJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPut, url, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
	}

	return c.send(ctx, method, url, "application/json", bytes.NewReader(jsonData))
}

func (c *Client) send(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.Do(ctx, req)
}

// DecodeJSON decodes JSON response body into the provided target.
// A nil target only checks the status code and drains the body.
func (c *Client) DecodeJSON(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return nil
}

// Close closes idle connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
