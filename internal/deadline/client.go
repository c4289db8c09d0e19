package deadline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/go-deadlinejob/pkg/httpclient"
)

// ErrJobNotFound is returned when the Web Service has no job with the requested ID
var ErrJobNotFound = errors.New("job not found")

// APIError is returned for non-2xx responses from the Web Service
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to one Deadline Web Service instance
type Client struct {
	name    string
	baseURL string
	http    *httpclient.Client
	logger  *slog.Logger
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	Name     string
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	SkipTLS  bool

	// UserAgent overrides the transport default when set
	UserAgent string
	Logger    *slog.Logger
}

// NewClient creates a new Web Service client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Timeout
	httpCfg.SkipTLSVerify = cfg.SkipTLS
	httpCfg.Username = cfg.Username
	httpCfg.Password = cfg.Password
	if cfg.UserAgent != "" {
		httpCfg.UserAgent = cfg.UserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpclient.New(httpCfg),
		logger:  logger.With("service", cfg.Name),
	}
}

// Name returns the configured instance name
func (c *Client) Name() string {
	return c.name
}

// GetJobs retrieves every job that has not been deleted
func (c *Client) GetJobs(ctx context.Context) ([]JobRecord, error) {
	var jobs []JobRecord
	if err := c.request(ctx, http.MethodGet, "/api/jobs", nil, &jobs); err != nil {
		return nil, fmt.Errorf("get jobs: %w", err)
	}

	c.logger.DebugContext(ctx, "retrieved jobs", "count", len(jobs))
	return jobs, nil
}

// GetDeletedJobs retrieves the jobs held in the deleted jobs collection
func (c *Client) GetDeletedJobs(ctx context.Context) ([]JobRecord, error) {
	var jobs []JobRecord
	if err := c.request(ctx, http.MethodGet, "/api/jobs?Deleted=true", nil, &jobs); err != nil {
		return nil, fmt.Errorf("get deleted jobs: %w", err)
	}

	c.logger.DebugContext(ctx, "retrieved deleted jobs", "count", len(jobs))
	return jobs, nil
}

// GetJob retrieves a single job by ID
func (c *Client) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	var jobs []JobRecord
	path := "/api/jobs?" + url.Values{"JobID": {id}}.Encode()
	if err := c.request(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("get job %s: %w", id, ErrJobNotFound)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	for i := range jobs {
		if jobs[i].ID == id {
			return &jobs[i], nil
		}
	}
	return nil, fmt.Errorf("get job %s: %w", id, ErrJobNotFound)
}

// SubmitJob submits a new job and returns its ID
func (c *Client) SubmitJob(ctx context.Context, sub Submission) (string, error) {
	sub.IdOnly = true
	if sub.AuxFiles == nil {
		sub.AuxFiles = []string{}
	}

	var result SubmitResult
	if err := c.request(ctx, http.MethodPost, "/api/jobs", sub, &result); err != nil {
		return "", fmt.Errorf("submit job %q: %w", sub.JobInfo["Name"], err)
	}

	c.logger.InfoContext(ctx, "submitted job",
		"job_id", result.ID,
		"name", sub.JobInfo["Name"],
		"frames", sub.JobInfo["Frames"])

	return result.ID, nil
}

// SetJobFrames replaces a job's frame string and frames per task
func (c *Client) SetJobFrames(ctx context.Context, id, frames string, chunkSize int) error {
	body := setJobFramesRequest{
		Command:   "setjobframes",
		JobID:     id,
		FrameList: frames,
		ChunkSize: chunkSize,
	}
	if err := c.request(ctx, http.MethodPut, "/api/jobs", body, nil); err != nil {
		return fmt.Errorf("set frames for job %s: %w", id, err)
	}

	c.logger.DebugContext(ctx, "updated job frames",
		"job_id", id,
		"frames", frames,
		"chunk_size", chunkSize)

	return nil
}

// Close closes the underlying HTTP client connections
func (c *Client) Close() {
	c.http.Close()
}

// request executes an API request and decodes a JSON result when one is wanted
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	fullURL := c.baseURL + path

	c.logger.DebugContext(ctx, "API request",
		"method", method,
		"url", fullURL)

	var (
		resp *http.Response
		err  error
	)
	switch method {
	case http.MethodPost:
		resp, err = c.http.PostJSON(ctx, fullURL, body)
	case http.MethodPut:
		resp, err = c.http.PutJSON(ctx, fullURL, body)
	default:
		resp, err = c.http.Get(ctx, fullURL)
	}
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}

	if err := c.http.DecodeJSON(resp, result); err != nil {
		var statusErr *httpclient.StatusError
		if !errors.As(err, &statusErr) {
			return err
		}
		c.logger.ErrorContext(ctx, "API error response",
			"status", statusErr.StatusCode,
			"body", statusErr.Body)
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: statusErr.StatusCode,
			Body:       strings.TrimSpace(statusErr.Body),
		}
	}

	return nil
}
