// Package client is a small HTTP client for the api service's operator
// endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/api/dto"
)

const defaultHTTPTimeout = 10 * time.Second

// APIError is a non-2xx answer from the api service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the api service
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client for the service at base
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAttempts returns the attempt history of a job
func (c *Client) ListAttempts(ctx context.Context, jobID string) (*dto.AttemptHistoryResponse, error) {
	var resp dto.AttemptHistoryResponse
	if err := c.do(ctx, http.MethodGet, "/assignment-attempts/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry queues a new automation run for a job
func (c *Client) Retry(ctx context.Context, jobID string) (*dto.AutomationResponse, error) {
	var resp dto.AutomationResponse
	if err := c.do(ctx, http.MethodPost, "/retry-automation/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop halts automation for a job
func (c *Client) Stop(ctx context.Context, jobID string) (*dto.AutomationResponse, error) {
	var resp dto.AutomationResponse
	if err := c.do(ctx, http.MethodPost, "/stop-automation/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		var e dto.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
