// Package client is the HTTP client the CLI uses to talk to a running daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shoebox/internal/api"
)

// ErrNotFound indicates the daemon has no job with the requested id.
var ErrNotFound = errors.New("job not found")

// Client wraps the daemon HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given bind address. The address may be a bare
// host:port or a full http URL.
func New(address string) *Client {
	base := strings.TrimSpace(address)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit queues a new job on the daemon.
func (c *Client) Submit(ctx context.Context, req api.SubmitRequest) (api.JobPayload, error) {
	var resp api.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return api.JobPayload{}, err
	}
	return resp.Job, nil
}

// Jobs lists jobs, optionally filtered by state.
func (c *Client) Jobs(ctx context.Context, states ...string) ([]api.JobPayload, error) {
	path := "/api/jobs"
	if len(states) > 0 {
		values := url.Values{}
		for _, state := range states {
			values.Add("state", state)
		}
		path += "?" + values.Encode()
	}
	var resp api.JobList
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id string) (api.JobPayload, error) {
	var resp api.JobPayload
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return api.JobPayload{}, err
	}
	return resp, nil
}

// Cancel requests cooperative cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) (api.CancelResponse, error) {
	var resp api.CancelResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, &resp); err != nil {
		return api.CancelResponse{}, err
	}
	return resp, nil
}

// Status fetches the daemon status summary.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return api.StatusResponse{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
