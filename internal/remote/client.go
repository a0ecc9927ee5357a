// Package remote wraps the executor's REST surface: start calls per job
// kind and cancellation by job id. Progress arrives separately over the
// event stream.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StartResponse is the synchronous reply to any start call.
type StartResponse struct {
	JobID      string `json:"job_id"`
	TotalItems int    `json:"total_items"`
}

// ScanParams describe a scan job: walk Folder, skipping Exclude patterns.
type ScanParams struct {
	Folder  string   `json:"folder"`
	Exclude []string `json:"exclude,omitempty"`
}

// UploadParams describe an upload job over the queued selection.
type UploadParams struct {
	Folder          string   `json:"folder"`
	Paths           []string `json:"paths"`
	DuplicatePolicy string   `json:"duplicate_policy,omitempty"`
}

// DeleteParams describe a verified delete over the queued selection.
type DeleteParams struct {
	Folder string   `json:"folder"`
	Paths  []string `json:"paths"`
	Verify bool     `json:"verify"`
}

func (c *Client) StartScan(ctx context.Context, p ScanParams) (*StartResponse, error) {
	return c.start(ctx, "/jobs/scan", p)
}

func (c *Client) StartUpload(ctx context.Context, p UploadParams) (*StartResponse, error) {
	return c.start(ctx, "/jobs/upload", p)
}

func (c *Client) StartDelete(ctx context.Context, p DeleteParams) (*StartResponse, error) {
	return c.start(ctx, "/jobs/delete", p)
}

func (c *Client) start(ctx context.Context, path string, params any) (*StartResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode start request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executor unreachable: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("start rejected: %s", readError(resp.Body, resp.Status))
	}

	var out StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode start response: %w", err)
	}
	if out.JobID == "" {
		return nil, fmt.Errorf("start response missing job id")
	}

	return &out, nil
}

// Cancel asks the executor to stop jobID. Cancellation is cooperative: the
// job's stream still ends with a terminal event emitted by the executor.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/jobs/%s/cancel", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build cancel request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("cancel rejected: %s", readError(resp.Body, resp.Status))
	}

	return nil
}

// EventsURL is the stream endpoint for one job id.
func (c *Client) EventsURL(jobID string) string {
	return fmt.Sprintf("%s/jobs/%s/events", c.baseURL, jobID)
}

func readError(body io.Reader, fallback string) string {
	var result map[string]string
	if err := json.NewDecoder(body).Decode(&result); err == nil && result["error"] != "" {
		return result["error"]
	}
	return fallback
}
