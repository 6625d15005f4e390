// Package feed talks to the service that materializes sparse
// point-in-time tables. Baselines and deltas come back as record lists
// ready for the reconciliation engine.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/irfndi/histwindow-go/internal/config"
	"github.com/irfndi/histwindow-go/internal/pit"
)

// Client represents the feed service HTTP client.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewClient creates a new feed client instance.
func NewClient(cfg *config.FeedConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout: timeout,
	}
}

// HealthResponse is the feed service health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// TableResponse wraps one sparse table for a dataset column.
type TableResponse struct {
	Dataset string    `json:"dataset"`
	Column  string    `json:"column"`
	Table   pit.Table `json:"table"`
}

// ErrorResponse is the feed service error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck checks if the feed service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	err := c.makeRequest(ctx, "/health", nil, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetBaseline retrieves the baseline table for one dataset column over a
// knowledge-date range.
func (c *Client) GetBaseline(ctx context.Context, dataset, column string, lower, upper time.Time) (*TableResponse, error) {
	path := fmt.Sprintf("/api/datasets/%s/%s/baseline", url.PathEscape(dataset), url.PathEscape(column))
	var response TableResponse
	err := c.makeRequest(ctx, path, rangeQuery(lower, upper), &response)
	return &response, err
}

// GetDeltas retrieves the deltas table for one dataset column over a
// knowledge-date range.
func (c *Client) GetDeltas(ctx context.Context, dataset, column string, lower, upper time.Time) (*TableResponse, error) {
	path := fmt.Sprintf("/api/datasets/%s/%s/deltas", url.PathEscape(dataset), url.PathEscape(column))
	var response TableResponse
	err := c.makeRequest(ctx, path, rangeQuery(lower, upper), &response)
	return &response, err
}

func rangeQuery(lower, upper time.Time) url.Values {
	q := url.Values{}
	q.Set("lower", lower.UTC().Format(time.RFC3339))
	q.Set("upper", upper.UTC().Format(time.RFC3339))
	return q
}

// makeRequest is a helper method to make HTTP requests to the feed service
func (c *Client) makeRequest(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "histwindow-go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("feed service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("feed service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// BaseURL returns the base URL of the feed service.
func (c *Client) BaseURL() string {
	return c.baseURL
}
