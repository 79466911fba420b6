// Package monday wraps the Monday.com GraphQL API for project search,
// record fetch, and item creation against the Tapered Enquiry Maintenance
// board.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/taperedplus/design-intake/internal/resilience"
)

const (
	defaultAPIURL  = "https://api.monday.com/v2"
	defaultFileURL = "https://api.monday.com/v2/file"
	apiVersion     = "2023-10"
)

// Client defines the board operations used by the intake workflow.
type Client interface {
	// SearchProjects looks up board items similar to the given project
	// name and returns them ranked by similarity. Zero matches is a
	// normal outcome, not an error.
	SearchProjects(ctx context.Context, projectName string) (*SearchResult, error)
	// GetProjectByID fetches a board item with its column values and
	// subitems (revisions).
	GetProjectByID(ctx context.Context, projectID string) (*Item, error)
	// CreateItem creates a board item and optionally attaches a file.
	// The returned result carries the new item ID and whether the file
	// upload succeeded; a failed upload does not fail the creation.
	CreateItem(ctx context.Context, req ItemRequest) (*CreateResult, error)
}

// ClientOption configures the client.
type ClientOption func(*apiClient)

// WithBaseURL overrides the API endpoints (used in tests).
func WithBaseURL(apiURL, fileURL string) ClientOption {
	return func(c *apiClient) {
		c.apiURL = apiURL
		c.fileURL = fileURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *apiClient) { c.http = hc }
}

// WithRateLimit overrides the default request throttle (5 req/s).
func WithRateLimit(rps float64) ClientOption {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// Config holds board-specific settings.
type Config struct {
	BoardID string
	GroupID string
	// StartDate floors the created-date filter on searches (YYYY-MM-DD).
	StartDate string
	// SimilarityThreshold gates the full-scan fallback ranking.
	SimilarityThreshold float64
}

// apiClient implements Client over the GraphQL endpoint.
type apiClient struct {
	http    *http.Client
	apiURL  string
	fileURL string
	token   string
	cfg     Config
	limiter *rate.Limiter
}

// NewClient creates a Monday.com client with the given API token.
func NewClient(token string, cfg Config, opts ...ClientOption) Client {
	if cfg.StartDate == "" {
		cfg.StartDate = "2021-01-01"
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.55
	}
	c := &apiClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		apiURL:  defaultAPIURL,
		fileURL: defaultFileURL,
		token:   token,
		cfg:     cfg,
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gqlError is a single GraphQL-level error.
type gqlError struct {
	Message string `json:"message"`
}

// execute posts a GraphQL query and decodes the "data" object into out.
func (c *apiClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "monday: rate limit")
		}
	}

	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "monday: marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monday: build request")
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "monday: execute query")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "monday: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("monday: status %d: %s", resp.StatusCode, truncate(raw, 512))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return eris.Wrap(err, "monday: decode response")
	}
	if len(envelope.Errors) > 0 {
		return eris.Errorf("monday: graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return eris.Wrap(err, "monday: decode data")
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
