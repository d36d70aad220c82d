// Package search wraps the grounding-search collaborator: one HTTP call per
// planned direction, retried with exponential backoff.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Result is one grounding document returned for a query.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Author        string `json:"author,omitempty"`
}

// DefaultNumResults is used when the caller does not ask for a count.
const DefaultNumResults = 3

const (
	backoffInitial    = 500 * time.Millisecond
	backoffMaxElapsed = 15 * time.Second
)

// Client talks to a search endpoint accepting POST {"query", "numResults"}
// and answering {"results": [...]}.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a search client. log may be nil.
func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
}

type searchResponse struct {
	Results []Result `json:"results"`
	Error   string   `json:"error,omitempty"`
}

// Search runs one query, retrying transient failures with exponential
// backoff. A 4xx answer is permanent and fails immediately.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = backoffInitial
	policy.MaxElapsedTime = backoffMaxElapsed

	var results []Result
	operation := func() error {
		var err error
		results, err = c.searchOnce(ctx, query, numResults)
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) searchOnce(ctx context.Context, query string, numResults int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{Query: query, NumResults: numResults})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("search request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("search returned status %d", resp.StatusCode))
	}

	var decoded searchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode search response: %w", err))
	}
	if decoded.Error != "" {
		return nil, backoff.Permanent(fmt.Errorf("search error: %s", decoded.Error))
	}
	return decoded.Results, nil
}
