// Package tavily is a client for the Tavily search API.
package tavily

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

	"github.com/alanyoungcy/marketwire/internal/domain"
)

const (
	DefaultBaseURL = "https://api.tavily.com/search"

	defaultMaxResults = 5
	requestTimeout    = 15 * time.Second
)

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	Topic          string   `json:"topic,omitempty"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Client searches recent news for research context.
type Client struct {
	baseURL        string
	apiKey         string
	maxResults     int
	excludeDomains []string
	httpClient     *http.Client
}

// NewClient creates a Client. excludeDomains are dropped from every search,
// e.g. the venues themselves.
func NewClient(baseURL, apiKey string, maxResults int, excludeDomains []string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		maxResults:     maxResults,
		excludeDomains: excludeDomains,
		httpClient:     &http.Client{Timeout: requestTimeout},
	}
}

// Search runs a news search for query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("tavily: query is required")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("tavily: api key: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(searchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "basic",
		Topic:          "news",
		MaxResults:     c.maxResults,
		ExcludeDomains: c.excludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("tavily: %w", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("tavily: %w", domain.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, snippet)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}
	return out.Results, nil
}
