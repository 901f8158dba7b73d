package website

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tradesafe/tradeverify/src/webclient"
)

// maxSearchResults bounds how many search hits are inspected.
const maxSearchResults = 5

// SearchResult is one candidate URL from the external search backend.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Searcher is the external-search boundary. It is an optional dependency;
// a nil Searcher means the fallback strategy is not configured.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Quota counts consumption of the rate-limited search backend. Optional.
type Quota interface {
	Consume(ctx context.Context) error
}

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	apiKey     string
	httpClient *http.Client
	quota      Quota
}

// NewTavilyClient returns nil when no API key is configured; absence of the
// search backend is configuration, not failure.
func NewTavilyClient(apiKey string, quota Quota) *TavilyClient {
	if apiKey == "" {
		return nil
	}
	return &TavilyClient{
		apiKey:     apiKey,
		httpClient: webclient.NewDefault(15 * time.Second),
		quota:      quota,
	}
}

func (c *TavilyClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if c.quota != nil {
		if err := c.quota.Consume(ctx); err != nil {
			return nil, fmt.Errorf("tavily: %w", err)
		}
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("search_depth", "basic")
	params.Set("max_results", fmt.Sprint(maxSearchResults))

	status, body, err := webclient.Get(ctx, c.httpClient, tavilyEndpoint+"?"+params.Encode(), 0)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("tavily: status %d", status)
	}

	var payload struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}
	return payload.Results, nil
}
