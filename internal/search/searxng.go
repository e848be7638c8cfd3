package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearxClient queries a self-hosted SearXNG instance through its JSON API.
// The instance must have the json output format enabled.
type SearxClient struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewSearxClient(baseURL, language string) *SearxClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &SearxClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *SearxClient) Name() string {
	return "searxng"
}

func (c *SearxClient) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if c.language != "" {
		params.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var searxResp struct {
		Results []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searxResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]Hit, 0, len(searxResp.Results))
	for _, r := range searxResp.Results {
		hits = append(hits, Hit{URL: r.URL, Title: r.Title, Abstract: r.Content})
	}
	return truncate(hits, maxResults), nil
}
