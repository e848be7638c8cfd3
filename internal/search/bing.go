package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// BingClient queries the Bing Web Search v7 API. Snippets are requested
// with text decorations, so matched terms arrive wrapped in <b> tags.
type BingClient struct {
	apiKey   string
	endpoint string
	market   string
	client   *http.Client
}

// NewBingClient creates a Bing client. endpoint may be empty to use the
// public API.
func NewBingClient(apiKey, endpoint, market string) *BingClient {
	if endpoint == "" {
		endpoint = defaultBingEndpoint
	}
	return &BingClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		market:   market,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BingClient) Name() string {
	return "bing"
}

func (c *BingClient) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))
	params.Set("responseFilter", "Webpages")
	params.Set("textDecorations", "true")
	params.Set("textFormat", "HTML")
	if c.market != "" {
		params.Set("mkt", c.market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("bing returned status %d: %s", resp.StatusCode, string(body))
	}

	var bingResp struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bingResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]Hit, 0, len(bingResp.WebPages.Value))
	for _, v := range bingResp.WebPages.Value {
		hits = append(hits, Hit{URL: v.URL, Title: v.Name, Abstract: v.Snippet})
	}
	return truncate(hits, maxResults), nil
}
