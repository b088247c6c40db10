package clients

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// TrendingClient talks to the trending-signal service. Callers treat its
// errors as "use the fallback pool", so it never needs a retry of its own.
type TrendingClient struct {
	client *Client
}

func NewTrendingClient(baseURL, apiKey string, timeout time.Duration) *TrendingClient {
	return &TrendingClient{client: newClient(baseURL, apiKey, timeout)}
}

type trendingResponse struct {
	Keywords []string `json:"keywords"`
}

func (c *TrendingClient) TrendingKeywords(ctx context.Context, category string, limit int) ([]string, error) {
	query := url.Values{}
	query.Set("category", category)
	query.Set("limit", strconv.Itoa(limit))

	var resp trendingResponse
	if err := c.client.getJSON(ctx, "/v1/trending", query, &resp); err != nil {
		return nil, err
	}
	return resp.Keywords, nil
}
