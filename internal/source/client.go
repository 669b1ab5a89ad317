// Package source reads recent items from the Algolia-backed HN search API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/storyfeed/storyfeed/pkg/model"
)

// Fetcher returns the items newer than a lower-bound expression.
type Fetcher interface {
	Fetch(ctx context.Context, lowerBound string) ([]*model.Item, error)
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	cfg        Config
	httpClient *http.Client
	endpoint   string
}

var _ Fetcher = (*Client)(nil)

type searchResponse struct {
	Hits []*model.Item `json:"hits"`
}

// NewClient creates a new Client. cfg is expected to be validated.
func NewClient(cfg Config) *Client {
	cfg.ApplyDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/search_by_date",
	}
}

// Fetch performs a single search_by_date request. lowerBound is passed as the
// numericFilters expression unchanged; an empty bound fetches the most recent
// items. A response without hits yields an empty slice.
//
// Every failure wraps ErrSourceUnavailable. There is no retry.
func (c *Client) Fetch(ctx context.Context, lowerBound string) ([]*model.Item, error) {
	params := url.Values{}
	params.Set("tags", c.cfg.Tags)
	params.Set("query", c.cfg.Topic)
	params.Set("numericFilters", lowerBound)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", model.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %d", model.ErrSourceUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.cfg.MaxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", model.ErrSourceUnavailable, err)
	}

	items := make([]*model.Item, 0, len(body.Hits))
	for _, hit := range body.Hits {
		if hit != nil {
			items = append(items, hit)
		}
	}
	return items, nil
}
