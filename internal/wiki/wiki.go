// Package wiki resolves Wikipedia article links for question prompts.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FallbackURL is returned when no article matches the query.
const FallbackURL = "https://en.wikipedia.org"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: "https://en.wikipedia.org/w/api.php",
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// NewClientWithBase is used by tests to point the client at a stub server.
func NewClientWithBase(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// ArticleURL returns the best-matching article link for a query via the
// opensearch endpoint, or FallbackURL when nothing matches.
func (c *Client) ArticleURL(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("action", "opensearch")
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("search", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki search: http %d", resp.StatusCode)
	}

	// Opensearch answers a positional array: query, titles, descriptions, urls.
	var parsed []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode wiki search: %w", err)
	}
	if len(parsed) < 4 {
		return FallbackURL, nil
	}

	var urls []string
	if err := json.Unmarshal(parsed[3], &urls); err != nil {
		return "", fmt.Errorf("decode wiki urls: %w", err)
	}
	if len(urls) == 0 || urls[0] == "" {
		return FallbackURL, nil
	}
	return urls[0], nil
}
