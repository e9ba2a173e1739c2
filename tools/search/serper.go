package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Serper queries the Serper JSON API (google.serper.dev). Requires an API
// key; preferred when DuckDuckGo scraping gets rate limited.
type Serper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SerperOption configures a Serper provider.
type SerperOption func(*Serper)

// WithSerperBaseURL overrides the endpoint, mainly for tests.
func WithSerperBaseURL(u string) SerperOption {
	return func(s *Serper) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithSerperHTTPClient overrides the HTTP client.
func WithSerperHTTPClient(c *http.Client) SerperOption {
	return func(s *Serper) { s.client = c }
}

// NewSerper creates a Serper search provider.
func NewSerper(apiKey string, opts ...SerperOption) *Serper {
	s := &Serper{
		apiKey:  apiKey,
		baseURL: "https://google.serper.dev",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Serper) Name() string { return "serper" }

// Search posts the query to /search and maps organic results.
func (s *Serper) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	body, err := json.Marshal(map[string]any{"q": query, "num": limit})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("serper rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var data struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}

	out := make([]Result, 0, len(data.Organic))
	for _, r := range data.Organic {
		if len(out) >= limit {
			break
		}
		if r.Link == "" {
			continue
		}
		out = append(out, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}
