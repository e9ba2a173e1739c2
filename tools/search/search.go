// Package search implements the web_search tool. Two providers are
// supported: DuckDuckGo HTML scraping (no API key) and the Serper JSON API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/mcp"
)

const (
	// MaxQueryLength bounds a sanitized search query.
	MaxQueryLength = 500

	defaultLimit = 3
	maxLimit     = 5
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Provider runs a web search. duckduckgo.go and serper.go implement it.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// SanitizeQuery normalizes a raw query: NFKC unicode normalization, control
// characters removed, whitespace collapsed, length capped.
func SanitizeQuery(query string) string {
	query = norm.NFKC.String(query)

	var b strings.Builder
	for _, r := range query {
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			continue
		}
		b.WriteRune(r)
	}
	query = strings.Join(strings.Fields(b.String()), " ")

	if runes := []rune(query); len(runes) > MaxQueryLength {
		query = strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return query
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}

// Handler returns the web_search tool backed by provider.
func Handler(provider Provider, logger *slog.Logger) mcp.ToolHandler {
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "web_search",
			Description: "Search the web for information",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "The search query"},
					"limit": map[string]any{"type": "integer", "description": "Max results (1-5, default 3)"},
				},
				"required": []string{"query"},
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var params struct {
				Query string `json:"query"`
				Limit int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, &mcp.ToolError{Code: scout.CodeInvalidRequest, Message: "invalid arguments: " + err.Error()}
			}

			query := SanitizeQuery(params.Query)
			if query == "" {
				return nil, &mcp.ToolError{Code: scout.CodeMissingParameter, Message: "Search query is required"}
			}
			limit := clampLimit(params.Limit)

			results, err := provider.Search(ctx, query, limit)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return nil, &mcp.ToolError{Code: scout.CodeSearchTimeout, Message: "Search timed out"}
				}
				logger.Error("search failed", "provider", provider.Name(), "error", err)
				return nil, &mcp.ToolError{Code: scout.CodeSearchFailed, Message: "Search failed: " + err.Error()}
			}
			if len(results) > limit {
				results = results[:limit]
			}

			logger.Info("search completed", "provider", provider.Name(), "query", query, "results", len(results))
			return map[string]any{
				"query":    query,
				"provider": provider.Name(),
				"results":  results,
			}, nil
		},
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
