// Package fetch implements the fetch_page tool: download a URL, extract
// readable content with go-readability (or PDF text extraction), and return
// it as plain text or markdown.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/mcp"
)

const (
	// DefaultMaxChars is the content cap when the caller doesn't set one.
	DefaultMaxChars = 8000
	// MaxMaxChars is the hard upper bound on requested content length.
	MaxMaxChars = 50000

	maxBodyBytes     = 5 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; scout/1.0)"
)

// Fetcher downloads pages and extracts their readable content.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client (default 15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-request timeout on the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with page requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(nopHandler{})
	}
	return f
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

// Page is the extracted content of one fetched URL.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	ExtractMode string `json:"extract_mode"`
	Truncated   bool   `json:"truncated"`
}

// Handler returns the fetch_page tool backed by f.
func Handler(f *Fetcher) mcp.ToolHandler {
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "fetch_page",
			Description: "Fetch and read content from a web page",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":          map[string]any{"type": "string", "description": "The URL to fetch"},
					"max_chars":    map[string]any{"type": "integer", "description": "Max content length (default 8000)"},
					"extract_mode": map[string]any{"type": "string", "enum": []string{"text", "markdown"}, "description": "Output format (default \"text\")"},
				},
				"required": []string{"url"},
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var params struct {
				URL         string `json:"url"`
				MaxChars    int    `json:"max_chars"`
				ExtractMode string `json:"extract_mode"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, &mcp.ToolError{Code: scout.CodeInvalidRequest, Message: "invalid arguments: " + err.Error()}
			}

			page, err := f.Fetch(ctx, params.URL, params.MaxChars, params.ExtractMode)
			if err != nil {
				return nil, err
			}
			return page, nil
		},
	}
}

// Fetch downloads rawURL and extracts its content. maxChars <= 0 means
// DefaultMaxChars; extractMode is "text" or "markdown" (default "text").
// Failures are returned as *mcp.ToolError with a fetch_* code.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int, extractMode string) (Page, error) {
	if verr := validateURL(rawURL); verr != nil {
		code := scout.CodeFetchInvalidURL
		if verr.blocked {
			code = scout.CodeFetchBlocked
		}
		return Page{}, &mcp.ToolError{Code: code, Message: verr.message}
	}

	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxChars > MaxMaxChars {
		maxChars = MaxMaxChars
	}
	if extractMode != "markdown" {
		extractMode = "text"
	}

	start := time.Now()
	body, contentType, err := f.download(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}

	page := Page{URL: rawURL, ContentType: contentType, ExtractMode: extractMode}
	switch {
	case contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(pathOf(rawURL)), ".pdf"):
		page.Title, page.Content, err = extractPDF(body)
		page.ExtractMode = "text"
	case isTextual(contentType):
		page.Title, page.Content, err = extractHTML(body, rawURL, extractMode)
	default:
		return Page{}, &mcp.ToolError{
			Code:    scout.CodeFetchContentType,
			Message: "Unsupported content type: " + contentType,
		}
	}
	if err != nil {
		return Page{}, &mcp.ToolError{Code: scout.CodeFetchFailed, Message: "Failed to extract content: " + err.Error()}
	}

	if runes := []rune(page.Content); len(runes) > maxChars {
		page.Content = string(runes[:maxChars])
		page.Truncated = true
	}

	f.logger.Info("page fetched",
		"url", rawURL,
		"content_type", contentType,
		"chars", len(page.Content),
		"truncated", page.Truncated,
		"duration_ms", time.Since(start).Milliseconds())
	return page, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &mcp.ToolError{Code: scout.CodeFetchInvalidURL, Message: "Invalid URL format: " + err.Error()}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, "", &mcp.ToolError{Code: scout.CodeFetchTimeout, Message: "Page fetch timed out"}
		}
		return nil, "", &mcp.ToolError{Code: scout.CodeFetchFailed, Message: "Failed to fetch page: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &mcp.ToolError{
			Code:    scout.CodeFetchFailed,
			Message: fmt.Sprintf("Page returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &mcp.ToolError{Code: scout.CodeFetchFailed, Message: "Failed to read page: " + err.Error()}
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	return body, contentType, nil
}

func extractHTML(body []byte, rawURL, extractMode string) (title, content string, err error) {
	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		// Fallback: strip tags from the raw document.
		return "", htmlToMarkdown(string(body)), nil
	}

	if extractMode == "markdown" {
		content = htmlToMarkdown(article.Content)
	} else {
		content = strings.TrimSpace(article.TextContent)
	}
	if content == "" {
		content = htmlToMarkdown(string(body))
	}
	return article.Title, content, nil
}

func extractPDF(body []byte) (title, content string, err error) {
	if len(body) == 0 {
		return "", "", fmt.Errorf("empty PDF document")
	}
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", "", fmt.Errorf("open pdf: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return "", text.String(), nil
}

func isTextual(contentType string) bool {
	switch {
	case contentType == "":
		return true
	case strings.HasPrefix(contentType, "text/"):
		return true
	case contentType == "application/xhtml+xml":
		return true
	default:
		return false
	}
}

func isTimeout(err error) bool {
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
