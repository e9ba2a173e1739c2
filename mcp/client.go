package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nevindra/scout"
)

// Client calls tools on a scout tool server over JSON-RPC 2.0 HTTP.
// It implements scout.ToolCaller. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ scout.ToolCaller = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the request timeout (default 35s, slightly above the
// orchestrator's per-tool budget so the server-side timeout fires first).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a tool-server client for the given base URL
// (e.g. "http://localhost:3000").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 35 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(discardHandler{})
	}
	return c
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// CallTool invokes a named tool via tools/call. Protocol-level tool errors
// come back as a failed ToolOutcome; transport failures (unreachable server,
// timeout, bad status) are returned as a typed *scout.ErrTool.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any, requestID string) (scout.ToolOutcome, error) {
	start := time.Now()
	if requestID == "" {
		requestID = uuid.NewString()
	}

	c.logger.Info("calling tool", "request_id", requestID, "tool", name)

	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		return scout.ToolOutcome{}, &scout.ErrTool{
			Code:    scout.CodeInvalidRequest,
			Tool:    name,
			Message: "encode arguments: " + err.Error(),
		}
	}

	resp, err := c.post(ctx, request{
		JSONRPC: "2.0",
		ID:      mustMarshalID(requestID),
		Method:  "tools/call",
		Params:  params,
	})
	durationMS := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return scout.ToolOutcome{}, c.classifyTransport(err, name)
	}

	if resp.Error != nil {
		msg := resp.Error.Message
		if resp.Error.Data != "" {
			msg += ": " + resp.Error.Data
		}
		c.logger.Warn("tool error", "request_id", requestID, "tool", name, "error", msg, "duration_ms", durationMS)
		return scout.ToolOutcome{Success: false, Error: msg, DurationMS: durationMS}, nil
	}

	var data map[string]any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &data); err != nil {
			return scout.ToolOutcome{}, &scout.ErrTool{
				Code:    scout.CodeMCPToolFailed,
				Tool:    name,
				Message: "decode result: " + err.Error(),
			}
		}
	}

	c.logger.Info("tool completed", "request_id", requestID, "tool", name, "duration_ms", durationMS)
	return scout.ToolOutcome{Success: true, Data: data, DurationMS: durationMS}, nil
}

// Health checks server availability via tools/list and enriches the status
// with the search provider advertised on /health. It never returns an error.
func (c *Client) Health(ctx context.Context) scout.ToolServerHealth {
	resp, err := c.post(ctx, request{
		JSONRPC: "2.0",
		ID:      mustMarshalID(uuid.NewString()),
		Method:  "tools/list",
	})
	if err != nil {
		return scout.ToolServerHealth{Available: false, Error: healthError(err)}
	}
	if resp.Error != nil {
		return scout.ToolServerHealth{Available: false, Error: resp.Error.Message}
	}

	var list toolsListResult
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		return scout.ToolServerHealth{Available: false, Error: "decode tools/list: " + err.Error()}
	}
	names := make([]string, 0, len(list.Tools))
	for _, t := range list.Tools {
		names = append(names, t.Name)
	}

	status := scout.ToolServerHealth{Available: true, Tools: names}

	// Search provider info is nice-to-have; ignore failures.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err == nil {
		if hr, err := c.http.Do(req); err == nil {
			defer hr.Body.Close()
			if hr.StatusCode == http.StatusOK {
				var hp healthPayload
				if json.NewDecoder(hr.Body).Decode(&hp) == nil {
					status.SearchProvider = hp.SearchProvider
				}
			}
		}
	}

	return status
}

func (c *Client) post(ctx context.Context, req request) (*response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	if hresp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(hresp.Body, 4096))
		return nil, &scout.ErrHTTP{Status: hresp.StatusCode, Body: string(b)}
	}

	var resp response
	if err := json.NewDecoder(hresp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// classifyTransport maps a transport failure to a typed tool error.
func (c *Client) classifyTransport(err error, tool string) *scout.ErrTool {
	var httpErr *scout.ErrHTTP
	if errors.As(err, &httpErr) {
		return &scout.ErrTool{
			Code:    scout.CodeMCPToolFailed,
			Tool:    tool,
			Message: fmt.Sprintf("tool server returned status %d", httpErr.Status),
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &scout.ErrTool{
			Code:       scout.CodeMCPToolFailed,
			Tool:       tool,
			Message:    fmt.Sprintf("tool %q timed out", tool),
			Suggestion: "Try again or check tool server logs",
		}
	}
	return &scout.ErrTool{
		Code:       scout.CodeMCPServerUnavailable,
		Tool:       tool,
		Message:    "cannot connect to tool server",
		Suggestion: "Make sure the tool server is running: scout-mcp serve",
	}
}

func healthError(err error) string {
	var httpErr *scout.ErrHTTP
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("unexpected status code: %d", httpErr.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timed out"
	}
	return "cannot connect to tool server"
}

func mustMarshalID(id string) json.RawMessage {
	b, _ := json.Marshal(id)
	return b
}
