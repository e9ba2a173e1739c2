// Package ollama implements scout.Provider against the native Ollama HTTP
// API (/api/chat, /api/version, /api/tags). It speaks the native endpoints
// rather than the OpenAI compatibility layer so model-not-found and
// service-down failures can be reported with actionable suggestions.
package ollama

import (
	"bufio"
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

	"github.com/nevindra/scout"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "qwen3:8b"
)

// Provider is an Ollama chat backend. Safe for concurrent use.
type Provider struct {
	baseURL    string
	model      string
	client     *http.Client
	maxRetries int
	retryWait  time.Duration
	logger     *slog.Logger
}

var _ scout.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a non-default Ollama instance.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithModel sets the default model used when ChatOptions.Model is empty.
func WithModel(m string) Option {
	return func(p *Provider) { p.model = m }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithTimeout sets the per-request timeout (default 120s; local models can
// be slow on first load).
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithMaxRetries sets how many times a connection failure is retried
// before giving up (default 2).
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates an Ollama provider with sensible local defaults.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		client:     &http.Client{Timeout: 120 * time.Second},
		maxRetries: 2,
		retryWait:  time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(discardHandler{})
	}
	return p
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Name returns "ollama".
func (p *Provider) Name() string { return "ollama" }

// --- wire types ---

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []scout.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (p *Provider) buildRequest(messages []scout.Message, opts scout.ChatOptions, stream bool) chatRequest {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	req := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options:  map[string]any{"temperature": opts.Temperature},
	}
	if opts.NumPredict > 0 {
		req.Options["num_predict"] = opts.NumPredict
	}
	return req
}

// Chat sends a non-streaming chat request and returns the assistant text.
func (p *Provider) Chat(ctx context.Context, messages []scout.Message, opts scout.ChatOptions) (string, error) {
	body := p.buildRequest(messages, opts, false)

	start := time.Now()
	resp, err := p.send(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := p.checkStatus(resp, body.Model); err != nil {
		return "", err
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", &scout.ErrLLM{
			Code:    scout.CodeOllamaUnavailable,
			Message: "invalid response from Ollama: " + err.Error(),
			Model:   body.Model,
		}
	}

	p.logger.Debug("chat completed",
		"model", body.Model,
		"duration_ms", time.Since(start).Milliseconds())
	return cr.Message.Content, nil
}

// ChatStream streams content fragments into ch and returns the accumulated
// text. The stream is NDJSON; one object per line, content in
// message.content, terminated by done:true. ch is closed on every path.
func (p *Provider) ChatStream(ctx context.Context, messages []scout.Message, opts scout.ChatOptions, ch chan<- string) (string, error) {
	defer close(ch)

	body := p.buildRequest(messages, opts, true)

	resp, err := p.send(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := p.checkStatus(resp, body.Model); err != nil {
		return "", err
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines.
			continue
		}

		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			select {
			case ch <- chunk.Message.Content:
			case <-ctx.Done():
				return full.String(), p.classify(ctx.Err(), body.Model)
			}
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), p.classify(err, body.Model)
	}
	return full.String(), nil
}

// Health probes /api/version and /api/tags. It never returns an error.
func (p *Provider) Health(ctx context.Context) scout.LLMHealth {
	var version struct {
		Version string `json:"version"`
	}
	if err := p.getJSON(ctx, "/api/version", &version); err != nil {
		return scout.LLMHealth{Available: false, Error: healthError(err)}
	}

	health := scout.LLMHealth{Available: true, Version: version.Version}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := p.getJSON(ctx, "/api/tags", &tags); err == nil {
		for _, m := range tags.Models {
			health.Models = append(health.Models, m.Name)
		}
	}
	return health
}

// HasModel reports whether the given model is installed on the Ollama
// instance. A probe failure counts as not installed.
func (p *Provider) HasModel(ctx context.Context, model string) bool {
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := p.getJSON(ctx, "/api/tags", &tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == model {
			return true
		}
	}
	return false
}

// send posts a chat request, retrying connection failures. Non-connect
// failures (timeouts, HTTP errors) are not retried; a local model that
// timed out once will time out again.
func (p *Provider) send(ctx context.Context, body chatRequest) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &scout.ErrLLM{
			Code:    scout.CodeInvalidRequest,
			Message: "encode chat request: " + err.Error(),
			Model:   body.Model,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying Ollama request", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(p.retryWait):
			case <-ctx.Done():
				return nil, p.classify(ctx.Err(), body.Model)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(raw))
		if err != nil {
			return nil, p.classify(err, body.Model)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err == nil {
			return resp, nil
		}
		if isTimeout(err) {
			return nil, p.classify(err, body.Model)
		}
		lastErr = err
	}
	return nil, p.classify(lastErr, body.Model)
}

// checkStatus maps a non-200 chat response to a typed error. 404 means the
// model is not installed.
func (p *Provider) checkStatus(resp *http.Response, model string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusNotFound {
		return &scout.ErrLLM{
			Code:       scout.CodeOllamaModelNotFound,
			Message:    fmt.Sprintf("Model %q is not installed", model),
			Model:      model,
			Suggestion: "Run: ollama pull " + model,
		}
	}
	return &scout.ErrLLM{
		Code:       scout.CodeOllamaUnavailable,
		Message:    fmt.Sprintf("Ollama returned status %d", resp.StatusCode),
		Model:      model,
		Suggestion: "Make sure Ollama is running: ollama serve",
	}
}

// classify maps transport failures to typed errors with suggestions.
func (p *Provider) classify(err error, model string) *scout.ErrLLM {
	if isTimeout(err) {
		return &scout.ErrLLM{
			Code:       scout.CodeOllamaTimeout,
			Message:    "Ollama request timed out",
			Model:      model,
			Suggestion: "Try a shorter query or increase timeout",
		}
	}
	return &scout.ErrLLM{
		Code:       scout.CodeOllamaUnavailable,
		Message:    "Cannot connect to Ollama",
		Model:      model,
		Suggestion: "Make sure Ollama is running: ollama serve",
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

func (p *Provider) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &scout.ErrHTTP{Status: resp.StatusCode, Body: string(b)}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func healthError(err error) string {
	var httpErr *scout.ErrHTTP
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("Unexpected status code: %d", httpErr.Status)
	}
	if isTimeout(err) {
		return "connection timed out"
	}
	return "cannot connect to Ollama"
}
