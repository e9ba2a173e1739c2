package scout

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// defaultMaxIterations bounds the tool-calling loop. Low on purpose: a
	// model that has not produced an answer after five tool rounds is
	// looping, and failing fast beats burning another minute of calls.
	defaultMaxIterations = 5

	// defaultToolTimeout is the per-call budget for one tool dispatch.
	defaultToolTimeout = 30 * time.Second

	defaultTemperature = 0.7
)

// Diagnostic fallbacks for the forced-summary turn.
const (
	emptySummaryFallback  = "I gathered information from multiple sources but couldn't generate a complete summary. Please check the sources below for details."
	failedSummaryFallback = "Research completed but summary generation failed. Please check the sources below."
)

// Orchestrator drives the research loop between an LLM Provider and a
// ToolCaller. It is not safe for concurrent use: conversation history and
// the per-query request id are mutable state, one query at a time.
type Orchestrator struct {
	llm   Provider
	tools ToolCaller

	model            string
	mode             ResearchMode
	fetchExtractMode string
	temperature      float64
	maxIterations    int
	toolTimeout      time.Duration

	history   []Message
	requestID string

	logger *slog.Logger
	tracer Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel sets the LLM model name.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithResearchMode sets the research depth mode.
func WithResearchMode(mode ResearchMode) Option {
	return func(o *Orchestrator) { o.mode = mode }
}

// WithFetchExtractMode sets the default extract_mode injected into
// fetch_page calls ("text" or "markdown").
func WithFetchExtractMode(mode string) Option {
	return func(o *Orchestrator) {
		if mode == "text" || mode == "markdown" {
			o.fetchExtractMode = mode
		}
	}
}

// WithTemperature sets the LLM sampling temperature (0.0-1.0).
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) {
		if t >= 0.0 && t <= 1.0 {
			o.temperature = t
		}
	}
}

// WithMaxIterations overrides the tool-loop bound.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithToolTimeout overrides the per-tool-call timeout.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.toolTimeout = d
		}
	}
}

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTracer enables span tracing of queries and tool dispatch.
func WithTracer(t Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates an Orchestrator over the given LLM provider and tool caller.
func New(llm Provider, tools ToolCaller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:              llm,
		tools:            tools,
		mode:             QuickMode,
		fetchExtractMode: "text",
		temperature:      defaultTemperature,
		maxIterations:    defaultMaxIterations,
		toolTimeout:      defaultToolTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = nopLogger
	}
	return o
}

// SetModel changes the LLM model for subsequent queries.
func (o *Orchestrator) SetModel(model string) {
	if model != "" {
		o.model = model
	}
}

// SetResearchMode changes the research depth mode by key ("quick" or
// "deep"); unknown keys are ignored.
func (o *Orchestrator) SetResearchMode(key string) {
	if key == QuickMode.Key || key == DeepMode.Key {
		o.mode = ModeByKey(key)
		o.logger.Info("research mode set", "mode", key)
	}
}

// SetFetchExtractMode changes the default fetch_page extract mode; values
// other than "text" and "markdown" are ignored.
func (o *Orchestrator) SetFetchExtractMode(mode string) {
	if mode == "text" || mode == "markdown" {
		o.fetchExtractMode = mode
		o.logger.Info("fetch extract mode set", "mode", mode)
	}
}

// SetTemperature changes the sampling temperature; out-of-range values are
// ignored.
func (o *Orchestrator) SetTemperature(t float64) {
	if t >= 0.0 && t <= 1.0 {
		o.temperature = t
		o.logger.Info("temperature set", "temperature", t)
	}
}

// ClearHistory drops the conversation history.
func (o *Orchestrator) ClearHistory() {
	o.history = nil
	o.logger.Info("conversation history cleared")
}

// History returns a copy of the conversation history.
func (o *Orchestrator) History() []Message {
	out := make([]Message, len(o.history))
	copy(out, o.history)
	return out
}

// Research executes one research query through the tool-calling loop and
// returns the complete response. On an LLM failure the error propagates and
// the conversation history is left untouched.
func (o *Orchestrator) Research(ctx context.Context, query string, cb *Callbacks) (*ResearchResponse, error) {
	return o.run(ctx, query, cb, nil)
}

// ResearchStream is Research with live output: text chunks go into ch as
// they arrive from the LLM, with tool-call markup suppressed. ch is closed
// exactly once on every path. The returned response carries the same
// metadata as Research.
func (o *Orchestrator) ResearchStream(ctx context.Context, query string, ch chan<- string, cb *Callbacks) (*ResearchResponse, error) {
	return o.run(ctx, query, cb, ch)
}

// run is the shared loop. When ch is non-nil it operates in streaming mode:
// every iteration's safe text is forwarded through a filter that withholds
// tool-call markup, and ch is closed before returning.
func (o *Orchestrator) run(ctx context.Context, query string, cb *Callbacks, ch chan<- string) (*ResearchResponse, error) {
	start := time.Now()
	o.requestID = NewRequestID()

	if ch != nil {
		defer close(ch)
	}

	var span Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "research.query",
			StringAttr("request_id", o.requestID),
			StringAttr("model", o.model),
			StringAttr("mode", o.mode.Key),
			BoolAttr("streaming", ch != nil))
		defer span.End()
	}

	o.logger.Info("starting research",
		"request_id", o.requestID,
		"query", truncate(query, 100),
		"model", o.model)

	var (
		toolTrace []ToolExecution
		sources   []Source
	)

	// System prompt first, then prior history, then the new query.
	messages := make([]Message, 0, len(o.history)+2)
	messages = append(messages, SystemMessage(BuildSystemPrompt(true, "", o.mode)))
	messages = append(messages, o.history...)
	messages = append(messages, UserMessage(query))

	finalResponse := ""
	iterations := 0

	for iterations < o.maxIterations {
		iterations++

		llmResponse, err := o.turn(ctx, messages, iterations, cb, ch)
		if err != nil {
			o.logger.Error("llm call failed", "request_id", o.requestID, "error", err)
			if span != nil {
				span.Error(err)
			}
			return nil, err
		}

		o.logger.Debug("llm response preview",
			"request_id", o.requestID,
			"iteration", iterations,
			"preview", truncate(llmResponse, 500))

		parsed := ParseToolCalls(llmResponse)

		o.logger.Info("parsed tool calls",
			"request_id", o.requestID,
			"count", len(parsed.ToolCalls),
			"has_incomplete", parsed.HasIncomplete)

		if len(parsed.ToolCalls) == 0 {
			finalResponse = llmResponse
			break
		}

		toolResults := make([]string, 0, len(parsed.ToolCalls))
		for _, tc := range parsed.ToolCalls {
			execution := o.executeTool(ctx, tc, cb)
			toolTrace = append(toolTrace, execution)

			if execution.Success && execution.Result != nil {
				sources = append(sources, ExtractSources(tc.Name, execution.Result)...)
			}

			result := execution.Result
			if !execution.Success {
				result = map[string]any{"message": execution.Error, "code": "error"}
			}
			toolResults = append(toolResults, FormatToolResult(tc.Name, result, execution.Success))
		}

		messages = append(messages, AssistantMessage(llmResponse))
		messages = append(messages, UserMessage("Tool results:\n\n"+strings.Join(toolResults, "\n\n")))
	}

	// Loop exhausted without a plain answer: force one more turn that asks
	// for the summary and forbids tool calls.
	if finalResponse == "" {
		o.logger.Info("requesting final summary after tool iterations",
			"request_id", o.requestID,
			"iterations", iterations)
		messages = append(messages, UserMessage(
			"Based on all the information gathered above, please provide your final answer to the original question. Do not make any more tool calls - just summarize what you learned."))

		summary, err := o.turn(ctx, messages, iterations+1, cb, ch)
		if err != nil {
			o.logger.Error("failed to get final summary", "request_id", o.requestID, "error", err)
			finalResponse = failedSummaryFallback
		} else {
			finalResponse = summary
			if finalResponse == "" {
				finalResponse = emptySummaryFallback
			}
		}
	}

	// The answer must never carry protocol markup, even if the model slipped
	// a (possibly dangling) tool call into its last turn.
	if openTagRE.MatchString(finalResponse) {
		finalResponse = strings.TrimSpace(finalResponse[:openTagRE.FindStringIndex(finalResponse)[0]])
		if finalResponse == "" {
			finalResponse = emptySummaryFallback
		}
	}

	totalDuration := float64(time.Since(start)) / float64(time.Millisecond)

	o.history = append(o.history, UserMessage(query), AssistantMessage(finalResponse))

	o.logger.Info("research complete",
		"request_id", o.requestID,
		"duration_ms", totalDuration,
		"tool_calls", len(toolTrace),
		"sources", len(sources))
	if span != nil {
		span.SetAttr(
			IntAttr("iterations", iterations),
			IntAttr("tool_calls", len(toolTrace)),
			Float64Attr("duration_ms", totalDuration))
	}

	deduped := DedupSources(sources)

	return &ResearchResponse{
		Content:           finalResponse,
		ToolTrace:         toolTrace,
		Sources:           deduped,
		RequestID:         o.requestID,
		TotalDurationMS:   totalDuration,
		Model:             o.model,
		CanSaveAsNote:     finalResponse != "" && !strings.HasPrefix(finalResponse, "❌"),
		SuggestedTitle:    SuggestTitle(query),
		FollowupQuestions: o.generateFollowups(ctx, query, finalResponse, deduped),
	}, nil
}

// turn performs one LLM call. Streaming applies when a channel is present
// (all iterations, filtered) or a text-chunk callback is set (first
// iteration only, raw chunks).
func (o *Orchestrator) turn(ctx context.Context, messages []Message, iteration int, cb *Callbacks, ch chan<- string) (string, error) {
	opts := ChatOptions{Model: o.model, Temperature: o.temperature}

	wantCallback := iteration == 1 && cb != nil && cb.OnTextChunk != nil
	if ch == nil && !wantCallback {
		return o.llm.Chat(ctx, messages, opts)
	}

	raw := make(chan string)
	done := make(chan struct{})
	filter := newStreamFilter()

	go func() {
		defer close(done)
		for chunk := range raw {
			if wantCallback {
				cb.textChunk(chunk)
			}
			if ch == nil {
				continue
			}
			if safe := filter.feed(chunk); safe != "" {
				select {
				case ch <- safe:
				case <-ctx.Done():
				}
			}
		}
		if ch != nil {
			if tail := filter.flush(); tail != "" {
				select {
				case ch <- tail:
				case <-ctx.Done():
				}
			}
		}
	}()

	full, err := o.llm.ChatStream(ctx, messages, opts, raw)
	<-done
	return full, err
}

// HealthCheck reports availability of both backing services.
func (o *Orchestrator) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		LLM:        o.llm.Health(ctx),
		ToolServer: o.tools.Health(ctx),
		Model:      o.model,
	}
}
