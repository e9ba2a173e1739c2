package scout

import "context"

// ChatOptions carries per-request generation parameters.
type ChatOptions struct {
	Model       string
	Temperature float64
	// NumPredict caps the number of generated tokens. Zero means provider default.
	NumPredict int
}

// Provider is a chat language-model backend. provider/ollama implements it
// for the native Ollama API.
type Provider interface {
	Name() string

	// Chat sends a non-streaming request and returns the complete assistant text.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)

	// ChatStream streams content fragments into ch and returns the fully
	// accumulated text. Implementations close ch exactly once, on every path.
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions, ch chan<- string) (string, error)

	// Health reports service availability and installed models. It never
	// returns an error; failures are captured in the status.
	Health(ctx context.Context) LLMHealth
}

// ToolOutcome is the normalized result of one tool-server call.
// Success distinguishes a tool result from a protocol-level tool error;
// transport failures are returned as an error from CallTool instead.
type ToolOutcome struct {
	Success    bool
	Data       map[string]any
	Error      string
	DurationMS float64
}

// ToolCaller invokes tools on an external tool server. mcp.Client implements
// it over JSON-RPC 2.0 HTTP.
type ToolCaller interface {
	// CallTool invokes a named tool. requestID is propagated for tracing.
	// A non-nil error means the server was unreachable or the call timed out
	// (typed *ErrTool); protocol-level tool errors come back as a failed
	// ToolOutcome with a nil error.
	CallTool(ctx context.Context, name string, args map[string]any, requestID string) (ToolOutcome, error)

	// Health reports tool-server availability and the advertised tool list.
	Health(ctx context.Context) ToolServerHealth
}
