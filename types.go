package scout

import "time"

// --- Conversation types ---

// Message is a single entry in the LLM conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// UserMessage creates a user-role message.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

// --- Tool-call types ---

// ToolCall is a structured tool invocation parsed from LLM output.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	// Raw is the original JSON payload between the tags, kept for diagnostics.
	Raw string `json:"-"`
}

// ParseResult is a snapshot over one LLM output: the tool calls it contains
// plus the surrounding free text.
type ParseResult struct {
	ToolCalls  []ToolCall
	TextBefore string
	TextAfter  string
	// HasIncomplete is true when an opening <tool_call> tag appears with no
	// matching close — the streaming mid-call signal.
	HasIncomplete bool
}

// ToolExecution records one tool dispatch. Exactly one of Result or Error is
// populated; Success is the tag.
type ToolExecution struct {
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Success    bool           `json:"success"`
	DurationMS float64        `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id"`
}

// --- Response types ---

// Source is a citable (url, title, originating-tool) triple harvested from a
// tool result.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Tool  string `json:"tool"`
}

// Citation is an inline [n] reference resolved against the source list.
type Citation struct {
	Number  int    `json:"number"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// ResearchResponse is the complete result of one research query.
type ResearchResponse struct {
	Content           string          `json:"content"`
	ToolTrace         []ToolExecution `json:"tool_trace"`
	Sources           []Source        `json:"sources"` // deduplicated, first-seen order
	RequestID         string          `json:"request_id"`
	TotalDurationMS   float64         `json:"total_duration_ms"`
	Model             string          `json:"model"`
	CanSaveAsNote     bool            `json:"can_save_as_note"`
	SuggestedTitle    string          `json:"suggested_title"` // ≤ 80 chars
	FollowupQuestions []string        `json:"followup_questions"`
}

// --- Research modes ---

// ResearchMode parametrizes the system prompt with source-count and depth
// directives.
type ResearchMode struct {
	Key           string // "quick" or "deep"
	Label         string
	SearchLimit   int
	FetchLimit    int
	Description   string
	PromptContext string
}

// QuickMode favors short, bulleted answers from up to 5 sources.
var QuickMode = ResearchMode{
	Key:         "quick",
	Label:       "Quick Summary",
	SearchLimit: 5,
	FetchLimit:  3,
	Description: "Quick summary with up to 5 sources, bullet points, < 250 words",
	PromptContext: `## Research Mode: Quick Summary
- Search for up to 5 sources
- You MUST fetch and read at least 3 relevant pages before answering
- Provide a concise summary with bullet points
- Keep response under 250 words
- Focus on key facts and main takeaways
- Cite ALL sources you read with numbered citations [1], [2], [3]`,
}

// DeepMode favors detailed, multi-source analysis from up to 7 sources.
var DeepMode = ResearchMode{
	Key:         "deep",
	Label:       "Deep Dive",
	SearchLimit: 7,
	FetchLimit:  5,
	Description: "Deep dive with up to 7 sources, detailed analysis, action items",
	PromptContext: `## Research Mode: Deep Dive
- Search for up to 7 sources
- You MUST fetch and read at least 5 relevant pages before answering
- Provide detailed analysis with supporting evidence from multiple sources
- Include actionable insights and recommendations
- Compare perspectives from different sources
- Cite ALL sources you read with numbered citations [1], [2], [3], etc.`,
}

// ModeByKey returns the mode for key, defaulting to QuickMode.
func ModeByKey(key string) ResearchMode {
	if key == DeepMode.Key {
		return DeepMode
	}
	return QuickMode
}

// --- Health types ---

// LLMHealth reports availability of the language-model service.
type LLMHealth struct {
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
	Models    []string `json:"models,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ToolServerHealth reports availability of the tool server and the tools it
// advertises.
type ToolServerHealth struct {
	Available      bool     `json:"available"`
	Tools          []string `json:"tools,omitempty"`
	SearchProvider string   `json:"search_provider,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// HealthStatus is the composite availability picture returned by
// Orchestrator.HealthCheck.
type HealthStatus struct {
	LLM        LLMHealth        `json:"llm"`
	ToolServer ToolServerHealth `json:"tool_server"`
	Model      string           `json:"model"`
}
