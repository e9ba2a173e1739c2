package scout

import "fmt"

// Machine-readable error codes. Snake case, specific over generic, stable
// across releases so front-ends can switch on them.
const (
	// Validation
	CodeInvalidRequest   = "invalid_request"
	CodeMissingParameter = "missing_parameter"
	CodeInvalidURL       = "invalid_url"

	// Search
	CodeSearchFailed      = "search_failed"
	CodeSearchTimeout     = "search_timeout"
	CodeSearchNoResults   = "search_no_results"
	CodeSearchRateLimited = "search_rate_limited"

	// Fetch
	CodeFetchFailed      = "fetch_failed"
	CodeFetchTimeout     = "fetch_timeout"
	CodeFetchBlocked     = "fetch_blocked"
	CodeFetchInvalidURL  = "fetch_invalid_url"
	CodeFetchContentType = "fetch_content_type"

	// Notes
	CodeNoteNotFound        = "note_not_found"
	CodeNoteSaveFailed      = "note_save_failed"
	CodeNoteTitleRequired   = "note_title_required"
	CodeNoteContentRequired = "note_content_required"
	CodeNoteTitleTooLong    = "note_title_too_long"
	CodeNoteContentTooLong  = "note_content_too_long"
	CodeNoteTooManyTags     = "note_too_many_tags"
	CodeNoteTagTooLong      = "note_tag_too_long"
	CodeNotesDBUnavailable  = "notes_db_unavailable"
	CodeNotesQueryFailed    = "notes_query_failed"

	// Services
	CodeOllamaUnavailable    = "ollama_unavailable"
	CodeOllamaModelNotFound  = "ollama_model_not_found"
	CodeOllamaTimeout        = "ollama_timeout"
	CodeMCPServerUnavailable = "mcp_server_unavailable"
	CodeMCPToolFailed        = "mcp_tool_failed"

	// Internal
	CodeInternalError       = "internal_error"
	CodeOrchestrationFailed = "orchestration_failed"
)

// ErrLLM is a service-level language-model failure (unreachable, timed out,
// model not installed). It aborts the current query.
type ErrLLM struct {
	Code       string
	Message    string
	Model      string
	Suggestion string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("llm [%s]: %s", e.Code, e.Message)
}

// ErrTool is a tool-server failure: transport-level (server unreachable,
// call timed out) or a structured tool error that a handler chose to raise.
// The orchestrator folds these into failed ToolExecution records rather than
// aborting the query.
type ErrTool struct {
	Code       string
	Tool       string
	Message    string
	Suggestion string
}

func (e *ErrTool) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("tool %s [%s]: %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("tool [%s]: %s", e.Code, e.Message)
}

// ErrHTTP is a raw transport failure with the response status and body,
// used by clients before classification into ErrLLM/ErrTool.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
