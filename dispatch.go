package scout

import (
	"context"
	"sort"
	"strings"
	"time"
)

// validTools is the tool whitelist. Calls to anything else are rejected
// before reaching the tool server — local models hallucinate tool names and
// each bogus call would otherwise burn a network round trip.
var validTools = map[string]struct{}{
	"web_search": {},
	"fetch_page": {},
	"save_note":  {},
	"list_notes": {},
	"get_note":   {},
}

func validToolNames() []string {
	names := make([]string, 0, len(validTools))
	for name := range validTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Callbacks are optional per-query observer hooks. Each hook is invoked
// synchronously; panics inside a hook are swallowed so a misbehaving UI
// cannot abort research.
type Callbacks struct {
	OnToolStart    func(name string, args map[string]any)
	OnToolComplete func(name string, result map[string]any, success bool)
	OnTextChunk    func(chunk string)
}

func (cb *Callbacks) toolStart(name string, args map[string]any) {
	if cb == nil || cb.OnToolStart == nil {
		return
	}
	defer func() { recover() }()
	cb.OnToolStart(name, args)
}

func (cb *Callbacks) toolComplete(name string, result map[string]any, success bool) {
	if cb == nil || cb.OnToolComplete == nil {
		return
	}
	defer func() { recover() }()
	cb.OnToolComplete(name, result, success)
}

func (cb *Callbacks) textChunk(chunk string) {
	if cb == nil || cb.OnTextChunk == nil {
		return
	}
	defer func() { recover() }()
	cb.OnTextChunk(chunk)
}

// executeTool dispatches one parsed tool call and folds every failure mode
// (unknown tool, transport error, structured tool error) into a
// ToolExecution record. It never returns an error: a failed tool is data
// the LLM recovers from, not a reason to abort the query.
func (o *Orchestrator) executeTool(ctx context.Context, tc ToolCall, cb *Callbacks) ToolExecution {
	start := time.Now()

	if _, ok := validTools[tc.Name]; !ok {
		o.logger.Warn("skipping unknown tool", "request_id", o.requestID, "tool", tc.Name)
		cb.toolComplete(tc.Name, map[string]any{}, false)
		return ToolExecution{
			ToolName:  tc.Name,
			Arguments: tc.Arguments,
			Error:     "Unknown tool: " + tc.Name + ". Valid tools: " + strings.Join(validToolNames(), ", "),
			Success:   false,
			Timestamp: time.Now(),
			RequestID: o.requestID,
		}
	}

	// The fetch mode preference is orchestrator state, not something the LLM
	// knows about, so it is injected when the model leaves it out.
	if tc.Name == "fetch_page" {
		if _, ok := tc.Arguments["extract_mode"]; !ok {
			tc.Arguments["extract_mode"] = o.fetchExtractMode
		}
	}

	cb.toolStart(tc.Name, tc.Arguments)

	o.logger.Info("executing tool",
		"request_id", o.requestID,
		"tool", tc.Name,
		"arguments", tc.Arguments)

	callCtx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()

	outcome, err := o.tools.CallTool(callCtx, tc.Name, tc.Arguments, o.requestID)
	durationMS := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		o.logger.Error("tool execution failed",
			"request_id", o.requestID,
			"tool", tc.Name,
			"error", err)
		cb.toolComplete(tc.Name, map[string]any{}, false)
		return ToolExecution{
			ToolName:   tc.Name,
			Arguments:  tc.Arguments,
			Error:      err.Error(),
			Success:    false,
			DurationMS: durationMS,
			Timestamp:  time.Now(),
			RequestID:  o.requestID,
		}
	}

	if !outcome.Success {
		errMsg := outcome.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		cb.toolComplete(tc.Name, map[string]any{}, false)
		return ToolExecution{
			ToolName:   tc.Name,
			Arguments:  tc.Arguments,
			Error:      errMsg,
			Success:    false,
			DurationMS: durationMS,
			Timestamp:  time.Now(),
			RequestID:  o.requestID,
		}
	}

	cb.toolComplete(tc.Name, outcome.Data, true)
	return ToolExecution{
		ToolName:   tc.Name,
		Arguments:  tc.Arguments,
		Result:     outcome.Data,
		Success:    true,
		DurationMS: durationMS,
		Timestamp:  time.Now(),
		RequestID:  o.requestID,
	}
}
