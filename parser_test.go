package scout

import (
	"strings"
	"testing"
)

func TestParseToolCallsSingle(t *testing.T) {
	text := `Let me search for that.
<tool_call>
{"name": "web_search", "arguments": {"query": "golang generics", "limit": 3}}
</tool_call>
I'll have results shortly.`

	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	call := res.ToolCalls[0]
	if call.Name != "web_search" {
		t.Errorf("name = %q, want web_search", call.Name)
	}
	if call.Arguments["query"] != "golang generics" {
		t.Errorf("query = %v", call.Arguments["query"])
	}
	if got := call.Arguments["limit"]; got != float64(3) {
		t.Errorf("limit = %v (%T), want 3", got, got)
	}
	if res.TextBefore != "Let me search for that." {
		t.Errorf("text before = %q", res.TextBefore)
	}
	if res.TextAfter != "I'll have results shortly." {
		t.Errorf("text after = %q", res.TextAfter)
	}
	if res.HasIncomplete {
		t.Error("unexpected incomplete flag")
	}
}

func TestParseToolCallsMultiple(t *testing.T) {
	text := `<tool_call>{"name": "web_search", "arguments": {"query": "a"}}</tool_call>
<tool_call>{"name": "fetch_page", "arguments": {"url": "https://example.com"}}</tool_call>`

	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Name != "web_search" || res.ToolCalls[1].Name != "fetch_page" {
		t.Errorf("names = %q, %q", res.ToolCalls[0].Name, res.ToolCalls[1].Name)
	}
}

func TestParseToolCallsNoCalls(t *testing.T) {
	res := ParseToolCalls("  Just a plain answer with no tools.  ")
	if len(res.ToolCalls) != 0 {
		t.Fatalf("got %d tool calls, want 0", len(res.ToolCalls))
	}
	if res.TextBefore != "Just a plain answer with no tools." {
		t.Errorf("text before = %q", res.TextBefore)
	}
	if res.HasIncomplete {
		t.Error("unexpected incomplete flag")
	}
}

func TestParseToolCallsMalformedSkipped(t *testing.T) {
	text := `<tool_call>{not json at all</tool_call>
<tool_call>{"name": "web_search", "arguments": {"query": "ok"}}</tool_call>
<tool_call>{"arguments": {"query": "missing name"}}</tool_call>
<tool_call>{"name": "fetch_page", "arguments": "not an object"}</tool_call>`

	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Name != "web_search" {
		t.Errorf("name = %q", res.ToolCalls[0].Name)
	}
}

func TestParseToolCallsRepairsCodeFence(t *testing.T) {
	text := "<tool_call>```json\n{\"name\": \"web_search\", \"arguments\": {\"query\": \"x\"}}\n```</tool_call>"
	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
}

func TestParseToolCallsRepairsSingleQuotes(t *testing.T) {
	text := `<tool_call>{'name': 'web_search', 'arguments': {'query': 'rust'}}</tool_call>`
	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Arguments["query"] != "rust" {
		t.Errorf("query = %v", res.ToolCalls[0].Arguments["query"])
	}
}

func TestParseToolCallsMixedQuotesNotRewritten(t *testing.T) {
	// A payload that already uses double quotes must keep its apostrophes.
	text := `<tool_call>{"name": "save_note", "arguments": {"title": "Go's scheduler", "content": "notes"}}</tool_call>`
	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Arguments["title"] != "Go's scheduler" {
		t.Errorf("title = %v", res.ToolCalls[0].Arguments["title"])
	}
}

func TestParseToolCallsCaseInsensitive(t *testing.T) {
	text := `<TOOL_CALL>{"name": "list_notes", "arguments": {}}</TOOL_CALL>`
	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
}

func TestParseToolCallsIncomplete(t *testing.T) {
	text := `Searching now.
<tool_call>
{"name": "web_sea`

	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 0 {
		t.Fatalf("got %d tool calls, want 0", len(res.ToolCalls))
	}
	if !res.HasIncomplete {
		t.Error("want incomplete flag")
	}
	if res.TextBefore != "Searching now." {
		t.Errorf("text before = %q", res.TextBefore)
	}
}

func TestParseToolCallsIncompleteAfterComplete(t *testing.T) {
	text := `<tool_call>{"name": "web_search", "arguments": {"query": "a"}}</tool_call>
<tool_call>{"name": "fetch`

	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	if !res.HasIncomplete {
		t.Error("want incomplete flag")
	}
}

func TestParseToolCallsEmptyArguments(t *testing.T) {
	text := `<tool_call>{"name": "list_notes"}</tool_call>`
	res := ParseToolCalls(text)
	if len(res.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Arguments == nil {
		t.Error("arguments should default to empty map")
	}
}

func TestExtractText(t *testing.T) {
	text := `Before.
<tool_call>{"name": "web_search", "arguments": {}}</tool_call>


After.`
	got := ExtractText(text)
	if strings.Contains(got, "tool_call") {
		t.Errorf("tag leaked: %q", got)
	}
	if got != "Before.\n\nAfter." {
		t.Errorf("got %q", got)
	}
}

func TestExtractTextDanglingTag(t *testing.T) {
	got := ExtractText(`Answer so far <tool_call>{"name": "web`)
	if got != "Answer so far" {
		t.Errorf("got %q", got)
	}
}

func TestSplitAtToolCall(t *testing.T) {
	before, after := SplitAtToolCall(`Thinking... <tool_call>{"name": "web_search"`)
	if before != "Thinking..." {
		t.Errorf("before = %q", before)
	}
	if !strings.HasPrefix(after, "<tool_call>") {
		t.Errorf("after = %q", after)
	}

	before, after = SplitAtToolCall("no calls here")
	if before != "no calls here" || after != "" {
		t.Errorf("got %q / %q", before, after)
	}
}

func TestIsMidToolCall(t *testing.T) {
	if !IsMidToolCall(`text <tool_call>{"name":`) {
		t.Error("want true for dangling open tag")
	}
	if IsMidToolCall(`<tool_call>{"name": "x", "arguments": {}}</tool_call>`) {
		t.Error("want false once the call is complete")
	}
	if IsMidToolCall("plain text") {
		t.Error("want false without tags")
	}
}
