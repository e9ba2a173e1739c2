package scout

import (
	"encoding/json"
	"regexp"
	"strings"
)

// toolCallRE matches a complete <tool_call>...</tool_call> block and captures
// the JSON payload between the tags. Case-insensitive, spans newlines.
var toolCallRE = regexp.MustCompile(`(?is)<tool_call>\s*(.*?)\s*</tool_call>`)

// openTagRE finds opening tags for incomplete-call detection.
var openTagRE = regexp.MustCompile(`(?i)<tool_call>`)

var blankRunRE = regexp.MustCompile(`\n{3,}`)

// ParseToolCalls extracts structured tool calls from one LLM output.
//
// Malformed calls (invalid JSON after repair, missing name, non-object
// arguments) are skipped silently; the valid ones around them still parse.
// HasIncomplete reports an opening tag with no matching close, which is the
// mid-call signal during streaming.
func ParseToolCalls(text string) ParseResult {
	matches := toolCallRE.FindAllStringSubmatchIndex(text, -1)

	if len(matches) == 0 {
		if loc := danglingOpenTag(text); loc >= 0 {
			return ParseResult{
				TextBefore:    strings.TrimSpace(text[:loc]),
				HasIncomplete: true,
			}
		}
		return ParseResult{TextBefore: strings.TrimSpace(text)}
	}

	first, last := matches[0], matches[len(matches)-1]
	textBefore := strings.TrimSpace(text[:first[0]])
	textAfter := strings.TrimSpace(text[last[1]:])
	hasIncomplete := danglingOpenTag(textAfter) >= 0

	var calls []ToolCall
	for _, m := range matches {
		raw := strings.TrimSpace(text[m[2]:m[3]])
		call, ok := parseSingleToolCall(raw)
		if !ok {
			continue
		}
		calls = append(calls, call)
	}

	return ParseResult{
		ToolCalls:     calls,
		TextBefore:    textBefore,
		TextAfter:     textAfter,
		HasIncomplete: hasIncomplete,
	}
}

// danglingOpenTag returns the index of an opening <tool_call> tag that has no
// closing tag anywhere after it, or -1. RE2 has no lookahead, so this is done
// by checking the text after the last opening tag directly.
func danglingOpenTag(text string) int {
	locs := openTagRE.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return -1
	}
	last := locs[len(locs)-1]
	rest := strings.ToLower(text[last[1]:])
	if strings.Contains(rest, "</tool_call>") {
		return -1
	}
	return last[0]
}

func parseSingleToolCall(raw string) (ToolCall, bool) {
	cleaned := repairJSON(raw)

	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return ToolCall{}, false
	}

	var name string
	if err := json.Unmarshal(data["name"], &name); err != nil || name == "" {
		return ToolCall{}, false
	}

	args := map[string]any{}
	if rawArgs, ok := data["arguments"]; ok {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return ToolCall{}, false
		}
	}

	return ToolCall{Name: name, Arguments: args, Raw: raw}, true
}

// repairJSON fixes the JSON mistakes local models make most often: markdown
// code fences around the payload, and single quotes instead of double quotes.
// The quote swap only fires when the payload has no double quotes at all, so
// it cannot corrupt strings containing apostrophes.
func repairJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if strings.Contains(cleaned, "'") && !strings.Contains(cleaned, `"`) {
		cleaned = strings.ReplaceAll(cleaned, "'", `"`)
	}

	return cleaned
}

// ExtractText strips every tool-call block, complete or dangling, and
// collapses the leftover blank runs. Used to guarantee the final answer
// carries no protocol markup.
func ExtractText(text string) string {
	result := toolCallRE.ReplaceAllString(text, "")
	if loc := openTagRE.FindStringIndex(result); loc != nil {
		result = result[:loc[0]]
	}
	result = blankRunRE.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// HasToolCall reports whether text contains at least one complete tool call.
func HasToolCall(text string) bool {
	return toolCallRE.MatchString(text)
}

// IsMidToolCall reports whether text ends in an unterminated tool call with
// no complete one before it. Streaming uses it to hold back partial output.
func IsMidToolCall(text string) bool {
	return danglingOpenTag(text) >= 0 && !toolCallRE.MatchString(text)
}

// SplitAtToolCall splits text at the first tool-call boundary: the text
// before the first opening tag and everything from that tag on. With no tag
// present, after is empty.
func SplitAtToolCall(text string) (before, after string) {
	loc := openTagRE.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:loc[0]]), text[loc[0]:]
}
