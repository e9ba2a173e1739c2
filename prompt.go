package scout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// toolDefinitions is the tool catalog injected into the system prompt. The
// wording is deliberately repetitive about the whitelist: small local models
// invent tools otherwise.
const toolDefinitions = `
You have access to EXACTLY 5 tools. DO NOT invent or use any other tools.
ONLY use: web_search, fetch_page, save_note, list_notes, get_note

1. **web_search** - Search the web for information
   Parameters:
   - query (required): The search query
   - limit (optional): Max results (1-5, default 3)

   Example:
   <tool_call>
   {"name": "web_search", "arguments": {"query": "latest AI research 2025", "limit": 3}}
   </tool_call>

2. **fetch_page** - Fetch and read content from a web page
   Parameters:
   - url (required): The URL to fetch
   - max_chars (optional): Max content length (default 8000)
   - extract_mode (optional): Output format ("text" or "markdown", default "text")

   Example:
   <tool_call>
   {"name": "fetch_page", "arguments": {"url": "https://example.com/article", "extract_mode": "text"}}
   </tool_call>

3. **save_note** - Save research findings as a note
   Parameters:
   - title (required): Note title
   - content (required): Note content
   - tags (optional): List of tags for categorization
   - source_urls (optional): List of source URLs

   Example:
   <tool_call>
   {"name": "save_note", "arguments": {"title": "AI Research Summary", "content": "Key findings...", "tags": ["ai", "research"], "source_urls": ["https://example.com"]}}
   </tool_call>

4. **list_notes** - List saved research notes
   Parameters:
   - query (optional): Full-text search query
   - tags (optional): Filter by tags
   - limit (optional): Max results (default 20)
   - offset (optional): Pagination offset (default 0)

   Example:
   <tool_call>
   {"name": "list_notes", "arguments": {"query": "machine learning", "limit": 10}}
   </tool_call>

5. **get_note** - Retrieve a specific note by ID
   Parameters:
   - id (required): The note ID (UUID format)

   Example:
   <tool_call>
   {"name": "get_note", "arguments": {"id": "550e8400-e29b-41d4-a716-446655440000"}}
   </tool_call>
`

const systemPromptTemplate = `You are a research assistant that helps users find, analyze, and save information from the web.

## Your Capabilities
%s

## Guidelines

### Using Tools - IMPORTANT
- When you need information from the web, use ` + "`web_search`" + ` first to find sources.
- **You MUST fetch multiple pages** - do not answer from just one source.
- After searching, use ` + "`fetch_page`" + ` on the top 3-5 most relevant URLs.
- Always search before answering questions about current events, facts, or technical details.
- Use ` + "`save_note`" + ` when the user asks to save findings or when research is particularly valuable.
- Use ` + "`list_notes`" + ` to check if we've already researched a topic.

### Multi-Source Research (REQUIRED)
- **Never answer from a single source** - always read at least 2-3 pages.
- Compare information across sources for accuracy.
- If sources disagree, note the different perspectives.
- More sources = more credible answer.

### Citations and Sources
- **ALWAYS cite your sources** when presenting information from the web.
- Include numbered citations in your response: [1], [2], [3], etc.
- Every factual claim should have a citation.
- At the end of your response, list ALL sources with their URLs.
- Format sources as:

  **Sources:**
  [1] Title or description - URL
  [2] Title or description - URL
  [3] Title or description - URL

### Response Format
- Be concise but thorough.
- Use markdown formatting for readability.
- Structure long responses with headers and bullet points.
- Synthesize information from multiple sources coherently.

### When You Can't Help
- If a search returns no results, say so clearly.
- If a page can't be fetched, try alternative sources.
- If you're unsure about something, acknowledge the uncertainty.

### Tool Call Format
To use a tool, output a tool call in this exact format:
<tool_call>
{"name": "tool_name", "arguments": {"param1": "value1", "param2": "value2"}}
</tool_call>

Wait for the tool result before continuing. You can make multiple tool calls in sequence if needed.

### CRITICAL RULES
- ONLY use these 5 tools: web_search, fetch_page, save_note, list_notes, get_note
- DO NOT invent tools like "analyze", "summarize", "refine", "implement", etc.
- If you need to analyze or summarize, just write the analysis directly - don't call a tool
- Keep your research focused - search once, fetch 2-3 pages, then provide your answer

Remember: Your goal is to help the user find accurate, well-sourced information from MULTIPLE sources.`

// BuildSystemPrompt assembles the system prompt: tool catalog, guidelines,
// the mode's depth directives, and optional caller-supplied context.
func BuildSystemPrompt(includeTools bool, additionalContext string, mode ResearchMode) string {
	defs := ""
	if includeTools {
		defs = toolDefinitions
	}
	prompt := fmt.Sprintf(systemPromptTemplate, defs)
	prompt += "\n" + mode.PromptContext
	if additionalContext != "" {
		prompt += "\n\n## Additional Context\n" + additionalContext
	}
	return strings.TrimSpace(prompt)
}

// FormatToolResult renders a tool outcome as the tagged block fed back to the
// LLM. Successes get per-tool formatting; failures become a <tool_error>
// block so the model can recover or route around the tool.
func FormatToolResult(toolName string, result map[string]any, success bool) string {
	if success {
		return fmt.Sprintf("<tool_result name=%q>\n%s\n</tool_result>", toolName, formatResultContent(toolName, result))
	}
	msg := stringField(result, "message")
	if msg == "" {
		msg = "Unknown error"
	}
	code := stringField(result, "code")
	if code == "" {
		code = "error"
	}
	return fmt.Sprintf("<tool_error name=%q code=%q>\n%s\n</tool_error>", toolName, code, msg)
}

func formatResultContent(toolName string, result map[string]any) string {
	switch toolName {
	case "web_search":
		results := sliceField(result, "results")
		if len(results) == 0 {
			return "No results found."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d results:\n", len(results))
		for i, r := range results {
			m, _ := r.(map[string]any)
			title := stringField(m, "title")
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(&b, "\n[%d] %s\n", i+1, title)
			fmt.Fprintf(&b, "    URL: %s\n", stringField(m, "url"))
			if snippet := stringField(m, "snippet"); snippet != "" {
				fmt.Fprintf(&b, "    %s...\n", truncate(snippet, 200))
			}
		}
		return strings.TrimRight(b.String(), "\n")

	case "fetch_page":
		title := stringField(result, "title")
		if title == "" {
			title = "Untitled"
		}
		content := stringField(result, "content")
		clipped := truncate(content, 5000)
		if clipped != content {
			clipped += "..."
		}
		out := fmt.Sprintf("Title: %s\nURL: %s\n\nContent:\n%s", title, stringField(result, "url"), clipped)
		if truncated, _ := result["truncated"].(bool); truncated {
			out += "\n\n(Content was truncated)"
		}
		return out

	case "save_note":
		note := mapField(result, "note")
		return fmt.Sprintf("Note saved successfully.\nID: %s\nTitle: %s", stringField(note, "id"), stringField(note, "title"))

	case "list_notes":
		notes := sliceField(result, "notes")
		if len(notes) == 0 {
			return "No notes found."
		}
		count := len(notes)
		if c, ok := result["count"].(float64); ok {
			count = int(c)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d notes:\n", count)
		for _, n := range notes {
			m, _ := n.(map[string]any)
			fmt.Fprintf(&b, "\n- %s (ID: %s...)", stringField(m, "title"), truncate(stringField(m, "id"), 8))
			if tags := stringsField(m, "tags"); len(tags) > 0 {
				fmt.Fprintf(&b, "\n  Tags: %s", strings.Join(tags, ", "))
			}
		}
		return b.String()

	case "get_note":
		note := mapField(result, "note")
		lines := []string{
			"Title: " + stringField(note, "title"),
			"ID: " + stringField(note, "id"),
			"Created: " + stringField(note, "created_at"),
			"Tags: " + strings.Join(stringsField(note, "tags"), ", "),
			"",
			"Content:",
			stringField(note, "content"),
		}
		if urls := stringsField(note, "source_urls"); len(urls) > 0 {
			lines = append(lines, "", "Sources:")
			for _, u := range urls {
				lines = append(lines, "- "+u)
			}
		}
		return strings.Join(lines, "\n")

	default:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", result)
		}
		return string(out)
	}
}

// truncate clips s to n characters on a rune boundary so multi-byte text is
// never cut mid-rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func sliceField(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func stringsField(m map[string]any, key string) []string {
	raw, _ := m[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
