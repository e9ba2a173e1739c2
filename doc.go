// Package scout is a local research-assistant agent core. It drives a
// bounded loop between a chat LLM and an external tool server: the LLM
// emits <tool_call> instructions inside free-form text, scout parses and
// dispatches them, feeds results back into the conversation, and returns
// the final answer together with a tool trace, deduplicated sources, a
// suggested note title, and follow-up question suggestions.
//
// The core is transport-agnostic: the LLM is any Provider (provider/ollama
// ships one for the native Ollama API) and tools are reached through any
// ToolCaller (mcp ships a JSON-RPC 2.0 HTTP client and a matching server
// exposing web search, page fetching, and note storage).
package scout
