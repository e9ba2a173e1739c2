package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func echoTool(name string) ToolHandler {
	return ToolHandler{
		Definition: ToolDefinition{
			Name:        name,
			Description: "echoes its arguments",
			InputSchema: map[string]any{"type": "object"},
		},
		Execute: func(_ context.Context, args json.RawMessage) (any, error) {
			var m map[string]any
			if err := json.Unmarshal(args, &m); err != nil {
				return nil, &ToolError{Code: "invalid_request", Message: "bad arguments"}
			}
			return map[string]any{"echo": m}, nil
		},
	}
}

func rpc(t *testing.T, srv *Server, body string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestServerToolsList(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	srv.AddTool(echoTool("web_search"))
	srv.AddTool(echoTool("fetch_page"))

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tools/list"}`)
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var list toolsListResult
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Tools) != 2 || list.Tools[0].Name != "web_search" {
		t.Errorf("tools = %+v", list.Tools)
	}
}

func TestServerToolsCall(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	srv.AddTool(echoTool("web_search"))

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"req-1","method":"tools/call","params":{"name":"web_search","arguments":{"query":"go"}}}`)
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	if string(resp.ID) != `"req-1"` {
		t.Errorf("id = %s", resp.ID)
	}
	var result map[string]any
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	echo, _ := result["echo"].(map[string]any)
	if echo["query"] != "go" {
		t.Errorf("result = %v", result)
	}
}

func TestServerUnknownTool(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"bogus","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Code != errCodeMethodNotFound {
		t.Fatalf("error = %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "bogus") {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"resources/list"}`)
	if resp.Error == nil || resp.Error.Code != errCodeMethodNotFound {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestServerParseError(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	resp := rpc(t, srv, `{not json`)
	if resp.Error == nil || resp.Error.Code != errCodeParse {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestServerInvalidVersion(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	resp := rpc(t, srv, `{"jsonrpc":"1.0","id":"1","method":"tools/list"}`)
	if resp.Error == nil || resp.Error.Code != errCodeInvalidRequest {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestServerToolErrorCarriesCode(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	srv.AddTool(ToolHandler{
		Definition: ToolDefinition{Name: "fetch_page"},
		Execute: func(context.Context, json.RawMessage) (any, error) {
			return nil, &ToolError{Code: "fetch_timeout", Message: "request timed out"}
		},
	})

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"fetch_page","arguments":{}}}`)
	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Data != "fetch_timeout" || resp.Error.Message != "request timed out" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestServerToolPanicContained(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	srv.AddTool(ToolHandler{
		Definition: ToolDefinition{Name: "web_search"},
		Execute: func(context.Context, json.RawMessage) (any, error) {
			panic("boom")
		},
	})

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"web_search","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Data != "internal_error" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestServerHealth(t *testing.T) {
	srv := NewServer("scout-mcp", "test", WithSearchProvider("duckduckgo"))
	srv.AddTool(echoTool("web_search"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var hp healthPayload
	if err := json.NewDecoder(w.Body).Decode(&hp); err != nil {
		t.Fatal(err)
	}
	if hp.Status != "ok" || hp.SearchProvider != "duckduckgo" || len(hp.Tools) != 1 {
		t.Errorf("health = %+v", hp)
	}
}

func TestServerCallTimeout(t *testing.T) {
	srv := NewServer("scout-mcp", "test", WithCallTimeout(20*time.Millisecond))
	srv.AddTool(ToolHandler{
		Definition: ToolDefinition{Name: "web_search"},
		Execute: func(ctx context.Context, _ json.RawMessage) (any, error) {
			select {
			case <-ctx.Done():
				return nil, &ToolError{Code: "search_timeout", Message: "search timed out"}
			case <-time.After(time.Second):
				return map[string]any{}, nil
			}
		},
	})

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"web_search","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Data != "search_timeout" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestServerResponseIsValidJSONRPC(t *testing.T) {
	srv := NewServer("scout-mcp", "test")
	srv.AddTool(echoTool("web_search"))

	body := `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"web_search","arguments":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var generic map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &generic); err != nil {
		t.Fatal(err)
	}
	if generic["jsonrpc"] != "2.0" || generic["id"] != "abc" {
		t.Errorf("envelope = %v", generic)
	}
}
