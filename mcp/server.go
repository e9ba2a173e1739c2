package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ToolError is a structured failure raised by a tool handler. It becomes a
// JSON-RPC error with the machine code in the data field so clients can
// switch on it.
type ToolError struct {
	Code    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Code + ": " + e.Message
}

// ToolHandler is a tool the server exposes. Execute returns the
// tool-specific result payload, or a *ToolError for structured failures.
type ToolHandler struct {
	Definition ToolDefinition
	Execute    func(ctx context.Context, args json.RawMessage) (any, error)
}

// Server serves research tools over JSON-RPC 2.0 HTTP. Register tools
// before calling Handler or ListenAndServe.
type Server struct {
	name           string
	version        string
	searchProvider string
	callTimeout    time.Duration
	logger         *slog.Logger

	mu    sync.RWMutex
	tools []ToolHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSearchProvider sets the provider name advertised on /health
// ("duckduckgo" or "serper").
func WithSearchProvider(name string) ServerOption {
	return func(s *Server) { s.searchProvider = name }
}

// WithCallTimeout bounds a single tool execution (default 30s).
func WithCallTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.callTimeout = d }
}

// WithServerLogger sets a structured logger for the server.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a tool server with the given name and version.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		name:        name,
		version:     version,
		callTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(discardHandler{})
	}
	return s
}

// AddTool registers a tool handler.
func (s *Server) AddTool(h ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, h)
}

// Handler returns the HTTP handler: POST /mcp for JSON-RPC, GET /health for
// availability probes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.handleRPC)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// ListenAndServe runs the server on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("tool server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Definition.Name)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, healthPayload{
		Status:         "ok",
		Tools:          names,
		SearchProvider: s.searchProvider,
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, json.RawMessage("null"), errCodeParse, "parse error", "")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, errCodeInvalidRequest, "invalid request: jsonrpc must be \"2.0\"", "")
		return
	}

	switch req.Method {
	case "tools/list":
		s.handleToolsList(w, &req)
	case "tools/call":
		s.handleToolsCall(r.Context(), w, &req)
	default:
		s.writeError(w, req.ID, errCodeMethodNotFound, "method not found: "+req.Method, "")
	}
}

func (s *Server) handleToolsList(w http.ResponseWriter, req *request) {
	s.mu.RLock()
	defs := make([]ToolDefinition, len(s.tools))
	for i, t := range s.tools {
		defs[i] = t.Definition
	}
	s.mu.RUnlock()

	s.writeResult(w, req.ID, toolsListResult{Tools: defs})
}

func (s *Server) handleToolsCall(ctx context.Context, w http.ResponseWriter, req *request) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, errCodeInvalidParams, "invalid params: "+err.Error(), "")
		return
	}

	handler, ok := s.lookup(params.Name)
	if !ok {
		s.writeError(w, req.ID, errCodeMethodNotFound, "unknown tool: "+params.Name, "")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.execute(callCtx, handler, params.Arguments)
	duration := time.Since(start)

	if err != nil {
		msg := err.Error()
		code := ""
		var terr *ToolError
		if errors.As(err, &terr) {
			msg = terr.Message
			code = terr.Code
		}
		s.logger.Warn("tool failed",
			"tool", params.Name,
			"error", err,
			"duration_ms", duration.Milliseconds())
		s.writeError(w, req.ID, errCodeInternal, msg, code)
		return
	}

	s.logger.Info("tool completed",
		"tool", params.Name,
		"duration_ms", duration.Milliseconds())
	s.writeResult(w, req.ID, result)
}

// execute runs a handler with panic recovery so one buggy tool cannot take
// the server down.
func (s *Server) execute(ctx context.Context, h ToolHandler, args json.RawMessage) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ToolError{Code: "internal_error", Message: "tool panicked"}
			s.logger.Error("tool panic", "tool", h.Definition.Name, "panic", p)
		}
	}()
	return h.Execute(ctx, args)
}

func (s *Server) lookup(name string) (ToolHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tools {
		if t.Definition.Name == name {
			return t, true
		}
	}
	return ToolHandler{}, false
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, id, errCodeInternal, "encode result: "+err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, response{JSONRPC: "2.0", ID: normalizeID(id), Result: raw})
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, message, data string) {
	writeJSON(w, http.StatusOK, response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &rpcError{Code: code, Message: message, Data: data},
	})
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

