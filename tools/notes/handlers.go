package notes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/mcp"
)

// Handlers returns the three note tools (save_note, list_notes, get_note)
// backed by store, ready to register on an mcp.Server.
func Handlers(store Store, logger *slog.Logger) []mcp.ToolHandler {
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return []mcp.ToolHandler{
		saveHandler(store, logger),
		listHandler(store, logger),
		getHandler(store, logger),
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

func saveHandler(store Store, logger *slog.Logger) mcp.ToolHandler {
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "save_note",
			Description: "Save research findings as a note",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Note title"},
					"content":     map[string]any{"type": "string", "description": "Note content"},
					"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"source_urls": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"title", "content"},
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var params struct {
				Title      string   `json:"title"`
				Content    string   `json:"content"`
				Tags       []string `json:"tags"`
				SourceURLs []string `json:"source_urls"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, &mcp.ToolError{Code: scout.CodeInvalidRequest, Message: "invalid arguments: " + err.Error()}
			}
			if err := Validate(params.Title, params.Content, params.Tags); err != nil {
				return nil, err
			}

			note := New(params.Title, params.Content, params.Tags, params.SourceURLs)
			if err := store.Save(ctx, note); err != nil {
				logger.Error("save note failed", "error", err)
				return nil, &mcp.ToolError{Code: scout.CodeNoteSaveFailed, Message: "Failed to save note: " + err.Error()}
			}

			logger.Info("note saved", "id", note.ID, "title", note.Title)
			return map[string]any{"note": note}, nil
		},
	}
}

func listHandler(store Store, logger *slog.Logger) mcp.ToolHandler {
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "list_notes",
			Description: "List saved research notes",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":  map[string]any{"type": "string", "description": "Full-text search query"},
					"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"limit":  map[string]any{"type": "integer", "description": "Max results (default 20)"},
					"offset": map[string]any{"type": "integer", "description": "Pagination offset"},
				},
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var params struct {
				Query  string   `json:"query"`
				Tags   []string `json:"tags"`
				Limit  int      `json:"limit"`
				Offset int      `json:"offset"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, &mcp.ToolError{Code: scout.CodeInvalidRequest, Message: "invalid arguments: " + err.Error()}
			}

			q := normalizeQuery(Query{
				Text:   params.Query,
				Tags:   params.Tags,
				Limit:  params.Limit,
				Offset: params.Offset,
			})
			found, total, err := store.List(ctx, q)
			if err != nil {
				logger.Error("list notes failed", "error", err)
				return nil, &mcp.ToolError{Code: scout.CodeNotesQueryFailed, Message: "Failed to list notes: " + err.Error()}
			}

			return map[string]any{"notes": found, "count": total}, nil
		},
	}
}

func getHandler(store Store, logger *slog.Logger) mcp.ToolHandler {
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "get_note",
			Description: "Retrieve a specific note by ID",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "description": "The note ID (UUID format)"},
				},
				"required": []string{"id"},
			},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var params struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, &mcp.ToolError{Code: scout.CodeInvalidRequest, Message: "invalid arguments: " + err.Error()}
			}
			if params.ID == "" {
				return nil, &mcp.ToolError{Code: scout.CodeMissingParameter, Message: "Note id is required"}
			}

			note, err := store.Get(ctx, params.ID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil, &mcp.ToolError{Code: scout.CodeNoteNotFound, Message: "Note not found: " + params.ID}
				}
				logger.Error("get note failed", "id", params.ID, "error", err)
				return nil, &mcp.ToolError{Code: scout.CodeNotesQueryFailed, Message: "Failed to load note: " + err.Error()}
			}

			return map[string]any{"note": note}, nil
		},
	}
}
