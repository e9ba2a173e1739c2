// Command scout-mcp serves the research tools over JSON-RPC: web_search,
// fetch_page, save_note, list_notes, and get_note.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/scout/internal/config"
	"github.com/nevindra/scout/mcp"
	"github.com/nevindra/scout/store/postgres"
	"github.com/nevindra/scout/store/sqlite"
	"github.com/nevindra/scout/tools/fetch"
	"github.com/nevindra/scout/tools/notes"
	"github.com/nevindra/scout/tools/search"
)

const version = "1.0.0"

func main() {
	// 1. Load config
	cfg := config.Load(os.Getenv("SCOUT_CONFIG"))
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create the note store
	store, cleanup, err := newStore(ctx, cfg.Notes)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.Notes.Driver, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// 3. Create the search provider
	var provider search.Provider
	if cfg.Search.Provider == "serper" && cfg.Search.APIKey != "" {
		provider = search.NewSerper(cfg.Search.APIKey)
	} else {
		provider = search.NewDuckDuckGo()
	}

	// 4. Assemble the server
	srv := mcp.NewServer("scout-mcp", version,
		mcp.WithSearchProvider(provider.Name()),
		mcp.WithCallTimeout(time.Duration(cfg.MCP.TimeoutMS)*time.Millisecond),
		mcp.WithServerLogger(logger),
	)
	srv.AddTool(search.Handler(provider, logger))
	srv.AddTool(fetch.Handler(fetch.New(
		fetch.WithLogger(logger),
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutMS)*time.Millisecond),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)))
	for _, h := range notes.Handlers(store, logger) {
		srv.AddTool(h)
	}

	// 5. Serve until interrupted
	logger.Info("starting tool server",
		"addr", cfg.MCP.Addr,
		"search_provider", provider.Name(),
		"notes_driver", cfg.Notes.Driver)
	if err := srv.ListenAndServe(ctx, cfg.MCP.Addr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newStore opens the configured notes backend and runs its schema setup.
func newStore(ctx context.Context, cfg config.NotesConfig) (notes.Store, func(), error) {
	if cfg.Driver == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.Init(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	store := sqlite.New(cfg.Path)
	if err := store.Init(ctx); err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
