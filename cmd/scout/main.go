// Command scout runs a single research query against a local Ollama model
// and the scout tool server, streaming the answer to stdout.
//
// Usage:
//
//	scout [flags] "your research question"
//
// With no positional argument the query is read from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/internal/config"
	"github.com/nevindra/scout/mcp"
	"github.com/nevindra/scout/observer"
	"github.com/nevindra/scout/provider/ollama"
)

func main() {
	mode := flag.String("mode", "", "research mode: quick or deep (overrides config)")
	model := flag.String("model", "", "ollama model name (overrides config)")
	extract := flag.String("extract", "", "fetch extract mode: text or markdown")
	health := flag.Bool("health", false, "check LLM and tool server availability, then exit")
	flag.Parse()

	// 1. Load config
	cfg := config.Load(os.Getenv("SCOUT_CONFIG"))
	if *mode != "" {
		cfg.Agent.Mode = *mode
	}
	if *model != "" {
		cfg.Ollama.Model = *model
	}

	logger := newLogger(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create providers
	var llm scout.Provider = ollama.New(
		ollama.WithBaseURL(cfg.Ollama.BaseURL),
		ollama.WithModel(cfg.Ollama.Model),
		ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutMS)*time.Millisecond),
		ollama.WithMaxRetries(cfg.Ollama.MaxRetries),
		ollama.WithLogger(logger),
	)
	var tools scout.ToolCaller = mcp.NewClient(cfg.MCP.ServerURL,
		mcp.WithTimeout(time.Duration(cfg.MCP.TimeoutMS)*time.Millisecond),
		mcp.WithLogger(logger),
	)

	// 3. Instrument when the observer is enabled
	opts := []scout.Option{
		scout.WithModel(cfg.Ollama.Model),
		scout.WithResearchMode(scout.ModeByKey(cfg.Agent.Mode)),
		scout.WithTemperature(cfg.Ollama.Temperature),
		scout.WithMaxIterations(cfg.Agent.MaxIterations),
		scout.WithToolTimeout(time.Duration(cfg.Agent.ToolTimeoutMS) * time.Millisecond),
		scout.WithLogger(logger),
	}
	if *extract != "" {
		opts = append(opts, scout.WithFetchExtractMode(*extract))
	}
	if cfg.Observer.Enabled {
		if cfg.Observer.Endpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Observer.Endpoint)
		}
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			logger.Warn("observer init failed, continuing without telemetry", "error", err)
		} else {
			defer shutdown(context.Background())
			llm = observer.WrapProvider(llm, cfg.Ollama.Model, inst)
			tools = observer.WrapToolCaller(tools, inst)
			opts = append(opts, scout.WithTracer(observer.NewTracer()))
		}
	}

	// 4. Create the orchestrator
	agent := scout.New(llm, tools, opts...)

	if *health {
		os.Exit(printHealth(ctx, agent))
	}

	query, err := readQuery(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	// 5. Run the query, streaming text as it arrives
	if err := run(ctx, agent, query); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, agent *scout.Orchestrator, query string) error {
	ch := make(chan string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range ch {
			fmt.Print(chunk)
		}
	}()

	cb := &scout.Callbacks{
		OnToolStart: func(name string, args map[string]any) {
			fmt.Fprintf(os.Stderr, "\n[%s ...]\n", name)
		},
	}

	resp, err := agent.ResearchStream(ctx, query, ch, cb)
	<-done
	if err != nil {
		return err
	}

	fmt.Println()
	if len(resp.Sources) > 0 {
		// The streamed text never includes the sources section; print it from
		// the response so citations resolve.
		fmt.Println(scout.AddSources("", resp.Sources))
	}
	if len(resp.FollowupQuestions) > 0 {
		fmt.Println("\nFollow-up questions:")
		for _, q := range resp.FollowupQuestions {
			fmt.Println("  -", q)
		}
	}
	if resp.CanSaveAsNote {
		fmt.Printf("\nSuggested note title: %s\n", resp.SuggestedTitle)
	}
	return nil
}

func readQuery(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", err
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", fmt.Errorf("empty query: pass it as an argument or on stdin")
	}
	return q, nil
}

func printHealth(ctx context.Context, agent *scout.Orchestrator) int {
	status := agent.HealthCheck(ctx)

	code := 0
	if status.LLM.Available {
		fmt.Printf("llm: ok (version %s, %d models)\n", status.LLM.Version, len(status.LLM.Models))
	} else {
		fmt.Printf("llm: unavailable (%s)\n", status.LLM.Error)
		code = 1
	}
	if status.ToolServer.Available {
		fmt.Printf("tool server: ok (tools: %s)\n", strings.Join(status.ToolServer.Tools, ", "))
	} else {
		fmt.Printf("tool server: unavailable (%s)\n", status.ToolServer.Error)
		code = 1
	}
	fmt.Printf("model: %s\n", status.Model)
	return code
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
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
