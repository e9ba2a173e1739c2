// Package config loads application configuration: defaults, then an
// optional TOML file, then SCOUT_* environment variables (env wins).
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Ollama   OllamaConfig   `toml:"ollama"`
	Agent    AgentConfig    `toml:"agent"`
	MCP      MCPConfig      `toml:"mcp"`
	Search   SearchConfig   `toml:"search"`
	Fetch    FetchConfig    `toml:"fetch"`
	Notes    NotesConfig    `toml:"notes"`
	Observer ObserverConfig `toml:"observer"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, pretty
}

type OllamaConfig struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	TimeoutMS   int     `toml:"timeout_ms"`
	MaxRetries  int     `toml:"max_retries"`
	Temperature float64 `toml:"temperature"`
}

type AgentConfig struct {
	Mode          string `toml:"mode"` // quick, deep
	MaxIterations int    `toml:"max_iterations"`
	ToolTimeoutMS int    `toml:"tool_timeout_ms"`
}

type MCPConfig struct {
	ServerURL string `toml:"server_url"`
	Addr      string `toml:"addr"` // listen address for scout-mcp
	TimeoutMS int    `toml:"timeout_ms"`
}

type SearchConfig struct {
	Provider string `toml:"provider"` // duckduckgo, serper
	APIKey   string `toml:"api_key"`
}

type FetchConfig struct {
	TimeoutMS int    `toml:"timeout_ms"`
	UserAgent string `toml:"user_agent"`
}

type NotesConfig struct {
	Driver      string `toml:"driver"` // sqlite, postgres
	Path        string `toml:"path"`   // sqlite file
	PostgresURL string `toml:"postgres_url"`
}

type ObserverConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP HTTP endpoint
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "pretty"},
		Ollama: OllamaConfig{BaseURL: "http://localhost:11434", Model: "qwen3:8b", TimeoutMS: 120000, MaxRetries: 3, Temperature: 0.7},
		Agent:  AgentConfig{Mode: "quick", MaxIterations: 5, ToolTimeoutMS: 30000},
		MCP:    MCPConfig{ServerURL: "http://localhost:3001", Addr: ":3001", TimeoutMS: 30000},
		Search: SearchConfig{Provider: "duckduckgo"},
		Fetch:  FetchConfig{TimeoutMS: 15000, UserAgent: "Mozilla/5.0 (compatible; scout/1.0)"},
		Notes:  NotesConfig{Driver: "sqlite", Path: "./data/notes.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "scout.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SCOUT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SCOUT_OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("SCOUT_OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("SCOUT_AGENT_MODE"); v != "" {
		cfg.Agent.Mode = v
	}
	if v := os.Getenv("SCOUT_MCP_SERVER_URL"); v != "" {
		cfg.MCP.ServerURL = v
	}
	if v := os.Getenv("SCOUT_MCP_ADDR"); v != "" {
		cfg.MCP.Addr = v
	}
	if v := os.Getenv("SCOUT_SEARCH_PROVIDER"); v != "" {
		cfg.Search.Provider = v
	}
	if v := os.Getenv("SCOUT_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("SCOUT_NOTES_DRIVER"); v != "" {
		cfg.Notes.Driver = v
	}
	if v := os.Getenv("SCOUT_NOTES_PATH"); v != "" {
		cfg.Notes.Path = v
	}
	if v := os.Getenv("SCOUT_POSTGRES_URL"); v != "" {
		cfg.Notes.PostgresURL = v
	}
	if v := os.Getenv("SCOUT_OTLP_ENDPOINT"); v != "" {
		cfg.Observer.Endpoint = v
	}
	if v := os.Getenv("SCOUT_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}
	if v := os.Getenv("SCOUT_AGENT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxIterations = n
		}
	}

	return cfg
}
