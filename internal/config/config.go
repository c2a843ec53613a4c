package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = "anthropic/claude-3.5-sonnet"

// Config holds runtime configuration. Secrets (API key) are read from the
// environment at runtime; never committed.
type Config struct {
	// OpenRouterAPIKey is set from env OPENROUTER_API_KEY.
	OpenRouterAPIKey string `json:"open_router_api_key"`
	// Model is the chat model id (e.g. anthropic/claude-3.5-sonnet).
	Model string `json:"model"`
	// ConfigDir is where the checkpoint DB lives (e.g. ~/.config/edp-assistant).
	ConfigDir string `json:"-"`
	// DBPath is the path to the checkpoint database.
	DBPath string `json:"-"`
	// MaxSteps is the per-conversation model/tool round-trip budget.
	MaxSteps int `json:"max_steps"`
	// MaxInflightInference caps simultaneous outbound inference requests
	// system-wide (provider rate limits).
	MaxInflightInference int `json:"max_inflight_inference"`
	// ToolOutputMaxRunes caps tool output length (0 = no truncation).
	ToolOutputMaxRunes int `json:"tool_output_max_runes"`
	// ModelTimeout bounds a single model invocation.
	ModelTimeout time.Duration `json:"-"`
	// ToolTimeout bounds a single tool invocation.
	ToolTimeout time.Duration `json:"-"`
}

// DefaultConfigDir returns the default config directory (project-local
// .edp-assistant if present, else ~/.config/edp-assistant).
func DefaultConfigDir() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".edp-assistant")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "edp-assistant")
}

// New builds config from env and optional config dir. ConfigDir can be empty
// to use the default.
func New(configDir string) *Config {
	if configDir == "" {
		if d := os.Getenv("EDP_ASSISTANT_CONFIG_DIR"); d != "" {
			configDir = d
		} else {
			configDir = DefaultConfigDir()
		}
	}
	dbPath := os.Getenv("EDP_ASSISTANT_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(configDir, "edp-assistant.db")
	}
	model := os.Getenv("EDP_ASSISTANT_MODEL")
	if model == "" {
		model = DefaultModel
	}
	return &Config{
		OpenRouterAPIKey:     os.Getenv("OPENROUTER_API_KEY"),
		Model:                model,
		ConfigDir:            configDir,
		DBPath:               dbPath,
		MaxSteps:             envInt("EDP_ASSISTANT_MAX_STEPS", 10),
		MaxInflightInference: envInt("EDP_ASSISTANT_MAX_INFLIGHT", 5),
		ToolOutputMaxRunes:   envInt("EDP_ASSISTANT_TOOL_OUTPUT_MAX_RUNES", 0),
		ModelTimeout:         envDuration("EDP_ASSISTANT_MODEL_TIMEOUT", 60*time.Second),
		ToolTimeout:          envDuration("EDP_ASSISTANT_TOOL_TIMEOUT", 10*time.Second),
	}
}

// Validate reports configuration errors that must abort startup. This is the
// only place a missing credential is allowed to stop the process; everything
// downstream converts failures to user-visible turns.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("config: OPENROUTER_API_KEY not set")
	}
	if c.Model == "" {
		return fmt.Errorf("config: model not set")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("config: max steps must be >= 1, got %d", c.MaxSteps)
	}
	if c.MaxInflightInference < 1 {
		return fmt.Errorf("config: max inflight inference must be >= 1, got %d", c.MaxInflightInference)
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
