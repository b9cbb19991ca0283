package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	LLM     LLMConfig
	Storage StorageConfig
	Chat    ChatConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port       int
	AgentToken string
}

type CatalogConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type ChatConfig struct {
	HistoryWindow   int
	BudgetTolerance float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://my-products-api-dusky.vercel.app",
			TimeoutSeconds: 10,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Chat: ChatConfig{
			HistoryWindow:   10,
			BudgetTolerance: 0.10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "overbot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "overbot")
}

// Load reads configuration from defaults, an optional .env file in the
// working directory, and OVERBOT_* environment variables (highest
// precedence). Secrets (LLM API key, agent token) are env-only.
func Load() (Config, error) {
	// Missing .env is fine; env vars alone are a complete configuration.
	_ = godotenv.Load()

	cfg := defaults()
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: LLM API key. Set it via environment variable OVERBOT_LLM_API_KEY")
	}
	if cfg.Server.AgentToken == "" {
		return Config{}, fmt.Errorf("missing required config: agent bearer token. Set it via environment variable OVERBOT_AGENT_TOKEN")
	}

	return cfg, nil
}
