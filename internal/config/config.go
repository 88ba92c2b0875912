// Package config loads Amphora configuration from the environment, with an
// optional YAML file overlay and .env support.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names an LLM or embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderVoyage    Provider = "voyage"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection (used when the database-backed store is selected)
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Backend selection: "surrealdb" or "memory"
	StoreBackend string `yaml:"store_backend"`

	// Embedding
	EmbedProvider Provider `yaml:"embed_provider"`
	EmbedModel    string   `yaml:"embed_model"`
	OllamaHost    string   `yaml:"ollama_host"`
	VoyageAPIKey  string   `yaml:"voyage_api_key"`

	// LLM
	LLMProvider     Provider `yaml:"llm_provider"`
	LLMModel        string   `yaml:"llm_model"`
	OpenAIAPIKey    string   `yaml:"openai_api_key"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`

	// Retrieval
	TopK           int     `yaml:"top_k"`
	PromptTemplate string  `yaml:"prompt_template"`
	SoftThreshold  float64 `yaml:"soft_match_threshold"`

	// File library
	LibraryDir string `yaml:"library_dir"`

	// Task persistence
	TasksFile string `yaml:"tasks_file"`

	// Maintenance
	PoolMaxIdleAge  time.Duration `yaml:"pool_max_idle_age"`
	MaintenanceSpec string        `yaml:"maintenance_spec"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists.
func Load() Config {
	// Missing .env is the normal case; real errors surface on first use.
	_ = godotenv.Load()

	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "amphora"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "library"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		StoreBackend: getEnv("AMPHORA_STORE", "surrealdb"),

		EmbedProvider: Provider(getEnv("AMPHORA_EMBED_PROVIDER", "ollama")),
		EmbedModel:    getEnv("AMPHORA_EMBED_MODEL", "all-minilm:l6-v2"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		VoyageAPIKey:  getEnv("VOYAGE_API_KEY", ""),

		LLMProvider:     Provider(getEnv("AMPHORA_LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("AMPHORA_LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		TopK:           getEnvInt("AMPHORA_TOP_K", 5),
		PromptTemplate: getEnv("AMPHORA_PROMPT_TEMPLATE", "balanced"),
		SoftThreshold:  getEnvFloat("AMPHORA_SOFT_THRESHOLD", 0.5),

		LibraryDir: getEnv("AMPHORA_LIBRARY_DIR", defaultHomePath("library")),
		TasksFile:  getEnv("AMPHORA_TASKS_FILE", defaultHomePath("tasks.json")),

		PoolMaxIdleAge:  getEnvDuration("AMPHORA_POOL_MAX_IDLE_AGE", 0),
		MaintenanceSpec: getEnv("AMPHORA_MAINTENANCE_SPEC", "@every 10m"),

		LogFile:  getEnv("AMPHORA_LOG_FILE", "/tmp/amphora.log"),
		LogLevel: parseLogLevel(getEnv("AMPHORA_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML config file onto cfg. Only keys
// present in the file are touched.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func defaultHomePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return home + "/.amphora/" + name
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
