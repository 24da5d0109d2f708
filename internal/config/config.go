// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/models"
)

// Config holds all configuration for the application. It is built once at startup and
// passed by pointer to constructors; nothing mutates it while requests are served.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Agent     AgentConfig     `yaml:"agent"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Store     StoreConfig     `yaml:"store"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Watch     WatchConfig     `yaml:"watch"`
	Log       LogConfig       `yaml:"log"`
}

// LogConfig holds log output settings. When Dir is set, entries are also written to a daily file there.
type LogConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	APIPrefix      string        `yaml:"api_prefix"`
	ProjectName    string        `yaml:"project_name"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// OpenAIConfig holds credentials shared by the chat and embedding clients.
// APIKey is normally supplied through OPENAI_API_KEY rather than the YAML file.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // openai, onnx, mock
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	ModelPath  string        `yaml:"model_path"` // onnx only
	MaxTokens  int           `yaml:"max_tokens"` // onnx only
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AgentConfig holds settings for the researcher and analyst roles.
type AgentConfig struct {
	CompletionModel string        `yaml:"completion_model"`
	Temperature     float64       `yaml:"temperature"`
	BatchSize       int           `yaml:"batch_size"`
	Timeout         time.Duration `yaml:"timeout"`
}

// ChunkingConfig holds chunk size and overlap, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend      string        `yaml:"backend"` // postgres, sqlite, memory
	DatabaseURL  string        `yaml:"database_url"`
	Table        string        `yaml:"table"`
	SQLitePath   string        `yaml:"sqlite_path"`
	EnsureSchema bool          `yaml:"ensure_schema"`
	Timeout      time.Duration `yaml:"timeout"`
}

// FetchConfig bounds document downloads.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Store.SQLitePath = expandPath(cfg.Store.SQLitePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Log.Dir = expandPath(cfg.Log.Dir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with only defaults applied, for running without a config file.
func Default() *Config {
	cfg := newConfig()
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path. Secrets are not written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.OpenAI.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv loads envFile (if it exists) into the process environment and overlays the
// recognised variables onto cfg. A missing file is not an error.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Agent.CompletionModel = getEnv("COMPLETION_MODEL", cfg.Agent.CompletionModel)
	cfg.Store.DatabaseURL = getEnv("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Store.Table = getEnv("VECTOR_TABLE", cfg.Store.Table)
	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)

	var err error
	if cfg.Chunking.ChunkSize, err = getEnvAsInt("CHUNK_SIZE", cfg.Chunking.ChunkSize); err != nil {
		return err
	}
	if cfg.Chunking.ChunkOverlap, err = getEnvAsInt("CHUNK_OVERLAP", cfg.Chunking.ChunkOverlap); err != nil {
		return err
	}
	if cfg.Agent.Temperature, err = getEnvAsFloat("AGENT_TEMPERATURE", cfg.Agent.Temperature); err != nil {
		return err
	}
	return nil
}

// Validate reports settings the pipeline cannot run with. All failures wrap models.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 || c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_size must be positive and chunk_overlap non-negative", models.ErrConfiguration)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be less than chunk_size (%d)",
			models.ErrConfiguration, c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1]", models.ErrConfiguration)
	}
	if c.Agent.BatchSize < 1 {
		return fmt.Errorf("%w: agent batch_size must be at least 1", models.ErrConfiguration)
	}
	switch c.Store.Backend {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: store backend postgres requires database_url", models.ErrConfiguration)
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown store backend %q (supported: postgres, sqlite, memory)", models.ErrConfiguration, c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "onnx", "mock":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q (supported: openai, onnx, mock)", models.ErrConfiguration, c.Embedding.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer: %v", models.ErrConfiguration, key, err)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number: %v", models.ErrConfiguration, key, err)
	}
	return f, nil
}
