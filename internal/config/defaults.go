package config

import "time"

// Defaults for settings where zero is a meaningful value. They are applied before the
// config file is decoded, so only a missing key takes the default.
const (
	DefaultTemperature         = 0.7
	DefaultChunkOverlap        = 200
	DefaultSimilarityThreshold = 0.7
)

// newConfig returns a config holding the defaults that ApplyDefaults cannot infer from zero values.
func newConfig() Config {
	var cfg Config
	cfg.Agent.Temperature = DefaultTemperature
	cfg.Chunking.ChunkOverlap = DefaultChunkOverlap
	cfg.Retrieval.SimilarityThreshold = DefaultSimilarityThreshold
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg. Temperature, chunk overlap
// and similarity threshold accept zero and are defaulted by Load and Default instead.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = "/api/v1"
	}
	if cfg.Server.ProjectName == "" {
		cfg.Server.ProjectName = "RAG API with AutoGen"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.OpenAI.MaxRetries == 0 {
		cfg.OpenAI.MaxRetries = 2
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Agent.CompletionModel == "" {
		cfg.Agent.CompletionModel = "gpt-4-turbo-preview"
	}
	if cfg.Agent.BatchSize == 0 {
		cfg.Agent.BatchSize = 3
	}
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 60 * time.Second
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 5
	}
	if cfg.Retrieval.MaxLimit == 0 {
		cfg.Retrieval.MaxLimit = 20
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "document_chunks"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "/usr/local/var/kotae/data/chunks.db"
	}
	if cfg.Store.Timeout == 0 {
		cfg.Store.Timeout = 15 * time.Second
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 60 * time.Second
	}
	if cfg.Fetch.MaxBytes == 0 {
		cfg.Fetch.MaxBytes = 50 << 20
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".xlsx", ".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
