package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/agent"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default and does not exist, a
// config.yaml in the current directory is tried, then built-in defaults. The env file
// and environment variables are overlaid last. Returns the path actually loaded ("" for defaults).
func loadConfig(path, envFile string) (*config.Config, string, error) {
	resolved := path
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			resolved = ""
			if cwd, cwdErr := os.Getwd(); cwdErr == nil {
				fallback := filepath.Join(cwd, "config.yaml")
				if _, statErr := os.Stat(fallback); statErr == nil {
					resolved = fallback
				}
			}
		}
	}

	var cfg *config.Config
	if resolved == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(resolved); err != nil {
			return nil, "", err
		}
	}
	if err := config.LoadEnv(cfg, envFile); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

// Components holds the wired pipeline.
type Components struct {
	Store    vector.Store
	Embedder embedding.Embedder
	Indexer  *indexer.Indexer
	Engine   *search.Engine
}

// Close releases the store and embedder.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	embedder, err := embedding.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store, err := storage.Open(ctx, &cfg.Store, embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("backend", cfg.Store.Backend),
		zap.Int("dimensions", embedder.Dimensions()))

	var idxOpts []indexer.IndexerOption
	var loaderLogger *zap.Logger
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		loaderLogger = logger
	}
	fetcher := extract.NewFetcher(cfg.Fetch.Timeout, extract.WithMaxBytes(cfg.Fetch.MaxBytes))
	loader := extract.NewLoader(fetcher, extract.NewExtractor(), loaderLogger)
	idx, err := indexer.NewIndexer(loader, embedder, store, &cfg.Chunking, idxOpts...)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}

	stages := agent.NewFromConfig(cfg, agent.WithLogger(logger))
	engine := search.NewEngine(embedder, store, stages, &cfg.Retrieval, search.WithLogger(logger))

	return &Components{
		Store:    store,
		Embedder: embedder,
		Indexer:  idx,
		Engine:   engine,
	}, nil
}
