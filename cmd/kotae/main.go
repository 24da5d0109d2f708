// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	urfave "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:    "kotae",
		Usage:   "Answer questions from your documents with retrieval-augmented generation",
		Version: version,
		Flags: []urfave.Flag{
			&urfave.StringFlag{Name: "config", Usage: "config file path", Value: defaultConfigPath},
			&urfave.StringFlag{Name: "env", Usage: "env file path", Value: ".env"},
			&urfave.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Commands: []*urfave.Command{
			{
				Name:   "server",
				Usage:  "Start the HTTP API (and the inbox watcher when directories are configured)",
				Action: runServer,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a document URL, file, or directory",
				ArgsUsage: "<url|path>",
				Flags: []urfave.Flag{
					&urfave.BoolFlag{Name: "dir", Usage: "treat the argument as a directory and ingest every allowed file"},
					&urfave.StringFlag{Name: "output", Usage: "output format: text or json", Value: "text"},
				},
				Action: runIngest,
			},
			{
				Name:      "query",
				Usage:     "Ask a question against the ingested documents",
				ArgsUsage: "<question>",
				Flags: []urfave.Flag{
					&urfave.IntFlag{Name: "limit", Usage: "maximum chunks to retrieve", Value: models.DefaultQueryLimit},
					&urfave.StringFlag{Name: "output", Usage: "output format: text or json", Value: "text"},
					&urfave.StringFlag{Name: "server", Usage: "server URL; empty runs the pipeline locally"},
				},
				Action: runQuery,
			},
			{
				Name:  "watch",
				Usage: "Watch the configured inbox directories in the foreground",
				Flags: []urfave.Flag{
					&urfave.BoolFlag{Name: "sync", Usage: "ingest files already present before watching", Value: true},
				},
				Action: runWatch,
			},
			{
				Name:  "status",
				Usage: "Show store and model status",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "output", Usage: "output format: text or json", Value: "text"},
					&urfave.StringFlag{Name: "server", Usage: "server URL; empty reads the store directly"},
				},
				Action: runStatus,
			},
			{
				Name:  "version",
				Usage: "Show version",
				Action: func(_ context.Context, cmd *urfave.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "kotae version %s\n", version)
					return nil
				},
			},
		},
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(cmd *urfave.Command) (*config.Config, string, *zap.Logger, bool, error) {
	cfg, resolved, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return nil, "", nil, false, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || cmd.Bool("debug")
	logger, err := utils.NewLogger(debug, utils.WithLogDir(cfg.Log.Dir))
	if err != nil {
		return nil, "", nil, false, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, resolved, logger, debug, nil
}

func runServer(ctx context.Context, cmd *urfave.Command) error {
	cfg, resolved, logger, debug, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(ctx, cfg, logger, debug)
	if err != nil {
		return err
	}
	defer components.Close()

	var watchSvc server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(&cfg.Watch, components.Indexer, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		go w.Sync(ctx)
		watchSvc = w
	}

	server.Version = version
	srv := server.NewServer(components.Engine, components.Indexer, components.Store, cfg, logger, watchSvc, resolved)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runIngest(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("usage: kotae ingest [--dir] <url|path>")
	}
	format, err := cli.ParseOutputFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	source := cmd.Args().First()

	cfg, _, logger, debug, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(ctx, cfg, logger, debug)
	if err != nil {
		return err
	}
	defer components.Close()

	if cmd.Bool("dir") {
		n, err := components.Indexer.IngestDirectory(ctx, source, cfg.Watch.Extensions)
		if err != nil {
			return fmt.Errorf("ingest failed after %d files: %w", n, err)
		}
		return cli.WriteIngestResult(cmd.Root().Writer, source, n, cli.UnitFiles, format)
	}

	var n int
	if isRemote(source) {
		n, err = components.Indexer.Ingest(ctx, source)
	} else {
		n, err = components.Indexer.IngestFile(ctx, source)
	}
	if err != nil {
		return fmt.Errorf("ingest failed after %d chunks: %w", n, err)
	}
	return cli.WriteIngestResult(cmd.Root().Writer, source, n, cli.UnitChunks, format)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery(ctx context.Context, cmd *urfave.Command) error {
	question := buildQuery(cmd.Args().Slice())
	format, err := cli.ParseOutputFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	limit := cmd.Int("limit")
	req := &models.QueryRequest{Query: question, Limit: &limit}
	if err := req.Validate(); err != nil {
		return err
	}

	if serverURL := cmd.String("server"); serverURL != "" {
		cfg, _, err := loadConfig(cmd.String("config"), cmd.String("env"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		result, err := queryViaHTTP(ctx, apiURL(serverURL, cfg.Server.APIPrefix, "/documents/query"), req)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		return cli.WriteQueryResult(cmd.Root().Writer, result, format)
	}

	cfg, _, logger, debug, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger, debug)
	if err != nil {
		return err
	}
	defer components.Close()

	result, err := components.Engine.Query(ctx, req.Query, req.EffectiveLimit())
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return cli.WriteQueryResult(cmd.Root().Writer, result, format)
}

func runWatch(ctx context.Context, cmd *urfave.Command) error {
	cfg, _, logger, debug, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if len(cfg.Watch.Directories) == 0 {
		return fmt.Errorf("no watch directories configured")
	}

	components, err := initializeComponents(ctx, cfg, logger, debug)
	if err != nil {
		return err
	}
	defer components.Close()

	w := watcher.New(&cfg.Watch, components.Indexer, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	if cmd.Bool("sync") {
		n := w.Sync(ctx)
		logger.Info("initial sync complete", zap.Int("files", n))
	}
	<-ctx.Done()
	return nil
}

func runStatus(ctx context.Context, cmd *urfave.Command) error {
	format, err := cli.ParseOutputFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var status *cli.Status
	if serverURL := cmd.String("server"); serverURL != "" {
		status, err = statusViaHTTP(ctx, apiURL(serverURL, cfg.Server.APIPrefix, "/status"))
	} else {
		status, err = localStatus(ctx, cfg)
	}
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	return cli.WriteStatus(cmd.Root().Writer, status, format)
}

func localStatus(ctx context.Context, cfg *config.Config) (*cli.Status, error) {
	store, err := storage.Open(ctx, &cfg.Store, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	status := &cli.Status{
		Chunks:          count,
		Store:           cfg.Store.Backend,
		EmbeddingModel:  cfg.Embedding.Model,
		CompletionModel: cfg.Agent.CompletionModel,
		Config: map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"chunk_size":           cfg.Chunking.ChunkSize,
			"chunk_overlap":        cfg.Chunking.ChunkOverlap,
			"similarity_threshold": cfg.Retrieval.SimilarityThreshold,
			"batch_size":           cfg.Agent.BatchSize,
		},
	}
	if cfg.Store.Backend == storage.BackendSQLite {
		if diskBytes, err := storage.DiskUsageBytes(storage.SQLiteFiles(cfg.Store.SQLitePath)...); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}
	return status, nil
}

func apiURL(serverURL, prefix, path string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return strings.TrimRight(serverURL, "/") + prefix + path
}

func queryViaHTTP(ctx context.Context, endpoint string, req *models.QueryRequest) (*models.QueryResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var resp models.QueryResponse
	if err := doJSON(httpReq, &resp); err != nil {
		return nil, err
	}
	return resultFromResponse(req.Query, &resp), nil
}

// resultFromResponse rebuilds a QueryResult from the API shape. The analysis is shared
// by every chunk, so it is read from the first one.
func resultFromResponse(query string, resp *models.QueryResponse) *models.QueryResult {
	result := &models.QueryResult{Query: query, Matches: resp.Chunks, Outcome: models.OutcomeNoMatches}
	if len(resp.Chunks) > 0 {
		result.Outcome = models.OutcomeAnswered
		if a, ok := resp.Chunks[0].Metadata[models.MetaAnalysis].(string); ok {
			result.Analysis = a
		}
	}
	return result
}

func statusViaHTTP(ctx context.Context, endpoint string) (*cli.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var status cli.Status
	if err := doJSON(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func doJSON(req *http.Request, out interface{}) error {
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
