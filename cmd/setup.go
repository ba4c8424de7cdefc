package cmd

import (
	"context"
	"database/sql"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/executor"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/query"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/translate"
)

// loadConfig resolves configuration from defaults, file, environment and the
// global flags, then initialises the logger
func loadConfig(cmd *cli.Command, extra map[string]any) (*config.Config, error) {
	root := cmd.Root()
	overrides := map[string]any{}

	if root.IsSet("db") {
		overrides["db-path"] = root.String("db")
	}

	if root.IsSet("log-level") {
		overrides["log-level"] = root.String("log-level")
	}

	if root.IsSet("max-rows") {
		overrides["max-rows"] = int(root.Int("max-rows"))
	}

	if root.Bool("verbose") {
		overrides["verbose"] = true
	}

	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration").
			WithSuggestion("Run 'askdb config' to inspect the active settings")
	}

	cfg.ExpandAllPaths()

	if cfg.Debug.Verbose && !root.IsSet("log-level") {
		cfg.Logging.Level = "debug"
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to initialize logger")
	}

	return cfg, nil
}

// app holds the resources a command needs; close releases all of them
type app struct {
	cfg     *config.Config
	dataset *sql.DB
	history storage.Repository
	cache   *cache.FileCache
	engine  *query.Engine
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	dataset, err := executor.OpenDataset(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dataset: dataset}

	opts := []query.Option{
		query.WithMaxRows(cfg.Database.MaxRows),
		query.WithQueryTimeout(cfg.Database.QueryTimeoutDuration()),
	}

	if cfg.History.Enabled {
		repo, err := openHistory(ctx, cfg.History)
		if err != nil {
			logging.WithError(err).Warn("History disabled for this run")
		} else {
			a.history = repo
			opts = append(opts, query.WithHistory(repo))
		}
	}

	gateway, err := a.gateway()
	if err != nil {
		a.close()
		return nil, err
	}

	a.engine = query.NewEngine(dataset, translate.New(gateway), opts...)

	return a, nil
}

// gateway returns nil when no provider should be consulted
// providerReady reports whether some provider in the chain can be called,
// either holding a key or needing none
func providerReady(cfg config.LLMConfig) bool {
	if !cfg.Enabled {
		return false
	}

	if cfg.APIKey != "" || !llm.RequiresAPIKey(cfg.Provider) {
		return true
	}

	for _, name := range cfg.FallbackProviders {
		if !llm.RequiresAPIKey(name) || config.ProviderAPIKey(name) != "" {
			return true
		}
	}

	return false
}

func (a *app) gateway() (llm.Gateway, error) {
	if !a.cfg.LLM.Enabled {
		return nil, nil
	}

	manager, err := llm.NewManagerFromConfig(a.cfg.LLM)
	if err != nil {
		return nil, err
	}

	if a.cfg.Cache.Enabled {
		c, err := openCache(a.cfg.Cache)
		if err != nil {
			logging.WithError(err).Warn("Provider cache disabled for this run")
		} else {
			a.cache = c
			manager.WithCache(c)
		}
	}

	return manager, nil
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			logging.WithError(err).Warn("Failed to close history")
		}
	}

	if a.dataset != nil {
		_ = a.dataset.Close()
	}
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (*storage.DuckDBRepository, error) {
	repo, err := storage.NewDuckDBRepositoryFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}

	return repo, nil
}

func openCache(cfg config.CacheConfig) (*cache.FileCache, error) {
	c, err := cache.NewFileCache(cfg.Directory, cfg.MaxSizeMB, cfg.TTL())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open cache")
	}

	return c, nil
}

func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}
