// Package commands implements the CLI subcommands for the telemart binary.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/internal/adapter/duckdb"
	pgadapter "github.com/telemart-systems/telemart/internal/adapter/postgres"
	"github.com/telemart-systems/telemart/internal/alert"
	"github.com/telemart-systems/telemart/internal/config"
	"github.com/telemart-systems/telemart/internal/engine"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/internal/store"
	pgstore "github.com/telemart-systems/telemart/internal/store/postgres"
	"github.com/telemart-systems/telemart/pkg/types"
)

const connectTimeout = 30 * time.Second

func newLogger(quiet bool) *slog.Logger {
	var w io.Writer = os.Stderr
	if quiet {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// loadProject loads telemart.yaml from the working directory, resolves any
// secret references, and loads every configured model directory.
func loadProject(ctx context.Context) (*types.ProjectConfig, *model.Registry, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ResolveSecrets(ctx, cfg, nil); err != nil {
		return nil, nil, fmt.Errorf("resolving secrets: %w", err)
	}

	reg := model.NewRegistry(config.TargetSchema(cfg))
	for _, dir := range cfg.ModelDirs {
		if err := reg.LoadDir(dir); err != nil {
			return nil, nil, fmt.Errorf("loading models from %s: %w", dir, err)
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}

// openAdapter connects to the configured warehouse target.
func openAdapter(ctx context.Context, cfg *types.ProjectConfig) (adapter.Adapter, error) {
	switch cfg.Target {
	case "postgres":
		return pgadapter.New(ctx, pgadapter.DSN(cfg.Postgres))
	case "duckdb":
		return duckdb.New(ctx, cfg.DuckDB.Path)
	default:
		return nil, fmt.Errorf("unsupported target: %s", cfg.Target)
	}
}

// openStore connects to the run metadata store when one is configured.
// A missing store config means run history is not persisted.
func openStore(ctx context.Context, cfg *types.ProjectConfig) (store.Store, error) {
	if cfg.Store == nil || cfg.Store.DSN == "" {
		return nil, nil
	}
	st, err := pgstore.New(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to metadata store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrating metadata store: %w", err)
	}
	return st, nil
}

// buildEngine wires adapter, store, and alerting into a ready engine. The
// returned cleanup closes all connections.
func buildEngine(ctx context.Context, cfg *types.ProjectConfig, reg *model.Registry, logger *slog.Logger) (*engine.Engine, adapter.Adapter, store.Store, func(), error) {
	db, err := openAdapter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connecting to %s: %w", cfg.Target, err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}

	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		db.Close()
		if st != nil {
			st.Close()
		}
		return nil, nil, nil, nil, fmt.Errorf("creating alert dispatcher: %w", err)
	}

	opts := []engine.Option{
		engine.WithAlertFunc(dispatcher.AlertFunc()),
		engine.WithTimeout(config.BuildTimeout(cfg)),
	}
	if st != nil {
		opts = append(opts, engine.WithStore(st))
	}
	if cfg.Build != nil && cfg.Build.Concurrency > 0 {
		opts = append(opts, engine.WithConcurrency(cfg.Build.Concurrency))
	}

	eng := engine.New(reg, db, logger, opts...)
	cleanup := func() {
		db.Close()
		if st != nil {
			st.Close()
		}
	}
	return eng, db, st, cleanup, nil
}

func statusColor(status types.RunStatus) string {
	s := string(status)
	switch status {
	case types.RunSuccess:
		return color.GreenString(s)
	case types.RunFailed:
		return color.RedString(s)
	case types.RunSkipped:
		return color.YellowString(s)
	case types.RunRunning:
		return color.CyanString(s)
	}
	return s
}
