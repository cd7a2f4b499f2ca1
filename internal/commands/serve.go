package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telemart-systems/telemart/internal/observability"
	"github.com/telemart-systems/telemart/internal/server"
	"github.com/telemart-systems/telemart/pkg/types"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the telemart HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx := context.Background()

	cfg, reg, err := loadProject(ctx)
	if err != nil {
		return err
	}

	logger := newLogger(false)

	var shutdownOtel observability.ShutdownFunc
	if cfg.Observability != nil {
		shutdownOtel, err = observability.Init(ctx, *cfg.Observability)
		if err != nil {
			return fmt.Errorf("initializing observability: %w", err)
		}
	}

	eng, db, st, cleanup, err := buildEngine(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	serverCfg := types.ServerConfig{Addr: ":3000"}
	if cfg.Server != nil {
		serverCfg = *cfg.Server
		if serverCfg.Addr == "" {
			serverCfg.Addr = ":3000"
		}
	}
	srv := server.New(serverCfg, eng, reg, db, st, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if shutdownOtel != nil {
			_ = shutdownOtel(shutdownCtx)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}
