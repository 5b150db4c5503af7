package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frame-script/framescript/internal/config"
	"github.com/frame-script/framescript/internal/frameserver"
	"github.com/frame-script/framescript/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the decoder registry and block until signalled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := logging.New(cfg.Logging.Level)

			srv, err := frameserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("starting frameserver: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info().Msg("framescriptd serving; no network transport is implemented")
			<-ctx.Done()

			logger.Info().Msg("shutting down, clearing all decoder instances")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
