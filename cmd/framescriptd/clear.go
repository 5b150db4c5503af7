package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frame-script/framescript/internal/config"
	"github.com/frame-script/framescript/internal/frameserver"
	"github.com/frame-script/framescript/internal/logging"
)

func newClearCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all decoder instances, or only those for one session",
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

			ctx, cancel := context.WithTimeout(cmd.Context(), shutdownTimeout)
			defer cancel()

			if sessionID != "" {
				srv.Registry.ClearSession(ctx, sessionID)
			} else {
				srv.Registry.ClearAll(ctx)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "only clear decoder instances for this session ID")
	return cmd
}
