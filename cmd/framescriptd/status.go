package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/frame-script/framescript/internal/config"
	"github.com/frame-script/framescript/internal/frameserver"
	"github.com/frame-script/framescript/internal/logging"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Render a table of decoder instances and cache usage",
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
			defer srv.Shutdown(cmd.Context()) //nolint:errcheck

			used, max := srv.Registry.CacheUsage()
			fmt.Printf("cache usage: %s / %s\n", humanize.Bytes(used), humanize.Bytes(max))

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Decoder Key", "Pending", "Ready", "Pinned", "Recent"})
			for _, inst := range srv.Registry.Snapshot() {
				pinned := "-"
				if inst.Stats.Pinned != nil {
					pinned = fmt.Sprintf("%d", *inst.Stats.Pinned)
				}
				table.Append([]string{
					inst.Key.String(),
					fmt.Sprintf("%d", inst.Stats.Pending),
					fmt.Sprintf("%d", inst.Stats.Ready),
					pinned,
					fmt.Sprintf("%d", inst.Stats.Recent),
				})
			}
			table.Render()
			return nil
		},
	}
}
