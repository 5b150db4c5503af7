package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "framescriptd",
		Short: "framescriptd",
		Long:  "Real-time video frame cache and decode scheduler",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newClearCmd())

	return root
}

func execute() {
	root := newRootCmd()
	root.SetContext(context.Background())
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
