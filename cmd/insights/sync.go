package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/testdino/insights/internal/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.WithError(err).Warn("Failed to close components")
			}
		}()

		res, err := a.Worker.RunOnce(ctx)
		if err != nil {
			return err
		}

		return writeOutput(os.Stdout, formatJSON, res)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
