package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mybbtools/devsync/internal/dashboard"
	"github.com/mybbtools/devsync/internal/logging"
	"github.com/mybbtools/devsync/internal/syncsvc"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and import file changes into the database",
	Long: `Watch template, stylesheet, and plugin template files for changes and
import each save into the development database.

Changes are debounced per file and grouped into batches, so editor save
storms and rapid successive edits produce one write with the final content.
Zero-byte files and files removed before the batch flushes are skipped.

Example usage:
  devsync watch                  # Watch until interrupted
  devsync watch --dashboard      # Also serve the WebSocket dashboard

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkspace(cmd)
		if err != nil {
			return err
		}

		var notifier syncsvc.Notifier
		var dash *dashboard.Server
		if withDash, _ := cmd.Flags().GetBool("dashboard"); withDash {
			dash = dashboard.NewServer(&dashboard.Config{
				Port:   cfg.DashboardPort,
				Logger: logging.New("dashboard", os.Stderr),
			})
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() { _ = dash.Stop() }()
			notifier = dashboard.NewHandler(dash, logging.New("dashboard", os.Stderr))
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", cfg.DashboardPort)
		}

		svc, db, err := buildService(cfg, notifier)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := svc.StartWatching(); err != nil {
			return err
		}

		fmt.Printf("Watching %s\n", cfg.SyncRoot)
		fmt.Println("Press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nStopping watcher...")
		return svc.StopWatching()
	},
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "Serve the WebSocket dashboard alongside the watcher")
	rootCmd.AddCommand(watchCmd)
}
