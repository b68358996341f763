package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mybbtools/devsync/internal/dashboard"
	"github.com/mybbtools/devsync/internal/logging"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the standalone WebSocket dashboard server",
	Long: `Start a WebSocket dashboard server for monitoring sync activity.

The dashboard broadcasts sync events to connected clients:
- item_imported: A file was imported into the database
- batch_flushed: A debounced change batch completed
- export_complete: A database-to-disk export finished
- watcher_state: The watcher paused or resumed
- stats: Cumulative sync statistics

This command serves the dashboard without a watcher, for inspecting a
remote devsync process. To broadcast live events, run the watcher with
the dashboard attached instead:

  devsync watch --dashboard

Connect with a WebSocket client:
  ws://localhost:8090/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			if cfg, err := loadWorkspace(cmd); err == nil {
				port = cfg.DashboardPort
			}
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logging.New("dashboard", os.Stderr),
		})
		if err := server.Start(); err != nil {
			return err
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		return server.Stop()
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8090, "Port to listen on")
	rootCmd.AddCommand(dashboardCmd)
}
