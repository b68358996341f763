package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mybbtools/devsync/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Start an MCP server exposing sync tools to AI coding assistants over
stdio.

The watcher runs alongside the server, so file edits import continuously
while the assistant can pause it around bulk operations, trigger exports
and imports, and query status.

Tools: sync_pause, sync_resume, sync_status, sync_export, sync_import.

All diagnostics go to stderr (or the configured log file); stdout carries
only the MCP transport.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkspace(cmd)
		if err != nil {
			return err
		}

		svc, db, err := buildService(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		// The watcher is best-effort here: a workspace with no synced
		// directories yet can still use the import/export tools.
		if err := svc.StartWatching(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: watcher not started: %v\n", err)
		} else {
			defer func() { _ = svc.StopWatching() }()
		}

		s, err := server.New(svc)
		if err != nil {
			return err
		}

		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
