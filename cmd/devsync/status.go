package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database row counts for the workspace",
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

		status, err := svc.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Database:    %s\n", cfg.DatabasePath)
		fmt.Printf("Sync root:   %s\n", cfg.SyncRoot)
		fmt.Printf("Templates:   %d\n", status.Templates)
		fmt.Printf("Stylesheets: %d\n", status.Stylesheets)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
