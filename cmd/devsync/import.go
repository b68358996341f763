package main

import (
	"fmt"

	"github.com/mybbtools/devsync/internal/syncsvc"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import workspace files into the database",
	Long: `Import template, stylesheet, and plugin template files from disk into
the development database.

Files are classified by their path shape: template_sets/{set}/{group}/*.html,
styles/{theme}/*.css, and plugin templates under plugins/. Unrecognized
files are skipped silently. Blank files are never imported, and plugin
templates whose theme directory matches no template set fall back to the
master set with a warning.

Example usage:
  devsync import                          # Import the whole workspace
  devsync import --set "Default Templates"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setName, _ := cmd.Flags().GetString("set")

		cfg, err := loadWorkspace(cmd)
		if err != nil {
			return err
		}

		svc, db, err := buildService(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := cmd.Context()
		var report syncsvc.Report
		if setName != "" {
			report, err = svc.ImportSet(ctx, setName)
		} else {
			report, err = svc.ImportAll(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d items (%d skipped, %d failed)\n",
			report.Imported, report.Skipped, report.Failed)
		for _, w := range report.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d items failed to import", report.Failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("set", "", "Template set name to import")
	rootCmd.AddCommand(importCmd)
}
