package main

import (
	"fmt"

	"github.com/mybbtools/devsync/internal/exporter"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export database content to disk",
	Long: `Write database content to the workspace as editable files.

Templates are written to template_sets/{set}/{group}/{title}.html, where the
group is the title's prefix before the first underscore. Theme stylesheets
are written to styles/{theme}/{name}.css. All writes are atomic: content
lands in a temp file first and is renamed into place, so a crash never
leaves a truncated file.

Example usage:
  devsync export                          # Export every set and theme
  devsync export --set "Default Templates"
  devsync export --theme Default`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setName, _ := cmd.Flags().GetString("set")
		themeName, _ := cmd.Flags().GetString("theme")
		if setName != "" && themeName != "" {
			return fmt.Errorf("specify --set or --theme, not both")
		}

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
		var report exporter.Report
		switch {
		case setName != "":
			report, err = svc.ExportSet(ctx, setName)
		case themeName != "":
			report, err = svc.ExportTheme(ctx, themeName)
		default:
			report, err = svc.ExportAll(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d files (%d failed)\n", report.Written, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d files failed to write", report.Failed)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("set", "", "Template set name to export")
	exportCmd.Flags().String("theme", "", "Theme name whose stylesheets to export")
	rootCmd.AddCommand(exportCmd)
}
