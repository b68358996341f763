package main

import (
	"fmt"
	"os"

	"github.com/mybbtools/devsync/internal/config"
	"github.com/mybbtools/devsync/internal/logging"
	"github.com/mybbtools/devsync/internal/store"
	"github.com/mybbtools/devsync/internal/syncsvc"
	"github.com/mybbtools/devsync/internal/watcher"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "devsync",
	Short: "MyBB development database synchronization",
	Long: `devsync mirrors a MyBB development database to the filesystem.

Templates live as .html files under template_sets/, theme stylesheets as
.css files under styles/, and plugin templates inside each plugin's source
tree. A file watcher imports edits back into the database as you save, and
exports write database content back to disk.

Configuration is read from devsync.yaml in the workspace root (found by
walking upward from the current directory) and from DEVSYNC_* environment
variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "C", "", "Workspace root (default: walk up from cwd to find devsync.yaml)")
}

// loadWorkspace resolves the workspace root and reads its configuration.
func loadWorkspace(cmd *cobra.Command) (*config.Config, error) {
	root, _ := cmd.Flags().GetString("dir")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root, err = config.FindRoot(cwd)
		if err != nil {
			return nil, err
		}
	}
	return config.Load(root)
}

// buildService opens the store and wires a sync service from config. The
// caller owns the returned DB and must Close it.
func buildService(cfg *config.Config, notifier syncsvc.Notifier) (*syncsvc.Service, *store.DB, error) {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logWriter := logging.NewWriter(logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	svc, err := syncsvc.New(db, &syncsvc.Config{
		SyncRoot:      cfg.SyncRoot,
		WorkspaceRoot: cfg.WorkspaceRoot,
		CacheTTL:      cfg.CacheTTL,
		Notifier:      notifier,
		Logger:        logging.New("sync", logWriter),
		Watcher: &watcher.Config{
			DebounceWindow: cfg.DebounceWindow,
			BatchWindow:    cfg.BatchWindow,
			Logger:         logging.New("watcher", logWriter),
		},
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}
