// Package server wires the sync engine into an MCP server instance.
//
// This is the composition root: it creates the tool handlers over a running
// sync service and registers them. No sync logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mybbtools/devsync/internal/syncsvc"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all sync tools registered.
func New(svc *syncsvc.Service) (*server.MCPServer, error) {
	if svc == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}

	s := server.NewMCPServer(
		"devsync",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	pauseTool := NewPauseTool(svc)
	s.AddTool(pauseTool.Definition(), pauseTool.Handle)

	resumeTool := NewResumeTool(svc)
	s.AddTool(resumeTool.Definition(), resumeTool.Handle)

	statusTool := NewStatusTool(svc)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	exportTool := NewExportTool(svc)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	importTool := NewImportTool(svc)
	s.AddTool(importTool.Definition(), importTool.Handle)

	return s, nil
}

// serverInstructions tells an MCP client what the sync tools are for and when
// to use them.
func serverInstructions() string {
	return `You have access to devsync, a MyBB theme and template synchronization server.

devsync mirrors a MyBB development database to the filesystem: templates as
.html files, theme stylesheets as .css files, and plugin templates under the
plugin's source tree. A file watcher imports edits back into the database as
you save.

## Tools

- sync_pause / sync_resume: suspend and restore the file watcher. Pause
  before bulk filesystem operations (checkouts, generated writes) so the
  watcher does not import intermediate states. Always resume afterward.
- sync_status: watcher state, pending change count, and database row counts.
- sync_export: write database content to disk. Scope to one template set or
  theme, or export everything. Exports pause the watcher automatically.
- sync_import: import files from disk into the database. Scope to one
  template set, or import the whole workspace.

## Rules

- Edit template and stylesheet files on disk; the watcher persists them.
  There is no need to call sync_import after ordinary file edits while the
  watcher runs.
- Zero-byte and blank files are never imported. Do not blank a file to
  delete a template — deletion is out of scope for the sync engine.
- Plugin template files import as {codename}_{filename} rows. A plugin
  theme directory that does not match an existing template set falls back
  to the master set with a warning.`
}
