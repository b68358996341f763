package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mybbtools/devsync/internal/exporter"
	"github.com/mybbtools/devsync/internal/syncsvc"
)

// PauseTool handles the sync_pause MCP tool.
type PauseTool struct {
	svc *syncsvc.Service
}

// NewPauseTool creates a PauseTool over the sync service.
func NewPauseTool(svc *syncsvc.Service) *PauseTool {
	return &PauseTool{svc: svc}
}

// Definition returns the MCP tool definition for sync_pause.
func (t *PauseTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_pause",
		mcp.WithDescription(
			"Pause the file watcher. Use before bulk filesystem operations so "+
				"intermediate file states are not imported. Idempotent.",
		),
	)
}

// Handle processes the sync_pause tool call.
func (t *PauseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.svc.PauseWatcher()
	return mcp.NewToolResultText("Watcher paused. Call sync_resume when bulk operations finish."), nil
}

// ResumeTool handles the sync_resume MCP tool.
type ResumeTool struct {
	svc *syncsvc.Service
}

// NewResumeTool creates a ResumeTool over the sync service.
func NewResumeTool(svc *syncsvc.Service) *ResumeTool {
	return &ResumeTool{svc: svc}
}

// Definition returns the MCP tool definition for sync_resume.
func (t *ResumeTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_resume",
		mcp.WithDescription(
			"Resume a paused file watcher. Idempotent — resuming a running watcher is a no-op.",
		),
	)
}

// Handle processes the sync_resume tool call.
func (t *ResumeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.svc.ResumeWatcher()
	return mcp.NewToolResultText("Watcher resumed."), nil
}

// StatusTool handles the sync_status MCP tool.
type StatusTool struct {
	svc *syncsvc.Service
}

// NewStatusTool creates a StatusTool over the sync service.
func NewStatusTool(svc *syncsvc.Service) *StatusTool {
	return &StatusTool{svc: svc}
}

// Definition returns the MCP tool definition for sync_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_status",
		mcp.WithDescription(
			"Show sync engine status — watcher state, pending change count, and database row counts.",
		),
	)
}

// Handle processes the sync_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := t.svc.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get status: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Sync Status\n\n")
	sb.WriteString(fmt.Sprintf("- **Watcher running**: %t\n", status.Running))
	sb.WriteString(fmt.Sprintf("- **Watcher paused**: %t\n", status.Paused))
	sb.WriteString(fmt.Sprintf("- **Pending changes**: %d\n", status.Pending))
	sb.WriteString(fmt.Sprintf("- **Templates**: %d\n", status.Templates))
	sb.WriteString(fmt.Sprintf("- **Stylesheets**: %d\n", status.Stylesheets))

	return mcp.NewToolResultText(sb.String()), nil
}

// ExportTool handles the sync_export MCP tool.
type ExportTool struct {
	svc *syncsvc.Service
}

// NewExportTool creates an ExportTool over the sync service.
func NewExportTool(svc *syncsvc.Service) *ExportTool {
	return &ExportTool{svc: svc}
}

// Definition returns the MCP tool definition for sync_export.
func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_export",
		mcp.WithDescription(
			"Export database content to disk. Scope to one template set or theme "+
				"by name, or omit both to export everything. The watcher is paused "+
				"for the duration, so exports never re-import their own writes.",
		),
		mcp.WithString("set",
			mcp.Description("Template set name to export (e.g. \"Default Templates\")"),
		),
		mcp.WithString("theme",
			mcp.Description("Theme name whose stylesheets to export"),
		),
	)
}

// Handle processes the sync_export tool call.
func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	setName := req.GetString("set", "")
	themeName := req.GetString("theme", "")

	if setName != "" && themeName != "" {
		return mcp.NewToolResultError("specify set or theme, not both"), nil
	}

	var (
		scope  string
		report exporter.Report
		err    error
	)
	switch {
	case setName != "":
		scope = fmt.Sprintf("template set %q", setName)
		report, err = t.svc.ExportSet(ctx, setName)
	case themeName != "":
		scope = fmt.Sprintf("theme %q", themeName)
		report, err = t.svc.ExportTheme(ctx, themeName)
	default:
		scope = "all sets and themes"
		report, err = t.svc.ExportAll(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}

	text := fmt.Sprintf("Exported %s: %d files written, %d failed.", scope, report.Written, report.Failed)
	return mcp.NewToolResultText(text), nil
}

// ImportTool handles the sync_import MCP tool.
type ImportTool struct {
	svc *syncsvc.Service
}

// NewImportTool creates an ImportTool over the sync service.
func NewImportTool(svc *syncsvc.Service) *ImportTool {
	return &ImportTool{svc: svc}
}

// Definition returns the MCP tool definition for sync_import.
func (t *ImportTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_import",
		mcp.WithDescription(
			"Import files from disk into the database. Scope to one template set "+
				"by name, or omit to import the whole workspace (template sets, "+
				"styles, and plugin templates).",
		),
		mcp.WithString("set",
			mcp.Description("Template set name to import (e.g. \"Default Templates\")"),
		),
	)
}

// Handle processes the sync_import tool call.
func (t *ImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	setName := req.GetString("set", "")

	var (
		report syncsvc.Report
		err    error
	)
	if setName != "" {
		report, err = t.svc.ImportSet(ctx, setName)
	} else {
		report, err = t.svc.ImportAll(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Imported %d items (%d skipped, %d failed).\n",
		report.Imported, report.Skipped, report.Failed))
	if len(report.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range report.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
