// Package exporter writes store content back to the workspace tree using
// atomic temp-file-plus-rename writes.
//
// Bulk exports coordinate with the watcher: the watcher is paused before the
// first write and resumed in a deferred block regardless of per-file
// failures, so an export crash can never leave the watcher consuming its own
// half-written output. Atomic renames and the watcher's temp-suffix filter
// layer on top of that - no single mechanism is load-bearing alone.
package exporter

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mybbtools/devsync/internal/pathroute"
	"github.com/mybbtools/devsync/internal/store"
)

// Pauser suspends and restores watcher event processing around bulk writes.
type Pauser interface {
	Pause()
	Resume()
}

// noopPauser is used when no watcher is attached (one-shot CLI exports).
type noopPauser struct{}

func (noopPauser) Pause()  {}
func (noopPauser) Resume() {}

// Report summarizes a bulk export.
type Report struct {
	Written int
	Failed  int
}

// Exporter reads templates and stylesheets from the store and materializes
// them as workspace files.
type Exporter struct {
	db       *store.DB
	syncRoot string
	pauser   Pauser
	logger   *log.Logger
}

// New creates an Exporter writing under syncRoot. A nil pauser disables
// watcher coordination; a nil logger falls back to stderr.
func New(db *store.DB, syncRoot string, pauser Pauser, logger *log.Logger) *Exporter {
	if pauser == nil {
		pauser = noopPauser{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[export] ", log.LstdFlags)
	}
	return &Exporter{
		db:       db,
		syncRoot: syncRoot,
		pauser:   pauser,
		logger:   logger,
	}
}

// ExportTemplateSet writes every template of the named set to
// {syncRoot}/template_sets/{setName}/{group}/{title}.html.
// Individual write failures are logged and counted; they do not abort the
// remaining files.
func (e *Exporter) ExportTemplateSet(ctx context.Context, setName string) (Report, error) {
	sid, found, err := e.db.LookupTemplateSet(ctx, setName)
	if err != nil {
		return Report{}, err
	}
	if !found {
		return Report{}, fmt.Errorf("template set %q not found", setName)
	}

	tpls, err := e.db.ListTemplatesBySet(ctx, sid)
	if err != nil {
		return Report{}, err
	}

	e.pauser.Pause()
	defer e.pauser.Resume()

	var report Report
	for _, tpl := range tpls {
		path := filepath.Join(e.syncRoot, "template_sets", setName, groupFor(tpl.Title), tpl.Title+".html")
		if err := WriteFileAtomic(path, []byte(tpl.Template)); err != nil {
			e.logger.Printf("Error writing template %q (sid %d): %v", tpl.Title, sid, err)
			report.Failed++
			continue
		}
		report.Written++
	}

	e.logger.Printf("Exported set %q: %d written, %d failed", setName, report.Written, report.Failed)
	return report, nil
}

// ExportTheme writes every stylesheet of the named theme to
// {syncRoot}/styles/{themeName}/{name}.css.
func (e *Exporter) ExportTheme(ctx context.Context, themeName string) (Report, error) {
	tid, found, err := e.db.LookupTheme(ctx, themeName)
	if err != nil {
		return Report{}, err
	}
	if !found {
		return Report{}, fmt.Errorf("theme %q not found", themeName)
	}

	sheets, err := e.db.ListStylesheetsByTheme(ctx, tid)
	if err != nil {
		return Report{}, err
	}

	e.pauser.Pause()
	defer e.pauser.Resume()

	var report Report
	for _, sheet := range sheets {
		path := filepath.Join(e.syncRoot, "styles", themeName, sheet.Name+".css")
		if err := WriteFileAtomic(path, []byte(sheet.Stylesheet)); err != nil {
			e.logger.Printf("Error writing stylesheet %q (theme %d): %v", sheet.Name, tid, err)
			report.Failed++
			continue
		}
		report.Written++
	}

	e.logger.Printf("Exported theme %q: %d written, %d failed", themeName, report.Written, report.Failed)
	return report, nil
}

// ExportAll writes every template set and every theme.
func (e *Exporter) ExportAll(ctx context.Context) (Report, error) {
	sets, err := e.db.ListTemplateSets(ctx)
	if err != nil {
		return Report{}, err
	}
	themes, err := e.db.ListThemes(ctx)
	if err != nil {
		return Report{}, err
	}

	var total Report
	for _, title := range sets {
		r, err := e.ExportTemplateSet(ctx, title)
		if err != nil {
			return total, err
		}
		total.Written += r.Written
		total.Failed += r.Failed
	}
	for _, name := range themes {
		r, err := e.ExportTheme(ctx, name)
		if err != nil {
			return total, err
		}
		total.Written += r.Written
		total.Failed += r.Failed
	}
	return total, nil
}

// groupFor derives the organizational group directory for a template title.
// MyBB groups templates by their title prefix: "header_welcomeblock" files
// under header/. Titles without a prefix fall under ungrouped/.
func groupFor(title string) string {
	if idx := strings.Index(title, "_"); idx > 0 {
		return title[:idx]
	}
	return "ungrouped"
}

// WriteFileAtomic writes data to path via a sibling temp file and an atomic
// rename, creating parent directories as needed. The final filename is never
// observed partially written. On any failure the temp file is removed before
// the error propagates.
//
// The temp suffix matches pathroute.TempSuffix, so the watcher classifies
// in-progress writes as ignored.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := path + pathroute.TempSuffix

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
