package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mybbtools/devsync/internal/store"
)

// Action describes what an import did to the store.
type Action int

const (
	// ActionSkipped means no store write occurred (blank content or
	// unresolvable destination).
	ActionSkipped Action = iota
	// ActionInserted means a new row was created.
	ActionInserted
	// ActionUpdated means an existing row's content was replaced.
	ActionUpdated
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionSkipped:
		return "skipped"
	case ActionInserted:
		return "inserted"
	case ActionUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Result reports the outcome of a single import.
// Warning carries non-fatal conditions (master fallback, skip reasons) so
// synchronous callers can surface them, not just read them from logs.
type Result struct {
	Action  Action
	Title   string
	SID     int64
	Warning string
}

// ContentImporter writes template and stylesheet content into the store.
//
// Imports are idempotent upserts: a new identity is inserted, an existing
// identity's content is updated. Importers never delete rows; removal is a
// separate uninstall workflow. Store-layer errors propagate to the caller;
// a batch driver logs them and continues with the next item.
type ContentImporter interface {
	// ImportTemplate upserts a template into the set named setName.
	// The item is skipped with a warning when the set cannot be resolved.
	ImportTemplate(ctx context.Context, setName, leaf, content string) (Result, error)

	// ImportStylesheet upserts a stylesheet into the theme named themeName.
	// The item is skipped with a warning when the theme cannot be resolved.
	ImportStylesheet(ctx context.Context, themeName, leaf, content string) (Result, error)

	// ImportPluginTemplate upserts a plugin-owned template. The stored title
	// is always {codename}_{leaf}. An empty or whitespace themeName targets
	// the master set; an unresolvable themeName falls back to the master set
	// with a warning rather than dropping the write.
	ImportPluginTemplate(ctx context.Context, codename, themeName, leaf, content string) (Result, error)
}

// Importer implements ContentImporter against the embedded store.
type Importer struct {
	db     *store.DB
	sets   *Cache
	themes *Cache
	logger *log.Logger
	now    func() time.Time
}

var _ ContentImporter = (*Importer)(nil)

// New creates an Importer with its own set/theme resolution caches.
// A non-positive cacheTTL falls back to DefaultCacheTTL. If logger is nil,
// a default logger writing to stderr is used.
func New(db *store.DB, cacheTTL time.Duration, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[importer] ", log.LstdFlags)
	}
	return &Importer{
		db:     db,
		sets:   NewCache(db.LookupTemplateSet, cacheTTL),
		themes: NewCache(db.LookupTheme, cacheTTL),
		logger: logger,
		now:    time.Now,
	}
}

// InvalidateCaches drops all cached name resolutions.
// Called at the start of a full sync so renamed sets are re-resolved.
func (i *Importer) InvalidateCaches() {
	i.sets.Invalidate()
	i.themes.Invalidate()
}

// ImportTemplate implements ContentImporter.ImportTemplate.
func (i *Importer) ImportTemplate(ctx context.Context, setName, leaf, content string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		warning := fmt.Sprintf("template %q: blank content rejected", leaf)
		i.logger.Printf("Warning: %s", warning)
		return Result{Action: ActionSkipped, Title: leaf, Warning: warning}, nil
	}

	sid, found, err := i.sets.Resolve(ctx, setName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve template set %q: %w", setName, err)
	}
	if !found {
		warning := fmt.Sprintf("template %q: set %q not found, item dropped", leaf, setName)
		i.logger.Printf("Warning: %s", warning)
		return Result{Action: ActionSkipped, Title: leaf, Warning: warning}, nil
	}

	res, err := i.upsertTemplate(ctx, leaf, sid, content)
	if err != nil {
		return Result{}, err
	}
	i.logger.Printf("%s template %q (sid %d)", res.Action, res.Title, res.SID)
	return res, nil
}

// ImportStylesheet implements ContentImporter.ImportStylesheet.
func (i *Importer) ImportStylesheet(ctx context.Context, themeName, leaf, content string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		warning := fmt.Sprintf("stylesheet %q: blank content rejected", leaf)
		i.logger.Printf("Warning: %s", warning)
		return Result{Action: ActionSkipped, Title: leaf, Warning: warning}, nil
	}

	themeID, found, err := i.themes.Resolve(ctx, themeName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve theme %q: %w", themeName, err)
	}
	if !found {
		warning := fmt.Sprintf("stylesheet %q: theme %q not found, item dropped", leaf, themeName)
		i.logger.Printf("Warning: %s", warning)
		return Result{Action: ActionSkipped, Title: leaf, Warning: warning}, nil
	}

	res, err := i.upsertStylesheet(ctx, leaf, themeID, content)
	if err != nil {
		return Result{}, err
	}
	i.logger.Printf("%s stylesheet %q (theme %d)", res.Action, res.Title, res.SID)
	return res, nil
}

// ImportPluginTemplate implements ContentImporter.ImportPluginTemplate.
func (i *Importer) ImportPluginTemplate(ctx context.Context, codename, themeName, leaf, content string) (Result, error) {
	title := fmt.Sprintf("%s_%s", codename, leaf)

	if strings.TrimSpace(content) == "" {
		warning := fmt.Sprintf("plugin template %q: blank content rejected", title)
		i.logger.Printf("Warning: %s", warning)
		return Result{Action: ActionSkipped, Title: title, Warning: warning}, nil
	}

	sid := store.SIDMaster
	var warning string
	if strings.TrimSpace(themeName) != "" {
		resolved, found, err := i.sets.Resolve(ctx, themeName)
		if err != nil {
			return Result{}, fmt.Errorf("failed to resolve set %q for plugin template %q: %w", themeName, title, err)
		}
		if found {
			sid = resolved
		} else {
			// Plugin content must never be silently lost: land it on the
			// master set and surface the fallback.
			warning = fmt.Sprintf("plugin template %q: set %q not found, falling back to master", title, themeName)
			i.logger.Printf("Warning: %s", warning)
		}
	}

	res, err := i.upsertTemplate(ctx, title, sid, content)
	if err != nil {
		return Result{}, err
	}
	res.Warning = warning
	i.logger.Printf("%s plugin template %q (sid %d)", res.Action, res.Title, res.SID)
	return res, nil
}

// upsertTemplate inserts or updates the template row at (title, sid).
// New non-master rows inherit the master row's version when one exists.
func (i *Importer) upsertTemplate(ctx context.Context, title string, sid int64, content string) (Result, error) {
	dateline := i.now().Unix()

	existing, err := i.db.GetTemplate(ctx, title, sid)
	switch {
	case err == sql.ErrNoRows:
		version := store.DefaultTemplateVersion
		if sid != store.SIDMaster {
			if v, found, verr := i.db.MasterTemplateVersion(ctx, title); verr != nil {
				return Result{}, verr
			} else if found {
				version = v
			}
		}
		tpl := &store.Template{
			Title:    title,
			SID:      sid,
			Template: content,
			Version:  version,
			Dateline: dateline,
		}
		if _, ierr := i.db.InsertTemplate(ctx, tpl); ierr != nil {
			return Result{}, ierr
		}
		return Result{Action: ActionInserted, Title: title, SID: sid}, nil

	case err != nil:
		return Result{}, fmt.Errorf("failed to query template %q (sid %d): %w", title, sid, err)

	default:
		if uerr := i.db.UpdateTemplateContent(ctx, existing.TID, content, dateline); uerr != nil {
			return Result{}, uerr
		}
		return Result{Action: ActionUpdated, Title: title, SID: sid}, nil
	}
}

// upsertStylesheet inserts or updates the stylesheet row at (name, themeID).
func (i *Importer) upsertStylesheet(ctx context.Context, name string, themeID int64, content string) (Result, error) {
	lastModified := i.now().Unix()

	existing, err := i.db.GetStylesheet(ctx, name, themeID)
	switch {
	case err == sql.ErrNoRows:
		sheet := &store.Stylesheet{
			Name:         name,
			ThemeID:      themeID,
			Stylesheet:   content,
			LastModified: lastModified,
		}
		if _, ierr := i.db.InsertStylesheet(ctx, sheet); ierr != nil {
			return Result{}, ierr
		}
		return Result{Action: ActionInserted, Title: name, SID: themeID}, nil

	case err != nil:
		return Result{}, fmt.Errorf("failed to query stylesheet %q (theme %d): %w", name, themeID, err)

	default:
		if uerr := i.db.UpdateStylesheetContent(ctx, existing.SID, content, lastModified); uerr != nil {
			return Result{}, uerr
		}
		return Result{Action: ActionUpdated, Title: name, SID: themeID}, nil
	}
}
