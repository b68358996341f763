// Package syncsvc wires the watcher, importers, and exporter into one sync
// service. This is the composition root: external callers (the CLI and the
// tool dispatcher) talk to Service, and Service contains no business logic
// beyond delegation and batch dispatch.
package syncsvc

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mybbtools/devsync/internal/exporter"
	"github.com/mybbtools/devsync/internal/importer"
	"github.com/mybbtools/devsync/internal/pathroute"
	"github.com/mybbtools/devsync/internal/store"
	"github.com/mybbtools/devsync/internal/watcher"
)

// Notifier receives sync engine events. Implementations must not block.
type Notifier interface {
	// ItemImported fires after one store write (or skip) completes.
	ItemImported(kind, title string, sid int64, action string)
	// BatchFlushed fires after a watcher batch is fully dispatched.
	BatchFlushed(size int)
	// ExportCompleted fires after a bulk export finishes.
	ExportCompleted(name string, written, failed int)
	// WatcherState fires on pause/resume transitions.
	WatcherState(paused bool)
}

// noopNotifier is used when no dashboard is attached.
type noopNotifier struct{}

func (noopNotifier) ItemImported(string, string, int64, string) {}
func (noopNotifier) BatchFlushed(int)                           {}
func (noopNotifier) ExportCompleted(string, int, int)           {}
func (noopNotifier) WatcherState(bool)                          {}

// Report summarizes a synchronous bulk import.
type Report struct {
	Imported int
	Skipped  int
	Failed   int
	// Warnings carries the per-item fallback and skip messages so callers
	// see them in the response, not only in the logs.
	Warnings []string
}

// Config holds service wiring options.
type Config struct {
	// SyncRoot contains template_sets/ and styles/.
	SyncRoot string
	// WorkspaceRoot contains plugins/. May equal SyncRoot.
	WorkspaceRoot string
	// CacheTTL bounds set/theme name resolution caching.
	CacheTTL time.Duration
	// Watcher tunes the event pipeline; nil means defaults.
	Watcher *watcher.Config
	// Notifier receives engine events; nil means none.
	Notifier Notifier
	// Logger for service activity.
	Logger *log.Logger
}

// Service is the sync engine's composition root.
type Service struct {
	db       *store.DB
	importer *importer.Importer
	exporter *exporter.Exporter
	watcher  *watcher.Watcher
	router   *pathroute.Router
	notifier Notifier
	logger   *log.Logger
	cfg      *Config
}

// New wires a Service over an opened store.
func New(db *store.DB, cfg *Config) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if cfg == nil || cfg.SyncRoot == "" {
		return nil, fmt.Errorf("sync root cannot be empty")
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = cfg.SyncRoot
	}
	if cfg.Notifier == nil {
		cfg.Notifier = noopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	s := &Service{
		db:       db,
		router:   pathroute.NewRouter(),
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		cfg:      cfg,
	}
	s.importer = importer.New(db, cfg.CacheTTL, cfg.Logger)

	w, err := watcher.New(s.handleBatch, cfg.Watcher)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = w

	// The watcher itself is the exporter's pauser: bulk writes suspend
	// event processing for their duration.
	s.exporter = exporter.New(db, cfg.SyncRoot, w, cfg.Logger)

	return s, nil
}

// StartWatching begins observing the workspace roots that exist on disk.
func (s *Service) StartWatching() error {
	candidates := []string{
		filepath.Join(s.cfg.SyncRoot, "template_sets"),
		filepath.Join(s.cfg.SyncRoot, "styles"),
		filepath.Join(s.cfg.SyncRoot, "themes"),
		filepath.Join(s.cfg.WorkspaceRoot, "plugins"),
	}

	var roots []string
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	if len(roots) == 0 {
		return fmt.Errorf("no watchable directories under %s", s.cfg.SyncRoot)
	}

	return s.watcher.Start(roots...)
}

// StopWatching stops the watcher, discarding any pending batch.
func (s *Service) StopWatching() error {
	return s.watcher.Stop()
}

// PauseWatcher suspends event processing. Idempotent.
func (s *Service) PauseWatcher() {
	s.watcher.Pause()
	s.notifier.WatcherState(true)
}

// ResumeWatcher restores event processing. Idempotent.
func (s *Service) ResumeWatcher() {
	s.watcher.Resume()
	s.notifier.WatcherState(false)
}

// Status describes the engine's current state.
type Status struct {
	Running     bool
	Paused      bool
	Pending     int
	Templates   int
	Stylesheets int
}

// Status reports watcher state and store row counts.
func (s *Service) Status(ctx context.Context) (Status, error) {
	templates, err := s.db.TemplateCount(ctx)
	if err != nil {
		return Status{}, err
	}
	stylesheets, err := s.db.StylesheetCount(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:     s.watcher.IsRunning(),
		Paused:      s.watcher.IsPaused(),
		Pending:     s.watcher.PendingCount(),
		Templates:   templates,
		Stylesheets: stylesheets,
	}, nil
}

// ExportSet writes the named template set to disk, pausing the watcher for
// the duration.
func (s *Service) ExportSet(ctx context.Context, setName string) (exporter.Report, error) {
	report, err := s.exporter.ExportTemplateSet(ctx, setName)
	if err != nil {
		return report, err
	}
	s.notifier.ExportCompleted(setName, report.Written, report.Failed)
	return report, nil
}

// ExportTheme writes the named theme's stylesheets to disk.
func (s *Service) ExportTheme(ctx context.Context, themeName string) (exporter.Report, error) {
	report, err := s.exporter.ExportTheme(ctx, themeName)
	if err != nil {
		return report, err
	}
	s.notifier.ExportCompleted(themeName, report.Written, report.Failed)
	return report, nil
}

// ExportAll writes every set and theme to disk.
func (s *Service) ExportAll(ctx context.Context) (exporter.Report, error) {
	report, err := s.exporter.ExportAll(ctx)
	if err != nil {
		return report, err
	}
	s.notifier.ExportCompleted("all", report.Written, report.Failed)
	return report, nil
}

// ImportSet imports every file of one template set directory from disk.
func (s *Service) ImportSet(ctx context.Context, setName string) (Report, error) {
	root := filepath.Join(s.cfg.SyncRoot, "template_sets", setName)
	if _, err := os.Stat(root); err != nil {
		return Report{}, fmt.Errorf("template set directory not found: %s", root)
	}
	return s.ImportPath(ctx, root)
}

// ImportAll performs a full disk-to-store sync across every watched root.
// Name-resolution caches are invalidated first so renamed sets re-resolve.
func (s *Service) ImportAll(ctx context.Context) (Report, error) {
	s.importer.InvalidateCaches()

	var total Report
	roots := []string{
		filepath.Join(s.cfg.SyncRoot, "template_sets"),
		filepath.Join(s.cfg.SyncRoot, "styles"),
		filepath.Join(s.cfg.SyncRoot, "themes"),
		filepath.Join(s.cfg.WorkspaceRoot, "plugins"),
	}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		r, err := s.ImportPath(ctx, root)
		if err != nil {
			return total, err
		}
		total.Imported += r.Imported
		total.Skipped += r.Skipped
		total.Failed += r.Failed
		total.Warnings = append(total.Warnings, r.Warnings...)
	}
	return total, nil
}

// ImportPath walks a directory tree, classifies every file, and imports the
// routable ones. Per-item failures are counted and logged; they never abort
// the walk.
func (s *Service) ImportPath(ctx context.Context, root string) (Report, error) {
	var report Report

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		parsed := s.router.Parse(path)
		if parsed.Kind == pathroute.KindIgnored {
			return nil
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil || len(data) == 0 {
			report.Skipped++
			return nil
		}

		res, ierr := s.importItem(ctx, parsed, string(data))
		if ierr != nil {
			s.logger.Printf("Error importing %s: %v", parsed.Path, ierr)
			report.Failed++
			return nil
		}
		s.tally(&report, res)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	s.logger.Printf("Imported %s: %d imported, %d skipped, %d failed",
		root, report.Imported, report.Skipped, report.Failed)
	return report, nil
}

// handleBatch is the watcher's flush sink. One bad item never aborts the
// batch; store errors are logged with the item's identity and the batch
// continues.
func (s *Service) handleBatch(batch []watcher.WorkItem) {
	ctx := context.Background()

	for _, item := range batch {
		res, err := s.importItem(ctx, item.Parsed, item.Content)
		if err != nil {
			s.logger.Printf("Error importing %s: %v", item.Parsed.Path, err)
			continue
		}
		s.notifier.ItemImported(item.Parsed.Kind.String(), res.Title, res.SID, res.Action.String())
	}

	s.notifier.BatchFlushed(len(batch))
}

// importItem dispatches one parsed item to the matching importer.
func (s *Service) importItem(ctx context.Context, parsed pathroute.ParsedPath, content string) (importer.Result, error) {
	switch parsed.Kind {
	case pathroute.KindTemplate:
		return s.importer.ImportTemplate(ctx, parsed.SetName, parsed.Leaf, content)
	case pathroute.KindStylesheet:
		return s.importer.ImportStylesheet(ctx, parsed.ThemeName, parsed.Leaf, content)
	case pathroute.KindPluginTemplate:
		return s.importer.ImportPluginTemplate(ctx, parsed.Codename, parsed.ThemeName, parsed.Leaf, content)
	default:
		return importer.Result{}, fmt.Errorf("unroutable kind %v for %s", parsed.Kind, parsed.Path)
	}
}

// tally folds one import result into a bulk report.
func (s *Service) tally(report *Report, res importer.Result) {
	if res.Action == importer.ActionSkipped {
		report.Skipped++
	} else {
		report.Imported++
	}
	if res.Warning != "" {
		report.Warnings = append(report.Warnings, res.Warning)
	}
}
