package watcher

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mybbtools/devsync/internal/pathroute"
)

// WorkItem is one validated change delivered to the flush sink.
type WorkItem struct {
	// Parsed is the typed path descriptor; Kind is never KindIgnored here.
	Parsed pathroute.ParsedPath
	// Content is the file's bytes decoded as text, read at flush time.
	// Never empty at the byte level - zero-byte files are skipped before
	// delivery (blank-after-trim content is the importer's call).
	Content string
}

// FlushFunc consumes one coalesced batch. Batches are delivered strictly
// sequentially; the sink never sees two flushes interleaved.
type FlushFunc func(batch []WorkItem)

// Config holds watcher tuning knobs.
type Config struct {
	// DebounceWindow suppresses repeated events for the same path within
	// this window. It only prevents re-processing one logical edit; the
	// size/readability validation at flush time is the real safety net.
	DebounceWindow time.Duration

	// BatchWindow is how long the first accepted event waits for companions
	// before the pending batch flushes as one submission. Independent of
	// DebounceWindow.
	BatchWindow time.Duration

	// PausePollInterval is how often the event loop re-checks the pause
	// flag while suspended.
	PausePollInterval time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceWindow:    100 * time.Millisecond,
		BatchWindow:       100 * time.Millisecond,
		PausePollInterval: 100 * time.Millisecond,
		Logger:            log.New(os.Stderr, "[watcher] ", log.LstdFlags),
	}
}

// Watcher observes workspace trees and feeds debounced, batched change
// events to a flush sink. It supports pause/resume for mutual exclusion
// with bulk export operations.
type Watcher struct {
	fs      *fsnotify.Watcher
	router  *pathroute.Router
	batcher *batcher
	pause   *PauseState
	config  *Config
	flush   FlushFunc

	mu      sync.Mutex
	running bool

	// lastSeen implements per-path debouncing. Touched only from the event
	// loop goroutine.
	lastSeen map[string]time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher delivering batches to flush.
// The watcher must be started with Start() before it emits anything.
func New(flush FlushFunc, config *Config) (*Watcher, error) {
	if flush == nil {
		return nil, fmt.Errorf("flush sink cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.DebounceWindow <= 0 {
		config.DebounceWindow = defaults.DebounceWindow
	}
	if config.BatchWindow <= 0 {
		config.BatchWindow = defaults.BatchWindow
	}
	if config.PausePollInterval <= 0 {
		config.PausePollInterval = defaults.PausePollInterval
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		router:   pathroute.NewRouter(),
		pause:    NewPauseState(),
		config:   config,
		flush:    flush,
		lastSeen: make(map[string]time.Time),
		done:     make(chan struct{}),
	}
	w.batcher = newBatcher(config.BatchWindow, w.deliverBatch)
	return w, nil
}

// Start begins watching the given root directories and all their
// subdirectories. Roots that do not exist are an error; new subdirectories
// created later are picked up automatically.
func (w *Watcher) Start(roots ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if len(roots) == 0 {
		return fmt.Errorf("no roots to watch")
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	w.config.Logger.Printf("Watching %d root(s)", len(roots))
	return nil
}

// addTree registers root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fs.Add(path)
	})
}

// Stop stops watching and cleans up. Any pending batch timer is cancelled
// without flushing; call FlushPending first for a graceful drain.
// It blocks until the event loop has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.fs.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()
	w.batcher.Stop()

	w.config.Logger.Println("Watcher stopped")
	return nil
}

// Pause suspends event processing. Idempotent and safe from any goroutine.
func (w *Watcher) Pause() {
	w.pause.Pause()
	w.config.Logger.Println("Paused")
}

// Resume restores event processing. Idempotent and safe from any goroutine.
func (w *Watcher) Resume() {
	w.pause.Resume()
	w.config.Logger.Println("Resumed")
}

// IsPaused reports whether event processing is suspended.
func (w *Watcher) IsPaused() bool {
	return w.pause.IsPaused()
}

// IsRunning reports whether the watcher has been started and not stopped.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// PendingCount returns the number of changes queued for the next flush.
func (w *Watcher) PendingCount() int {
	return w.batcher.PendingCount()
}

// FlushPending synchronously delivers any queued changes.
func (w *Watcher) FlushPending() {
	w.batcher.Flush()
}

// processEvents is the event loop consuming raw fsnotify events.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// Block here while paused; events keep queuing in the fsnotify
			// channel and are processed once Resume is called.
			w.pause.Await(w.done, w.config.PausePollInterval)
			select {
			case <-w.done:
				return
			default:
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// handleEvent classifies, debounces, validates, and queues one raw event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	// New subdirectories must be watched as they appear; fsnotify does not
	// recurse on its own.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				w.config.Logger.Printf("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	parsed := w.router.Parse(event.Name)
	if parsed.Kind == pathroute.KindIgnored {
		return
	}

	now := time.Now()
	if last, seen := w.lastSeen[event.Name]; seen && now.Sub(last) < w.config.DebounceWindow {
		return
	}
	w.lastSeen[event.Name] = now
	w.pruneDebounce(now)

	// Race guard: the file may be gone or truncated between the event and
	// this check. Both are silent skips, not errors.
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return
	}

	w.config.Logger.Printf("Change: %s %s", event.Op, parsed.Path)
	w.batcher.Add(pendingItem{parsed: parsed, path: event.Name})
}

// pruneDebounce drops stale debounce entries so the map stays bounded.
func (w *Watcher) pruneDebounce(now time.Time) {
	if len(w.lastSeen) < 1024 {
		return
	}
	cutoff := now.Add(-10 * w.config.DebounceWindow)
	for path, t := range w.lastSeen {
		if t.Before(cutoff) {
			delete(w.lastSeen, path)
		}
	}
}

// deliverBatch reads each pending item's file and hands the validated batch
// to the flush sink. Runs on the batch timer goroutine; the batcher
// serializes invocations.
func (w *Watcher) deliverBatch(items []pendingItem) {
	// A flush armed before Pause must not read files mid-export.
	w.pause.Await(w.done, w.config.PausePollInterval)
	select {
	case <-w.done:
		return
	default:
	}

	batch := make([]WorkItem, 0, len(items))
	for _, it := range items {
		data, err := os.ReadFile(it.path)
		if err != nil || len(data) == 0 {
			// Deleted or truncated since the event: skip silently.
			continue
		}
		batch = append(batch, WorkItem{Parsed: it.parsed, Content: string(data)})
	}

	if len(batch) == 0 {
		return
	}

	w.config.Logger.Printf("Flushing batch of %d item(s)", len(batch))
	w.flush(batch)
}
