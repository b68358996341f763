package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/mybbtools/devsync/internal/pathroute"
)

// pendingItem is one change awaiting the batch flush. Content is read from
// disk at flush time so the freshest write always wins.
type pendingItem struct {
	parsed pathroute.ParsedPath
	path   string
}

// coalesceKey identifies the target row of an item. Within one batch window
// only the most recent item per key survives.
func coalesceKey(pp pathroute.ParsedPath) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", pp.Kind, pp.SetName, pp.ThemeName, pp.Codename, pp.Leaf)
}

// batcher accumulates pending items over a short window, coalescing
// duplicate keys, then flushes the pending map as one submission.
//
// A single timer is started on the first item of a window; later items join
// the same window rather than extending it. flushMu serializes flushes so a
// later window for the same identity never interleaves with an earlier one.
type batcher struct {
	mu      sync.Mutex
	flushMu sync.Mutex
	pending map[string]pendingItem
	timer   *time.Timer
	window  time.Duration
	deliver func(items []pendingItem)
}

func newBatcher(window time.Duration, deliver func(items []pendingItem)) *batcher {
	return &batcher{
		pending: make(map[string]pendingItem),
		window:  window,
		deliver: deliver,
	}
}

// Add queues an item, overwriting any earlier item with the same key.
// The window timer starts with the first item.
func (b *batcher) Add(it pendingItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[coalesceKey(it.parsed)] = it
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.fire)
	}
}

// fire drains the pending map and delivers it as one batch.
func (b *batcher) fire() {
	b.mu.Lock()
	items := b.drainLocked()
	b.timer = nil
	b.mu.Unlock()

	if len(items) == 0 {
		return
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.deliver(items)
}

// Flush synchronously delivers any pending items, cancelling the window
// timer. Used for explicit drains before shutdown.
func (b *batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		if !b.timer.Stop() {
			// Timer already fired; let that flush run instead.
			b.mu.Unlock()
			return
		}
		b.timer = nil
	}
	items := b.drainLocked()
	b.mu.Unlock()

	if len(items) == 0 {
		return
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.deliver(items)
}

// Stop cancels any pending window timer and discards queued items.
// No partial flush is triggered on shutdown unless Flush was called first.
func (b *batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = make(map[string]pendingItem)
}

// PendingCount returns the number of queued items.
func (b *batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// drainLocked empties the pending map. Caller holds b.mu.
func (b *batcher) drainLocked() []pendingItem {
	if len(b.pending) == 0 {
		return nil
	}
	items := make([]pendingItem, 0, len(b.pending))
	for _, it := range b.pending {
		items = append(items, it)
	}
	b.pending = make(map[string]pendingItem)
	return items
}
