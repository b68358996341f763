package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/mybbtools/devsync/internal/pathroute"
)

// batchCollector records delivered batches for assertions.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]pendingItem
}

func (c *batchCollector) deliver(items []pendingItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, items)
}

func (c *batchCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *batchCollector) batch(i int) []pendingItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[i]
}

func templateItem(set, leaf, path string) pendingItem {
	return pendingItem{
		parsed: pathroute.ParsedPath{
			Kind:    pathroute.KindTemplate,
			SetName: set,
			Leaf:    leaf,
		},
		path: path,
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBatcher_CoalescesSameKey(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(30*time.Millisecond, col.deliver)

	// Three rapid changes to the same identity within one window.
	b.Add(templateItem("Default", "header", "/v1"))
	b.Add(templateItem("Default", "header", "/v2"))
	b.Add(templateItem("Default", "header", "/v3"))

	waitFor(t, 2*time.Second, func() bool { return col.count() == 1 })

	items := col.batch(0)
	if len(items) != 1 {
		t.Fatalf("batch size = %d, want 1 (coalesced)", len(items))
	}
	if items[0].path != "/v3" {
		t.Errorf("surviving item path = %q, want last write %q", items[0].path, "/v3")
	}
}

func TestBatcher_DistinctKeysSurvive(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(30*time.Millisecond, col.deliver)

	b.Add(templateItem("Default", "header", "/a"))
	b.Add(templateItem("Default", "footer", "/b"))
	b.Add(templateItem("Other", "header", "/c"))

	waitFor(t, 2*time.Second, func() bool { return col.count() == 1 })

	if n := len(col.batch(0)); n != 3 {
		t.Errorf("batch size = %d, want 3 distinct identities", n)
	}
}

func TestBatcher_SingleTimerPerWindow(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(50*time.Millisecond, col.deliver)

	b.Add(templateItem("Default", "header", "/a"))
	time.Sleep(20 * time.Millisecond)
	// Joining an open window must not restart its timer.
	b.Add(templateItem("Default", "footer", "/b"))

	waitFor(t, 2*time.Second, func() bool { return col.count() == 1 })
	if n := len(col.batch(0)); n != 2 {
		t.Errorf("batch size = %d, want 2", n)
	}

	// A fresh item after the flush opens a new window.
	b.Add(templateItem("Default", "index", "/c"))
	waitFor(t, 2*time.Second, func() bool { return col.count() == 2 })
}

func TestBatcher_FlushDrainsImmediately(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(10*time.Second, col.deliver)

	b.Add(templateItem("Default", "header", "/a"))
	b.Flush()

	if col.count() != 1 {
		t.Fatalf("flush count = %d, want 1", col.count())
	}
	if b.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", b.PendingCount())
	}
}

func TestBatcher_StopDiscardsPending(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(50*time.Millisecond, col.deliver)

	b.Add(templateItem("Default", "header", "/a"))
	b.Stop()

	time.Sleep(150 * time.Millisecond)
	if col.count() != 0 {
		t.Errorf("delivered %d batches after Stop, want 0 (no partial flush on shutdown)", col.count())
	}
	if b.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", b.PendingCount())
	}
}

func TestBatcher_EmptyFlushIsNoop(t *testing.T) {
	col := &batchCollector{}
	b := newBatcher(10*time.Millisecond, col.deliver)

	b.Flush()
	time.Sleep(50 * time.Millisecond)
	if col.count() != 0 {
		t.Errorf("delivered %d batches with nothing pending, want 0", col.count())
	}
}
