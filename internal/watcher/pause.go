package watcher

import (
	"sync"
	"time"
)

// PauseState tracks whether event processing is suspended.
//
// The exporter pauses the watcher around bulk disk writes so its own writes
// are not reinterpreted as user edits. Pause and Resume are idempotent:
// calling either when already in that state is a no-op, not an error.
// The flag is the only state shared between the exporter's goroutine and the
// event loop, guarded by a single mutex.
type PauseState struct {
	mu     sync.Mutex
	paused bool
}

// NewPauseState creates an unpaused PauseState.
func NewPauseState() *PauseState {
	return &PauseState{}
}

// Pause suspends event processing. Idempotent.
func (p *PauseState) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume restores event processing. Idempotent.
func (p *PauseState) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// IsPaused reports whether processing is currently suspended.
func (p *PauseState) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Await blocks while paused, polling at the given interval.
// It returns early when done is closed. There is no timeout: a watcher-side
// timeout could unblock processing while an exporter is still writing partial
// files, so the resume obligation stays with the caller.
func (p *PauseState) Await(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	for p.IsPaused() {
		select {
		case <-done:
			return
		case <-time.After(interval):
		}
	}
}
