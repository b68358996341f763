package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Handler formats sync engine events as dashboard messages. It satisfies the
// engine's notifier contract, bridging import/export activity to the
// WebSocket server. Events arrive from the watcher's flush goroutine as well
// as synchronous CLI calls, so statistics are mutex-guarded.
type Handler struct {
	server *Server
	logger *log.Logger

	mu    sync.Mutex
	stats StatsData
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats: StatsData{
			ByAction: make(map[string]int),
		},
	}
}

// ItemImported handles single-file import events
func (h *Handler) ItemImported(kind, title string, sid int64, action string) {
	h.logger.Printf("Imported %s %q (sid %d): %s", kind, title, sid, action)

	h.mu.Lock()
	h.stats.Imported++
	h.stats.ByAction[action]++
	h.mu.Unlock()

	data := ItemImportedData{
		Kind:   kind,
		Title:  title,
		SID:    sid,
		Action: action,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal import data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeItemImported,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// BatchFlushed handles debounced change batch completion events
func (h *Handler) BatchFlushed(size int) {
	h.logger.Printf("Batch flushed: %d items", size)

	h.mu.Lock()
	h.stats.Batches++
	h.mu.Unlock()

	dataJSON, err := json.Marshal(BatchFlushedData{Size: size})
	if err != nil {
		h.logger.Printf("Failed to marshal batch data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeBatchFlushed,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// ExportCompleted handles database-to-disk export report events
func (h *Handler) ExportCompleted(name string, written, failed int) {
	h.logger.Printf("Export %q complete: %d written, %d failed", name, written, failed)

	h.mu.Lock()
	h.stats.Exports++
	h.stats.Written += written
	h.stats.Failed += failed
	h.mu.Unlock()

	data := ExportCompleteData{
		Name:    name,
		Written: written,
		Failed:  failed,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal export data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeExportComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// WatcherState handles watcher pause and resume events
func (h *Handler) WatcherState(paused bool) {
	h.logger.Printf("Watcher paused=%t", paused)

	h.mu.Lock()
	h.stats.Paused = paused
	h.mu.Unlock()

	dataJSON, err := json.Marshal(WatcherStateData{Paused: paused})
	if err != nil {
		h.logger.Printf("Failed to marshal watcher state: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeWatcherState,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// broadcastStats sends current cumulative statistics to all clients
func (h *Handler) broadcastStats() {
	h.mu.Lock()
	snapshot := h.stats
	snapshot.ByAction = make(map[string]int, len(h.stats.ByAction))
	for k, v := range h.stats.ByAction {
		snapshot.ByAction[k] = v
	}
	h.mu.Unlock()

	dataJSON, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// GetStats returns a copy of the current statistics
func (h *Handler) GetStats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.stats
	snapshot.ByAction = make(map[string]int, len(h.stats.ByAction))
	for k, v := range h.stats.ByAction {
		snapshot.ByAction[k] = v
	}
	return snapshot
}
