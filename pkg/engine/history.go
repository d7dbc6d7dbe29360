package engine

import (
	"sync"
	"time"
)

// DefaultHistorySize is the number of resolutions kept by default.
const DefaultHistorySize = 1000

// HistoryEntry records one served request and how it was resolved.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Outcome    Outcome   `json:"outcome"`
	DurationMs int64     `json:"durationMs"`
	Trace      *Trace    `json:"trace,omitempty"`
}

// HistoryFilter narrows History.List.
type HistoryFilter struct {
	Method     string
	Path       string
	Outcome    Outcome
	EndpointID string
	Limit      int
}

// History is an in-memory ring buffer of recent resolutions.
type History struct {
	mu         sync.RWMutex
	entries    []*HistoryEntry
	maxEntries int
}

// NewHistory creates a History holding at most maxEntries entries.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultHistorySize
	}
	return &History{
		entries:    make([]*HistoryEntry, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Add records an entry, evicting the oldest when full.
func (h *History) Add(entry *HistoryEntry) {
	if entry == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.maxEntries {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, entry)
}

// Get returns the entry with the given ID, or nil.
func (h *History) Get(id string) *HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range h.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// List returns entries newest first.
func (h *History) List(filter *HistoryFilter) []*HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*HistoryEntry, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if filter != nil && !filter.matches(e) {
			continue
		}
		result = append(result, e)
		if filter != nil && filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear removes every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.entries)
	h.entries = h.entries[:0]
}

func (f *HistoryFilter) matches(e *HistoryEntry) bool {
	if f.Method != "" && f.Method != e.Method {
		return false
	}
	if f.Path != "" && f.Path != e.Path {
		return false
	}
	if f.Outcome != "" && f.Outcome != e.Outcome {
		return false
	}
	if f.EndpointID != "" && (e.Trace == nil || e.Trace.EndpointID != f.EndpointID) {
		return false
	}
	return true
}
