package cache

import (
	"sync"

	"github.com/soundprediction/recall/pkg/types"
)

// DefaultHistorySize is the history capacity used for non-positive sizes.
const DefaultHistorySize = 1000

// History is an append-only log of searches. When it grows past its
// capacity the older half is discarded.
type History struct {
	mu      sync.RWMutex
	size    int
	records []types.SearchRecord
}

// NewHistory creates a history holding at most size records.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, records: make([]types.SearchRecord, 0, size)}
}

// Add appends r.
func (h *History) Add(r types.SearchRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > h.size {
		keep := h.size / 2
		trimmed := make([]types.SearchRecord, keep, h.size)
		copy(trimmed, h.records[len(h.records)-keep:])
		h.records = trimmed
	}
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Records returns a copy of the log, oldest first.
func (h *History) Records() []types.SearchRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.SearchRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Analytics aggregates the records currently held.
func (h *History) Analytics() types.SearchAnalytics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	a := types.SearchAnalytics{
		TotalSearches:      len(h.records),
		IntentDistribution: make(map[types.Intent]int),
	}
	if len(h.records) == 0 {
		return a
	}

	var latency float64
	var results, hits int
	for _, r := range h.records {
		a.IntentDistribution[r.Intent]++
		latency += r.LatencyMs
		results += r.ResultCount
		if r.CacheHit {
			hits++
		}
	}
	n := float64(len(h.records))
	a.AvgLatencyMs = latency / n
	a.AvgResultCount = float64(results) / n
	a.CacheHitRate = float64(hits) / n
	return a
}
