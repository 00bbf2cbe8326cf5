package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/soundprediction/recall/pkg/types"
)

// DefaultCapacity is the number of entries kept by a FIFO created with a
// non-positive capacity.
const DefaultCapacity = 100

// FIFO is a bounded map that evicts the oldest inserted key once full.
// Lookups do not affect eviction order.
type FIFO[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]V
	order    []string

	hits   int64
	misses int64
}

// NewFIFO creates a FIFO holding at most capacity entries.
func NewFIFO[V any](capacity int) *FIFO[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FIFO[V]{
		capacity: capacity,
		entries:  make(map[string]V, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Get returns the value stored under key.
func (c *FIFO[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores value under key. Replacing an existing key keeps its position.
// It returns the evicted key, if any.
func (c *FIFO[V]) Put(key string, value V) (evicted string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return "", false
	}

	c.entries[key] = value
	c.order = append(c.order, key)
	if len(c.order) > c.capacity {
		evicted = c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evicted)
		return evicted, true
	}
	return "", false
}

// Len returns the number of cached entries.
func (c *FIFO[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *FIFO[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V, c.capacity)
	c.order = make([]string, 0, c.capacity)
}

// Stats returns the hit and miss counts.
func (c *FIFO[V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// keyFields is hashed by Key. Kinds and relationship types are sorted so
// that their order does not matter; encoding/json sorts filter keys.
type keyFields struct {
	Text    string                 `json:"text"`
	Kinds   []string               `json:"kinds"`
	Filters map[string]interface{} `json:"filters"`
	Limit   int                    `json:"limit"`

	Intent            string   `json:"intent"`
	DisableExpansion  bool     `json:"disable_expansion"`
	MaxDepth          int      `json:"max_depth"`
	RelationshipTypes []string `json:"relationship_types"`
	MaxContextLength  int      `json:"max_context_length"`
	NewestFirst       bool     `json:"newest_first"`
}

// Key derives the cache key of q from its text, kinds, filters and limit,
// plus the options that change a result: explicit intent, expansion
// settings, context length and ordering.
func Key(q types.SearchQuery) string {
	kinds := make([]string, len(q.Kinds))
	for i, k := range q.Kinds {
		kinds[i] = string(k)
	}
	sort.Strings(kinds)

	relTypes := append([]string(nil), q.RelationshipTypes...)
	sort.Strings(relTypes)

	data, err := json.Marshal(keyFields{
		Text:              strings.TrimSpace(q.Text),
		Kinds:             kinds,
		Filters:           q.Filters,
		Limit:             q.Limit,
		Intent:            string(q.Intent),
		DisableExpansion:  q.DisableExpansion,
		MaxDepth:          q.MaxDepth,
		RelationshipTypes: relTypes,
		MaxContextLength:  q.MaxContextLength,
		NewestFirst:       q.NewestFirst,
	})
	if err != nil {
		// fmt prints maps with sorted keys
		data = []byte(strings.TrimSpace(q.Text) + "\x00" + strings.Join(kinds, ",") + "\x00" + fmt.Sprint(q.Filters) +
			"\x00" + fmt.Sprint(q.Limit, q.Intent, q.DisableExpansion, q.MaxDepth, relTypes, q.MaxContextLength, q.NewestFirst))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
