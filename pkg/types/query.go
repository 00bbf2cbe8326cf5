package types

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Intent is the inferred purpose of a search.
type Intent string

const (
	IntentProblemSolving       Intent = "problem_solving"
	IntentKnowledgeAcquisition Intent = "knowledge_acquisition"
	IntentHistoryLookup        Intent = "history_lookup"
	IntentGeneral              Intent = "general"
)

// ParseIntent returns the intent named by s.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentProblemSolving:
		return IntentProblemSolving, true
	case IntentKnowledgeAcquisition:
		return IntentKnowledgeAcquisition, true
	case IntentHistoryLookup:
		return IntentHistoryLookup, true
	case IntentGeneral:
		return IntentGeneral, true
	}
	return "", false
}

// Search defaults
const (
	DefaultSearchLimit      = 10
	DefaultMaxDepth         = 2
	DefaultMaxContextLength = 4000
)

// SearchQuery is a structured search request.
type SearchQuery struct {
	Text    string                 `json:"text"`
	Kinds   []EntityKind           `json:"kinds,omitempty"`
	Filters map[string]interface{} `json:"filters,omitempty"`
	Limit   int                    `json:"limit,omitempty"`

	// Intent overrides the inferred intent when set.
	Intent Intent `json:"intent,omitempty"`

	DisableExpansion  bool     `json:"disable_expansion,omitempty"`
	MaxDepth          int      `json:"max_depth,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	MaxContextLength  int      `json:"max_context_length,omitempty"`

	// NewestFirst orders primary results by descending creation time.
	NewestFirst bool `json:"newest_first,omitempty"`
}

// WithDefaults returns a copy of q with zero limits replaced. Zero or
// negative arguments fall back to the package defaults.
func (q SearchQuery) WithDefaults(limit, maxDepth, maxContextLength int) SearchQuery {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}
	if q.Limit <= 0 {
		q.Limit = limit
	}
	if q.MaxDepth <= 0 {
		q.MaxDepth = maxDepth
	}
	if q.MaxContextLength <= 0 {
		q.MaxContextLength = maxContextLength
	}
	return q
}

// SearchResult is the answer to one search.
type SearchResult struct {
	Query         string             `json:"query"`
	Intent        Intent             `json:"intent"`
	Primary       []*Entity          `json:"primary"`
	Related       []*Entity          `json:"related"`
	Relationships []*Relationship    `json:"relationships"`
	Scores        map[string]float64 `json:"scores"`
	Context       string             `json:"context"`
	TotalFound    int                `json:"total_found"`
	LatencyMs     float64            `json:"latency_ms"`
	Suggestions   []string           `json:"suggestions,omitempty"`

	// Error describes the failure behind a degraded result.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the result was produced after a pipeline failure.
func (r *SearchResult) Failed() bool {
	return r.Error != ""
}

// Clone returns a deep copy of r. Cached results are handed out as clones
// so callers can modify them freely.
func (r *SearchResult) Clone() *SearchResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Primary = cloneEntities(r.Primary)
	c.Related = cloneEntities(r.Related)
	if r.Relationships != nil {
		c.Relationships = make([]*Relationship, len(r.Relationships))
		for i, rel := range r.Relationships {
			c.Relationships[i] = rel.Clone()
		}
	}
	c.Scores = maps.Clone(r.Scores)
	c.Suggestions = slices.Clone(r.Suggestions)
	return &c
}

func cloneEntities(entities []*Entity) []*Entity {
	if entities == nil {
		return nil
	}
	out := make([]*Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}
	return out
}

// SearchRecord is one entry of the search history.
type SearchRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	Intent      Intent    `json:"intent"`
	ResultCount int       `json:"result_count"`
	LatencyMs   float64   `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
}

// SearchAnalytics aggregates the search history.
type SearchAnalytics struct {
	TotalSearches      int            `json:"total_searches"`
	IntentDistribution map[Intent]int `json:"intent_distribution"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	AvgResultCount     float64        `json:"avg_result_count"`
	CacheHitRate       float64        `json:"cache_hit_rate"`
}
