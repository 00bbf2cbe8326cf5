package dto

import (
	"strings"

	"github.com/soundprediction/recall/pkg/types"
)

// MaxQueryLength bounds the search text.
const MaxQueryLength = 4096

// ErrQueryTooLong is returned for oversized search text.
var ErrQueryTooLong error = types.NewValidationError("query", "exceeds maximum length (4096)")

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query             string                 `json:"query"`
	Kinds             []string               `json:"kinds,omitempty"`
	Filters           map[string]interface{} `json:"filters,omitempty"`
	Limit             int                    `json:"limit,omitempty"`
	Intent            string                 `json:"intent,omitempty"`
	DisableExpansion  bool                   `json:"disable_expansion,omitempty"`
	MaxDepth          int                    `json:"max_depth,omitempty"`
	RelationshipTypes []string               `json:"relationship_types,omitempty"`
	MaxContextLength  int                    `json:"max_context_length,omitempty"`
}

// ToQuery validates the request and converts it to a search query. An
// empty query is valid and yields suggestions.
func (r *SearchRequest) ToQuery() (types.SearchQuery, error) {
	if len(r.Query) > MaxQueryLength {
		return types.SearchQuery{}, ErrQueryTooLong
	}

	q := types.SearchQuery{
		Text:              r.Query,
		Filters:           r.Filters,
		Limit:             r.Limit,
		DisableExpansion:  r.DisableExpansion,
		MaxDepth:          r.MaxDepth,
		RelationshipTypes: r.RelationshipTypes,
		MaxContextLength:  r.MaxContextLength,
	}
	if q.Limit < 0 || q.MaxDepth < 0 || q.MaxContextLength < 0 {
		return q, types.NewValidationError("limit", "limits cannot be negative")
	}

	for _, k := range r.Kinds {
		if k = strings.TrimSpace(k); k != "" {
			q.Kinds = append(q.Kinds, types.EntityKind(strings.ToLower(k)))
		}
	}
	if r.Intent != "" {
		intent, ok := types.ParseIntent(r.Intent)
		if !ok {
			return q, types.NewValidationError("intent", "unknown intent "+r.Intent)
		}
		q.Intent = intent
	}
	return q, nil
}
