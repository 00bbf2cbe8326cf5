package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// postFilterOverfetch widens the text search when metadata filters will
// discard some of its results.
const postFilterOverfetch = 5

// Primary runs the text search stage.
type Primary struct {
	store  store.Store
	logger *slog.Logger
}

// NewPrimary creates a primary search stage over s.
func NewPrimary(s store.Store, logger *slog.Logger) *Primary {
	if logger == nil {
		logger = slog.Default()
	}
	return &Primary{store: s, logger: logger}
}

// Search returns up to plan.Limit entities matching every token of the plan
// text and all of its filters.
func (p *Primary) Search(ctx context.Context, plan *Plan) ([]*types.Entity, error) {
	if len(plan.Tokens) == 0 {
		return []*types.Entity{}, nil
	}

	fetch := plan.Limit
	if len(plan.Filters) > 0 {
		fetch *= postFilterOverfetch
	}

	found, err := p.store.SearchByText(ctx, plan.Text, &store.TextSearchOptions{
		Kinds:       plan.Kinds,
		Limit:       fetch,
		NewestFirst: plan.NewestFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}

	matched := make([]*types.Entity, 0, len(found))
	for _, e := range found {
		if MatchFilters(e, plan.Filters) {
			matched = append(matched, e)
		}
	}
	if len(plan.PreferPriorities) > 0 {
		matched = preferPriorities(matched, plan.PreferPriorities)
	}
	if len(matched) > plan.Limit {
		matched = matched[:plan.Limit]
	}

	p.logger.Debug("Primary search complete",
		"query", plan.Text, "fetched", len(found), "matched", len(matched))
	return matched, nil
}

// MatchFilters reports whether e satisfies every filter. A filter value that
// is a list matches when any element matches; tags match when the entity
// carries any of the requested tags. Scalar values compare by equality,
// ignoring case. An entity without the filtered field does not match.
func MatchFilters(e *types.Entity, filters map[string]interface{}) bool {
	for key, want := range filters {
		if key == "tags" {
			if !anyTag(e, types.StringList(want)) {
				return false
			}
			continue
		}

		got, ok := e.Field(key)
		if !ok || got == nil {
			return false
		}
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

func anyTag(e *types.Entity, wanted []string) bool {
	for _, tag := range wanted {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

func matchValue(got, want interface{}) bool {
	switch w := want.(type) {
	case []string, []interface{}:
		for _, candidate := range types.StringList(w) {
			if matchScalar(got, candidate) {
				return true
			}
		}
		return false
	default:
		return matchScalar(got, want)
	}
}

// matchScalar compares formatted values. A list-valued field matches when
// one of its elements does.
func matchScalar(got, want interface{}) bool {
	wantStr := fmt.Sprint(want)
	switch g := got.(type) {
	case []string, []interface{}:
		for _, item := range types.StringList(g) {
			if strings.EqualFold(item, wantStr) {
				return true
			}
		}
		return false
	default:
		return strings.EqualFold(fmt.Sprint(got), wantStr)
	}
}

// preferPriorities stably moves entities whose priority is one of preferred
// ahead of the others.
func preferPriorities(entities []*types.Entity, preferred []string) []*types.Entity {
	out := make([]*types.Entity, 0, len(entities))
	var rest []*types.Entity
	for _, e := range entities {
		if hasPriority(e, preferred) {
			out = append(out, e)
		} else {
			rest = append(rest, e)
		}
	}
	return append(out, rest...)
}

func hasPriority(e *types.Entity, preferred []string) bool {
	priority := e.MetadataString("priority")
	for _, p := range preferred {
		if strings.EqualFold(priority, p) {
			return true
		}
	}
	return false
}
