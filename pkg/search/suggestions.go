package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/recall/pkg/types"
)

// SuggestionThreshold is the result count below which suggestions are made.
const SuggestionThreshold = 3

const maxTagSuggestions = 3

// Suggest proposes follow-up queries when fewer than SuggestionThreshold
// results were found. partial holds whatever results the search produced.
// An empty query always yields at least one suggestion.
func Suggest(plan *Plan, partial []*types.Entity, total int) []string {
	if total >= SuggestionThreshold {
		return nil
	}

	if plan == nil || len(plan.Tokens) == 0 {
		return []string{
			"Enter one or more keywords to search for",
			"Search by incident, system or topic name, e.g. \"database timeout\"",
		}
	}

	var out []string
	if len(plan.Tokens) > 1 {
		out = append(out, fmt.Sprintf("Try fewer or broader keywords, e.g. %q", longestToken(plan.Tokens)))
	}
	if len(plan.Kinds) > 0 {
		kinds := make([]string, len(plan.Kinds))
		for i, k := range plan.Kinds {
			kinds[i] = string(k)
		}
		out = append(out, fmt.Sprintf("Remove the kind filter (%s) to search all entity kinds", strings.Join(kinds, ", ")))
	}
	if len(plan.Filters) > 0 {
		out = append(out, "Remove metadata filters to widen the search")
	}
	for _, tag := range frequentTags(partial, maxTagSuggestions) {
		out = append(out, fmt.Sprintf("Search for entities tagged %q", tag))
	}
	if len(out) == 0 {
		out = append(out, "Check the spelling or use more general terms")
	}
	return out
}

func longestToken(tokens []string) string {
	best := tokens[0]
	for _, t := range tokens[1:] {
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

// frequentTags returns up to n tags ordered by frequency, then name.
func frequentTags(entities []*types.Entity, n int) []string {
	counts := make(map[string]int)
	for _, e := range entities {
		for _, t := range e.Tags() {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				counts[t]++
			}
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
