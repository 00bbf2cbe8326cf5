package search

import (
	"strings"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

// intentKeywords lists the keywords of each intent category. The slice order
// breaks ties between equally scored categories.
var intentKeywords = []struct {
	intent   types.Intent
	keywords []string
}{
	{
		intent: types.IntentProblemSolving,
		keywords: []string{
			"error", "fix", "problem", "issue", "bug", "fail", "broken", "crash",
			"debug", "troubleshoot", "resolve", "solve", "timeout", "outage", "not working",
		},
	},
	{
		intent: types.IntentKnowledgeAcquisition,
		keywords: []string{
			"how to", "what is", "explain", "learn", "understand", "guide",
			"tutorial", "documentation", "best practice", "example", "overview",
		},
	},
	{
		intent: types.IntentHistoryLookup,
		keywords: []string{
			"history", "previous", "past", "last time", "earlier", "when did",
			"timeline", "recent", "ago",
		},
	},
}

// PreferredPriorities are moved to the front of problem solving results when
// the caller did not filter on priority.
var PreferredPriorities = []string{"high", "medium"}

// Plan is a normalized query ready for execution.
type Plan struct {
	Text    string
	Tokens  []string
	Intent  types.Intent
	Kinds   []types.EntityKind
	Filters map[string]interface{}
	Limit   int

	NewestFirst       bool
	PreferPriorities  []string
	Expand            bool
	MaxDepth          int
	RelationshipTypes []string
	MaxContextLength  int
}

// InferIntent classifies text by how many distinct keywords of each category
// it contains. Repeating a keyword does not raise the score. The category
// with the highest non-zero count wins; ties go to the category declared
// first. Text without any keyword is general.
func InferIntent(text string) types.Intent {
	lower := strings.ToLower(text)
	best, bestScore := types.IntentGeneral, 0
	for _, category := range intentKeywords {
		score := 0
		for _, kw := range category.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = category.intent, score
		}
	}
	return best
}

// Preprocess normalizes q into a Plan. q is expected to carry its defaults
// already (see types.SearchQuery.WithDefaults).
func Preprocess(q types.SearchQuery) *Plan {
	text := strings.TrimSpace(q.Text)

	intent, ok := types.ParseIntent(string(q.Intent))
	if !ok {
		intent = InferIntent(text)
	}

	filters := make(map[string]interface{}, len(q.Filters))
	for k, v := range q.Filters {
		filters[k] = v
	}

	plan := &Plan{
		Text:              text,
		Tokens:            utils.Tokenize(text),
		Intent:            intent,
		Kinds:             q.Kinds,
		Filters:           filters,
		Limit:             q.Limit,
		NewestFirst:       q.NewestFirst,
		Expand:            !q.DisableExpansion,
		MaxDepth:          q.MaxDepth,
		RelationshipTypes: q.RelationshipTypes,
		MaxContextLength:  q.MaxContextLength,
	}
	if plan.Limit <= 0 {
		plan.Limit = types.DefaultSearchLimit
	}
	if plan.MaxContextLength <= 0 {
		plan.MaxContextLength = types.DefaultMaxContextLength
	}

	switch intent {
	case types.IntentProblemSolving:
		if _, ok := filters["priority"]; !ok {
			plan.PreferPriorities = PreferredPriorities
		}
	case types.IntentHistoryLookup:
		plan.NewestFirst = true
	}
	return plan
}
