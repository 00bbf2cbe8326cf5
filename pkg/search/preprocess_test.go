package search

import (
	"testing"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestInferIntent(t *testing.T) {
	tests := []struct {
		text string
		want types.Intent
	}{
		{"API timeout", types.IntentProblemSolving},
		{"How to configure the cache", types.IntentKnowledgeAcquisition},
		{"previous deploys", types.IntentHistoryLookup},
		{"deploy pipeline", types.IntentGeneral},
		{"", types.IntentGeneral},
		// one keyword each: the first declared category wins
		{"explain last time the error happened", types.IntentProblemSolving},
		{"explain the timeline of recent deploys", types.IntentHistoryLookup},
		{"WHAT IS a guide", types.IntentKnowledgeAcquisition},
		// distinct keywords count, repeats do not
		{"explain the guide for error error error", types.IntentKnowledgeAcquisition},
		{"error error error", types.IntentProblemSolving},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferIntent(tt.text))
		})
	}
}

func TestPreprocess(t *testing.T) {
	t.Run("trims and tokenizes", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "  Cache   Warmup \n"}.WithDefaults(0, 0, 0))
		assert.Equal(t, "Cache   Warmup", plan.Text)
		assert.Equal(t, []string{"cache", "warmup"}, plan.Tokens)
		assert.Equal(t, types.IntentGeneral, plan.Intent)
		assert.Equal(t, types.DefaultSearchLimit, plan.Limit)
		assert.Equal(t, types.DefaultMaxDepth, plan.MaxDepth)
		assert.True(t, plan.Expand)
	})

	t.Run("explicit intent wins", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "database error", Intent: types.IntentHistoryLookup})
		assert.Equal(t, types.IntentHistoryLookup, plan.Intent)
		assert.True(t, plan.NewestFirst)
	})

	t.Run("unknown explicit intent is inferred", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "database error", Intent: "gossip"})
		assert.Equal(t, types.IntentProblemSolving, plan.Intent)
	})

	t.Run("problem solving prefers high priorities", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login failure"})
		assert.Equal(t, PreferredPriorities, plan.PreferPriorities)
	})

	t.Run("caller priority is kept", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login failure", Filters: map[string]interface{}{"priority": "low"}})
		assert.Empty(t, plan.PreferPriorities)
		assert.Equal(t, "low", plan.Filters["priority"])
	})

	t.Run("filters are copied", func(t *testing.T) {
		filters := map[string]interface{}{"status": "open"}
		plan := Preprocess(types.SearchQuery{Text: "x", Filters: filters})
		plan.Filters["status"] = "closed"
		assert.Equal(t, "open", filters["status"])
	})

	t.Run("disabled expansion", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "x", DisableExpansion: true})
		assert.False(t, plan.Expand)
	})
}
