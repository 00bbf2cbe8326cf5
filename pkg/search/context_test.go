package search

import (
	"strings"
	"testing"
	"time"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(id string, kind types.EntityKind, title string) *types.Entity {
	e := &types.Entity{ID: id, Kind: kind, Title: title}
	e.ApplyDefaults()
	return e
}

func titles(entities []*types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Title
	}
	return out
}

func TestOrderForIntent(t *testing.T) {
	k1 := entity("k1", types.KindKnowledge, "k1")
	k1.Payload.(*types.KnowledgePayload).ConfidenceScore = 0.5
	k2 := entity("k2", types.KindKnowledge, "k2")
	k2.Payload.(*types.KnowledgePayload).ConfidenceScore = 0.9
	inc := entity("i", types.KindIncident, "i")
	task := entity("t", types.KindTask, "t")

	primary := []*types.Entity{task, k1}
	related := []*types.Entity{inc, k2}

	assert.Equal(t, []string{"i", "k1", "k2", "t"}, titles(OrderForIntent(primary, related, types.IntentProblemSolving)))
	assert.Equal(t, []string{"k2", "k1", "t", "i"}, titles(OrderForIntent(primary, related, types.IntentKnowledgeAcquisition)))
	assert.Equal(t, []string{"t", "k1", "i", "k2"}, titles(OrderForIntent(primary, related, types.IntentGeneral)))
	assert.Equal(t, []string{"t", "k1", "i", "k2"}, titles(OrderForIntent(primary, related, types.IntentHistoryLookup)))
}

func TestRenderEntity(t *testing.T) {
	e := &types.Entity{
		ID: "i", Kind: types.KindIncident, Title: "API timeout", Body: "gateway returned 504",
		Metadata:  map[string]interface{}{"tags": []string{"api", "gateway"}},
		Payload:   &types.IncidentPayload{Severity: "high", Status: "open", AffectedSystems: []string{"api", "lb"}},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	block := RenderEntity(e)
	assert.True(t, strings.HasPrefix(block, "## API timeout\nKind: incident\ngateway returned 504"))
	assert.Contains(t, block, "Severity: high")
	assert.Contains(t, block, "Affected systems: api, lb")
	assert.Contains(t, block, "Tags: api, gateway")
	assert.Contains(t, block, "Created: 2026-03-01")
	assert.NotContains(t, block, "Root cause")
}

func TestAssembleContextBudget(t *testing.T) {
	var primary []*types.Entity
	for i := 0; i < 20; i++ {
		e := entity("e", types.KindGeneric, "entry")
		e.Body = strings.Repeat("ä", 37*i%101)
		primary = append(primary, e)
	}
	rels := []*types.Relationship{{RelationshipType: "related_to"}}

	for budget := 1; budget <= 3000; budget += 37 {
		ctx := AssembleContext(primary, nil, rels, types.IntentGeneral, budget)
		require.LessOrEqual(t, utils.RuneLen(ctx), budget, "budget %d", budget)
	}
}

func TestAssembleContextStopsAtFirstOverflow(t *testing.T) {
	small1 := entity("a", types.KindGeneric, "first")
	big := entity("b", types.KindGeneric, "second")
	big.Body = strings.Repeat("x", 500)
	small2 := entity("c", types.KindGeneric, "third")

	budget := utils.RuneLen(RenderEntity(small1)) + utils.RuneLen(RenderEntity(small2)) + 10
	ctx := AssembleContext([]*types.Entity{small1, big, small2}, nil, nil, types.IntentGeneral, budget)

	assert.Equal(t, RenderEntity(small1), ctx)
	assert.NotContains(t, ctx, "third")
}

func TestAssembleContextRelationshipSummary(t *testing.T) {
	rels := []*types.Relationship{
		{RelationshipType: types.RelationshipRelatedTo},
		{RelationshipType: types.RelationshipResolvedBy},
		{RelationshipType: types.RelationshipRelatedTo},
	}
	e := entity("a", types.KindGeneric, "only")

	ctx := AssembleContext([]*types.Entity{e}, nil, rels, types.IntentGeneral, 1000)
	assert.True(t, strings.HasSuffix(ctx, "\n\nRelationships: related_to (2), resolved_by (1)"))

	tight := AssembleContext([]*types.Entity{e}, nil, rels, types.IntentGeneral, utils.RuneLen(RenderEntity(e)))
	assert.Equal(t, RenderEntity(e), tight)
}

func TestFailureContext(t *testing.T) {
	msg := FailureContext("db down", assert.AnError, 1000)
	assert.Contains(t, msg, "db down")
	assert.Contains(t, msg, assert.AnError.Error())
	assert.Equal(t, 20, utils.RuneLen(FailureContext("db down", assert.AnError, 20)))
}
