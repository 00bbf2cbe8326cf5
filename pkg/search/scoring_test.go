package search

import (
	"math"
	"testing"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	knowledge := func(confidence float64) *types.Entity {
		return &types.Entity{ID: "k", Kind: types.KindKnowledge, Payload: &types.KnowledgePayload{ConfidenceScore: confidence}}
	}
	incident := func(status string) *types.Entity {
		return &types.Entity{ID: "i", Kind: types.KindIncident, Payload: &types.IncidentPayload{Status: status}}
	}

	tests := []struct {
		name       string
		entity     *types.Entity
		provenance Provenance
		want       float64
	}{
		{"generic primary", &types.Entity{Kind: types.KindGeneric}, ProvenancePrimary, 0.8},
		{"task expanded", &types.Entity{Kind: types.KindTask}, ProvenanceExpanded, 0.6},
		{"knowledge full confidence", knowledge(1), ProvenancePrimary, 0.8},
		{"knowledge half confidence", knowledge(0.5), ProvenanceExpanded, 0.3},
		{"knowledge without payload", &types.Entity{Kind: types.KindKnowledge}, ProvenancePrimary, 0.64},
		{"knowledge out of range clamps high", knowledge(5), ProvenancePrimary, 1},
		{"knowledge out of range clamps low", knowledge(-1), ProvenancePrimary, 0},
		{"resolved incident", incident(types.IncidentStatusResolved), ProvenancePrimary, 0.72},
		{"open incident", incident(types.IncidentStatusOpen), ProvenanceExpanded, 0.42},
		{"incident without payload", &types.Entity{Kind: types.KindIncident}, ProvenancePrimary, 0.56},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.entity, tt.provenance), 1e-9)
		})
	}
}

func TestScoreBounds(t *testing.T) {
	confidences := []float64{math.Inf(-1), -3, 0, 0.1, 0.8, 1, 1.5, math.Inf(1), math.NaN()}
	for _, c := range confidences {
		for _, p := range []Provenance{ProvenancePrimary, ProvenanceExpanded} {
			e := &types.Entity{Kind: types.KindKnowledge, Payload: &types.KnowledgePayload{ConfidenceScore: c}}
			s := Score(e, p)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestScoreAllPrefersPrimary(t *testing.T) {
	e := &types.Entity{ID: "x", Kind: types.KindGeneric}
	scores := ScoreAll([]*types.Entity{e}, []*types.Entity{e, {ID: "y", Kind: types.KindGeneric}})
	assert.InDelta(t, PrimaryBaseScore, scores["x"], 1e-9)
	assert.InDelta(t, ExpandedBaseScore, scores["y"], 1e-9)
}
