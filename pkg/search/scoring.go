package search

import (
	"math"

	"github.com/soundprediction/recall/pkg/types"
)

// Provenance records which stage produced a result.
type Provenance int

const (
	ProvenancePrimary Provenance = iota
	ProvenanceExpanded
)

// Base scores per provenance.
const (
	PrimaryBaseScore  = 0.8
	ExpandedBaseScore = 0.6

	ResolvedIncidentFactor   = 0.9
	UnresolvedIncidentFactor = 0.7
)

// Score rates e on [0,1]. Knowledge scales by its confidence and incidents
// by whether they are resolved.
func Score(e *types.Entity, provenance Provenance) float64 {
	score := PrimaryBaseScore
	if provenance == ProvenanceExpanded {
		score = ExpandedBaseScore
	}

	switch e.Kind {
	case types.KindKnowledge:
		if k, ok := e.Knowledge(); ok {
			score *= k.ConfidenceScore
		} else {
			score *= types.DefaultConfidenceScore
		}
	case types.KindIncident:
		if inc, ok := e.Incident(); ok && inc.Resolved() {
			score *= ResolvedIncidentFactor
		} else {
			score *= UnresolvedIncidentFactor
		}
	}
	return clamp(score)
}

// ScoreAll scores every result by id. An entity present in both lists keeps
// its primary score.
func ScoreAll(primary, related []*types.Entity) map[string]float64 {
	scores := make(map[string]float64, len(primary)+len(related))
	for _, e := range related {
		scores[e.ID] = Score(e, ProvenanceExpanded)
	}
	for _, e := range primary {
		scores[e.ID] = Score(e, ProvenancePrimary)
	}
	return scores
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
