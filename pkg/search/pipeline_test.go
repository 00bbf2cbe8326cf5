package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *store.SQLStore
	graph *graph.SQLGraph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "search.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g := graph.NewSQLGraph(s.DB(), s.Dialect(), nil)
	require.NoError(t, g.Initialize(ctx))
	return &fixture{store: s, graph: g}
}

func (f *fixture) create(t *testing.T, e *types.Entity) *types.Entity {
	t.Helper()
	_, err := f.store.Create(context.Background(), e)
	require.NoError(t, err)
	return e
}

func (f *fixture) link(t *testing.T, from, to *types.Entity, relType string) {
	t.Helper()
	_, err := f.graph.AddEdge(context.Background(), &types.Relationship{SourceID: from.ID, TargetID: to.ID, RelationshipType: relType})
	require.NoError(t, err)
}

func TestMatchFilters(t *testing.T) {
	e := &types.Entity{
		Kind:     types.KindIncident,
		Metadata: map[string]interface{}{"priority": "High", "tags": []interface{}{"api", "edge"}, "retries": 3},
		Payload:  &types.IncidentPayload{Status: "open", AffectedSystems: []string{"api", "lb"}},
	}

	tests := []struct {
		name    string
		filters map[string]interface{}
		want    bool
	}{
		{"no filters", nil, true},
		{"scalar equality ignores case", map[string]interface{}{"priority": "high"}, true},
		{"scalar mismatch", map[string]interface{}{"priority": "low"}, false},
		{"list is any of", map[string]interface{}{"priority": []string{"low", "high"}}, true},
		{"list without match", map[string]interface{}{"priority": []interface{}{"low", "medium"}}, false},
		{"payload field", map[string]interface{}{"status": "open"}, true},
		{"list valued field", map[string]interface{}{"affected_systems": "lb"}, true},
		{"tags intersect", map[string]interface{}{"tags": []string{"db", "EDGE"}}, true},
		{"tags disjoint", map[string]interface{}{"tags": "db"}, false},
		{"numbers", map[string]interface{}{"retries": 3.0}, true},
		{"missing field", map[string]interface{}{"category": "network"}, false},
		{"conjunctive", map[string]interface{}{"priority": "high", "status": "resolved"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchFilters(e, tt.filters))
		})
	}
}

func TestPrimarySearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	low := f.create(t, &types.Entity{Kind: types.KindIncident, Title: "Login failure", Body: "token expired", Metadata: map[string]interface{}{"priority": "low"}})
	high := f.create(t, &types.Entity{Kind: types.KindIncident, Title: "Login failure in EU", Metadata: map[string]interface{}{"priority": "high", "category": "auth"}})
	knowledge := f.create(t, &types.Entity{Kind: types.KindKnowledge, Title: "Login failure runbook", Metadata: map[string]interface{}{"category": "auth"}})
	f.create(t, &types.Entity{Kind: types.KindGeneric, Title: "Login page redesign"})

	primary := NewPrimary(f.store, nil)

	t.Run("problem solving moves preferred priorities first", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login failure"}.WithDefaults(0, 0, 0))
		require.Equal(t, types.IntentProblemSolving, plan.Intent)

		got, err := primary.Search(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, []string{high.ID, low.ID, knowledge.ID}, entityIDs(got))
	})

	t.Run("post filters", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login", Filters: map[string]interface{}{"category": "auth"}}.WithDefaults(0, 0, 0))
		got, err := primary.Search(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, []string{high.ID, knowledge.ID}, entityIDs(got))
	})

	t.Run("kinds and limit", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login", Kinds: []types.EntityKind{types.KindIncident}, Limit: 1}.WithDefaults(0, 0, 0))
		got, err := primary.Search(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, []string{low.ID}, entityIDs(got))
	})

	t.Run("history lookup is newest first", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "login", Intent: types.IntentHistoryLookup}.WithDefaults(0, 0, 0))
		got, err := primary.Search(ctx, plan)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, low.ID, got[3].ID)
	})

	t.Run("empty text", func(t *testing.T) {
		got, err := primary.Search(ctx, Preprocess(types.SearchQuery{}))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestExpander(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.create(t, &types.Entity{ID: "a", Kind: types.KindIncident, Title: "a"})
	b := f.create(t, &types.Entity{ID: "b", Kind: types.KindKnowledge, Title: "b"})
	c := f.create(t, &types.Entity{ID: "c", Kind: types.KindGeneric, Title: "c"})
	d := f.create(t, &types.Entity{ID: "d", Kind: types.KindGeneric, Title: "d"})
	e := f.create(t, &types.Entity{ID: "e", Kind: types.KindGeneric, Title: "e"})

	f.link(t, a, b, types.RelationshipResolvedBy)
	f.link(t, b, c, types.RelationshipRelatedTo)
	f.link(t, c, d, types.RelationshipRelatedTo)
	f.link(t, e, a, types.RelationshipRelatedTo)
	_, err := f.graph.AddEdge(ctx, &types.Relationship{SourceID: a.ID, TargetID: "deleted", RelationshipType: types.RelationshipRelatedTo})
	require.NoError(t, err)

	x := NewExpander(f.graph, f.store, 2, nil)

	t.Run("dedups against primary and across seeds", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "x", MaxDepth: 2})
		got, err := x.Expand(ctx, []*types.Entity{a, c}, plan)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, e.ID, d.ID}, entityIDs(got))
	})

	t.Run("type restriction", func(t *testing.T) {
		plan := Preprocess(types.SearchQuery{Text: "x", MaxDepth: 3, RelationshipTypes: []string{types.RelationshipResolvedBy}})
		got, err := x.Expand(ctx, []*types.Entity{a}, plan)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, entityIDs(got))
	})

	t.Run("zero depth", func(t *testing.T) {
		got, err := x.Expand(ctx, []*types.Entity{a}, &Plan{MaxDepth: 0})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("relationships among results", func(t *testing.T) {
		rels, err := x.Relationships(ctx, []*types.Entity{a}, []*types.Entity{b, c})
		require.NoError(t, err)
		require.Len(t, rels, 2)
		assert.Equal(t, types.RelationshipResolvedBy, rels[0].RelationshipType)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := x.Expand(canceled, []*types.Entity{a}, &Plan{MaxDepth: 1})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func entityIDs(entities []*types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}
