package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *SQLGraph {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "graph.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	g, err := Open(ctx, config.GraphConfig{Driver: "sql"}, st, nil)
	require.NoError(t, err)
	return g.(*SQLGraph)
}

func edge(source, target, relType string) *types.Relationship {
	return &types.Relationship{SourceID: source, TargetID: target, RelationshipType: relType}
}

func TestAddEdgeUpserts(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	created, err := g.AddEdge(ctx, edge("a", "b", "related_to"))
	require.NoError(t, err)
	assert.True(t, created)

	rel := edge("a", "b", "related_to")
	rel.Weight = 0.25
	created, err = g.AddEdge(ctx, rel)
	require.NoError(t, err)
	assert.False(t, created)

	edges, err := g.EdgesOf(ctx, "a", types.DirectionOut)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.25, edges[0].Weight)

	created, err = g.AddEdge(ctx, edge("a", "b", "resolved_by"))
	require.NoError(t, err)
	assert.True(t, created, "a different type is a different edge")
}

func TestAddEdgeDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdge(ctx, &types.Relationship{SourceID: "a", TargetID: "b"})
	assert.ErrorIs(t, err, types.ErrValidation)

	rel := edge("a", "ghost", "related_to")
	rel.Metadata = map[string]interface{}{"note": "target need not exist"}
	_, err = g.AddEdge(ctx, rel)
	require.NoError(t, err)

	edges, err := g.EdgesOf(ctx, "ghost", types.DirectionIn)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, types.DefaultRelationshipWeight, edges[0].Weight)
	assert.Equal(t, "target need not exist", edges[0].Metadata["note"])
}

func TestAddEdgesCountsNew(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdge(ctx, edge("a", "b", "related_to"))
	require.NoError(t, err)

	n, err := g.AddEdges(ctx, []*types.Relationship{
		edge("a", "b", "related_to"),
		edge("b", "c", "related_to"),
		edge("c", "d", "related_to"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEdgesOfDirections(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdges(ctx, []*types.Relationship{
		edge("x", "hub", "related_to"),
		edge("hub", "y", "related_to"),
		edge("hub", "z", "resolved_by"),
	})
	require.NoError(t, err)

	tests := []struct {
		dir  types.Direction
		want int
	}{
		{types.DirectionOut, 2},
		{types.DirectionIn, 1},
		{types.DirectionBoth, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			edges, err := g.EdgesOf(ctx, "hub", tt.dir)
			require.NoError(t, err)
			assert.Len(t, edges, tt.want)
		})
	}
}

func TestRemoveEdge(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdge(ctx, edge("a", "b", "related_to"))
	require.NoError(t, err)

	removed, err := g.RemoveEdge(ctx, "a", "b", "related_to")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = g.RemoveEdge(ctx, "a", "b", "related_to")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLGraphExpand(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdges(ctx, []*types.Relationship{
		edge("a", "b", "related_to"),
		edge("b", "c", "related_to"),
		edge("c", "a", "related_to"),
		edge("c", "d", "resolved_by"),
		edge("e", "a", "resolved_by"),
	})
	require.NoError(t, err)

	t.Run("depth zero", func(t *testing.T) {
		got, err := g.Expand(ctx, "a", &ExpandOptions{MaxDepth: 0})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("depth one follows both directions", func(t *testing.T) {
		got, err := g.Expand(ctx, "a", &ExpandOptions{MaxDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "e"}, got)
	})

	t.Run("depth two with cycle", func(t *testing.T) {
		got, err := g.Expand(ctx, "a", &ExpandOptions{MaxDepth: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "e", "d"}, got)
	})

	t.Run("type restriction", func(t *testing.T) {
		got, err := g.Expand(ctx, "a", &ExpandOptions{MaxDepth: 5, Types: []string{"related_to"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, got)
	})
}

func TestEdgesAmong(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdges(ctx, []*types.Relationship{
		edge("a", "b", "related_to"),
		edge("b", "c", "related_to"),
		edge("a", "outside", "related_to"),
	})
	require.NoError(t, err)

	edges, err := g.EdgesAmong(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	edges, err = g.EdgesAmong(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestQueriesSpanBatches(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	_, err := g.AddEdges(ctx, []*types.Relationship{
		edge("a", "b", "related_to"),
		edge("b", "c", "related_to"),
		edge("c", "d", "resolved_by"),
		edge("d", "e", "related_to"),
		edge("a", "outside", "related_to"),
	})
	require.NoError(t, err)

	ids := []string{"a", "b", "c", "d", "e"}
	wantEdges, err := g.EdgesAmong(ctx, ids)
	require.NoError(t, err)
	wantNeighbors, err := g.Neighbors(ctx, ids, nil)
	require.NoError(t, err)

	saved := idBatchSize
	idBatchSize = 2
	t.Cleanup(func() { idBatchSize = saved })

	edges, err := g.EdgesAmong(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, edges, 4)
	assert.Equal(t, wantEdges, edges)

	neighbors, err := g.Neighbors(ctx, ids, nil)
	require.NoError(t, err)
	for _, id := range ids {
		assert.ElementsMatch(t, wantNeighbors[id], neighbors[id], id)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, neighbors["b"])

	typed, err := g.Neighbors(ctx, ids, []string{"resolved_by"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, typed["c"])
	assert.Equal(t, []string{"c"}, typed["d"])
}
