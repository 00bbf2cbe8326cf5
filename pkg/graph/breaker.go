package graph

import (
	"context"
	"log/slog"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/recall/pkg/alert"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// BreakerGraph wraps a Graph with circuit breaking logic
type BreakerGraph struct {
	graph Graph
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerGraph creates a new circuit breaker graph
func NewBreakerGraph(g Graph, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *BreakerGraph {
	return &BreakerGraph{
		graph: g,
		cb:    gobreaker.NewCircuitBreaker(store.NewBreakerSettings("relationship-graph", cfg, alerter, logger)),
	}
}

func (b *BreakerGraph) AddEdge(ctx context.Context, rel *types.Relationship) (bool, error) {
	return store.Execute(b.cb, "add_edge", func() (bool, error) { return b.graph.AddEdge(ctx, rel) })
}

func (b *BreakerGraph) AddEdges(ctx context.Context, rels []*types.Relationship) (int, error) {
	return store.Execute(b.cb, "add_edges", func() (int, error) { return b.graph.AddEdges(ctx, rels) })
}

func (b *BreakerGraph) RemoveEdge(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	return store.Execute(b.cb, "remove_edge", func() (bool, error) { return b.graph.RemoveEdge(ctx, sourceID, targetID, relType) })
}

func (b *BreakerGraph) EdgesOf(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error) {
	return store.Execute(b.cb, "edges_of", func() ([]*types.Relationship, error) { return b.graph.EdgesOf(ctx, id, dir) })
}

func (b *BreakerGraph) EdgesAmong(ctx context.Context, ids []string) ([]*types.Relationship, error) {
	return store.Execute(b.cb, "edges_among", func() ([]*types.Relationship, error) { return b.graph.EdgesAmong(ctx, ids) })
}

func (b *BreakerGraph) Neighbors(ctx context.Context, ids []string, relTypes []string) (map[string][]string, error) {
	return store.Execute(b.cb, "neighbors", func() (map[string][]string, error) { return b.graph.Neighbors(ctx, ids, relTypes) })
}

// Expand runs the breadth-first walk here so that every level goes through
// the breaker.
func (b *BreakerGraph) Expand(ctx context.Context, seed string, opts *ExpandOptions) ([]string, error) {
	if opts == nil {
		opts = &ExpandOptions{MaxDepth: types.DefaultMaxDepth}
	}
	return BreadthFirst(ctx, seed, opts.MaxDepth, func(ctx context.Context, frontier []string) (map[string][]string, error) {
		return b.Neighbors(ctx, frontier, opts.Types)
	})
}

func (b *BreakerGraph) Close() error {
	return b.graph.Close()
}
