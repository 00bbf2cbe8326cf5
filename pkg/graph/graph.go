package graph

import (
	"context"

	"github.com/soundprediction/recall/pkg/types"
)

// Graph is the relationship store interface.
type Graph interface {
	// AddEdge upserts rel on (source, target, type) and reports whether a
	// new edge was created.
	AddEdge(ctx context.Context, rel *types.Relationship) (bool, error)

	// AddEdges upserts rels atomically and returns how many were new.
	AddEdges(ctx context.Context, rels []*types.Relationship) (int, error)

	// RemoveEdge deletes one edge and reports whether it existed.
	RemoveEdge(ctx context.Context, sourceID, targetID, relType string) (bool, error)

	// EdgesOf returns the edges touching id in the given direction.
	EdgesOf(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error)

	// EdgesAmong returns the edges whose endpoints are both in ids.
	EdgesAmong(ctx context.Context, ids []string) ([]*types.Relationship, error)

	// Neighbors returns, for every id, the ids adjacent to it in either
	// direction, optionally restricted to relTypes.
	Neighbors(ctx context.Context, ids []string, relTypes []string) (map[string][]string, error)

	// Expand returns the ids reachable from seed within opts.MaxDepth hops.
	Expand(ctx context.Context, seed string, opts *ExpandOptions) ([]string, error)

	Close() error
}

// ExpandOptions bounds an expansion.
type ExpandOptions struct {
	// Types restricts the relationship types followed. Empty follows all.
	Types []string

	// MaxDepth is the maximum number of hops. Zero returns nothing.
	MaxDepth int
}
