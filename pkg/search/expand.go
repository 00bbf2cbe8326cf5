package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

// Expander runs the relationship expansion stage.
type Expander struct {
	graph   graph.Graph
	store   store.Store
	workers int
	logger  *slog.Logger
}

// NewExpander creates an expansion stage. Seeds are expanded concurrently by
// up to workers goroutines.
func NewExpander(g graph.Graph, s store.Store, workers int, logger *slog.Logger) *Expander {
	if workers <= 0 {
		workers = utils.GetWorkerLimit()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{graph: g, store: s, workers: workers, logger: logger}
}

// Expand returns the entities reachable from the primary results within
// plan.MaxDepth hops. Ids already in primary and ids reached from several
// seeds appear once, in seed order and then breadth-first order. Edges may
// point at deleted entities; those ids are dropped by the batch lookup.
func (x *Expander) Expand(ctx context.Context, primary []*types.Entity, plan *Plan) ([]*types.Entity, error) {
	if len(primary) == 0 || plan.MaxDepth <= 0 {
		return []*types.Entity{}, nil
	}

	seeds := make([]string, len(primary))
	seen := make(map[string]bool, len(primary))
	for i, e := range primary {
		seeds[i] = e.ID
		seen[e.ID] = true
	}

	opts := &graph.ExpandOptions{Types: plan.RelationshipTypes, MaxDepth: plan.MaxDepth}
	pool := utils.NewWorkerPool(x.workers, func(ctx context.Context, seed string) ([]string, error) {
		return x.graph.Expand(ctx, seed, opts)
	})
	reached, errs := pool.ProcessItems(ctx, seeds)
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", seeds[i], err)
		}
	}

	var ids []string
	for _, list := range reached {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return []*types.Entity{}, nil
	}

	related, err := x.store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load related entities: %w", err)
	}

	x.logger.Debug("Relationship expansion complete",
		"seeds", len(seeds), "reached", len(ids), "loaded", len(related))
	return related, nil
}

// Relationships returns the edges among the given entities.
func (x *Expander) Relationships(ctx context.Context, entities ...[]*types.Entity) ([]*types.Relationship, error) {
	var ids []string
	for _, list := range entities {
		for _, e := range list {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return []*types.Relationship{}, nil
	}
	rels, err := x.graph.EdgesAmong(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	return rels, nil
}
