package graph

import (
	"context"
	"sort"
)

// NeighborFunc returns the adjacency of every id in frontier.
type NeighborFunc func(ctx context.Context, frontier []string) (map[string][]string, error)

// BreadthFirst walks the graph level by level from seed, calling neighbors
// once per level. It returns every reached id except seed, each once, in
// level order. Within a level, ids follow the frontier order and each
// adjacency list is visited sorted.
func BreadthFirst(ctx context.Context, seed string, maxDepth int, neighbors NeighborFunc) ([]string, error) {
	if maxDepth <= 0 || seed == "" {
		return []string{}, nil
	}

	visited := map[string]bool{seed: true}
	frontier := []string{seed}
	out := []string{}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		adjacency, err := neighbors(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			adj := append([]string(nil), adjacency[id]...)
			sort.Strings(adj)
			for _, n := range adj {
				if visited[n] {
					continue
				}
				visited[n] = true
				next = append(next, n)
				out = append(out, n)
			}
		}
		frontier = next
	}

	return out, nil
}
