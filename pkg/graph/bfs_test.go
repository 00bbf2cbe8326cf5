package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adjacency builds an undirected NeighborFunc from directed edges.
func adjacency(edges [][2]string) NeighborFunc {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	return func(ctx context.Context, frontier []string) (map[string][]string, error) {
		out := make(map[string][]string)
		for _, id := range frontier {
			out[id] = adj[id]
		}
		return out, nil
	}
}

func TestBreadthFirstTerminatesOnCycles(t *testing.T) {
	cycle := adjacency([][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "c"}})

	got, err := BreadthFirst(context.Background(), "a", 10, cycle)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, got)
	assert.NotContains(t, got, "a")
}

func TestBreadthFirstDepthBound(t *testing.T) {
	// chain n0 - n1 - ... - n9
	var edges [][2]string
	for i := 0; i < 9; i++ {
		edges = append(edges, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1)})
	}
	chain := adjacency(edges)

	for depth := 0; depth <= 4; depth++ {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			got, err := BreadthFirst(context.Background(), "n0", depth, chain)
			require.NoError(t, err)
			assert.Len(t, got, depth)
			for i, id := range got {
				assert.Equal(t, fmt.Sprintf("n%d", i+1), id)
			}
		})
	}
}

func TestBreadthFirstFollowsBothDirections(t *testing.T) {
	g := adjacency([][2]string{{"parent", "seed"}, {"seed", "child"}})

	got, err := BreadthFirst(context.Background(), "seed", 1, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "parent"}, got)
}

func TestBreadthFirstPropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	_, err := BreadthFirst(context.Background(), "a", 2, func(ctx context.Context, frontier []string) (map[string][]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBreadthFirstIsolatedSeed(t *testing.T) {
	got, err := BreadthFirst(context.Background(), "alone", 3, adjacency(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}
