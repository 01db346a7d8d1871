package graph_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/graph"
	"github.com/stretchr/testify/require"
)

func TestBellmanFordShortestPath(t *testing.T) {
	g := graph.New(true)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.AddEdge(0, 2, 5)

	dist, prev, err := g.BellmanFord(0)
	require.NoError(t, err)
	require.Equal(t, float64(0), dist[0])
	require.Equal(t, float64(1), dist[1])
	require.Equal(t, float64(2), dist[2])

	path, ok := graph.Path(prev, 0, 2)
	require.True(t, ok)
	require.Equal(t, []int{0, 1, 2}, path)
}

func TestBellmanFordUnreachable(t *testing.T) {
	g := graph.New(true)
	g.AddNode(0)
	g.AddNode(1)
	dist, _, err := g.BellmanFord(0)
	require.NoError(t, err)
	_, reachable := dist[1]
	require.False(t, reachable)
}

func TestBellmanFordNegativeCycle(t *testing.T) {
	g := graph.New(true)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, -3)
	g.AddEdge(2, 1, 1)
	_, _, err := g.BellmanFord(0)
	require.ErrorIs(t, err, graph.ErrNegativeCycle)
}

func TestUndirectedMirrorsEdges(t *testing.T) {
	g := graph.New(false)
	g.AddEdge(0, 1, 2.5)
	require.True(t, g.HasEdge(0, 1))
	require.True(t, g.HasEdge(1, 0))
}
