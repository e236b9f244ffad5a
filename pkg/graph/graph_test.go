package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

func dirEdge(from, to string) Edge {
	return Edge{From: from, To: to, Directed: true}
}

func wEdge(from, to string, w float64) Edge {
	return Edge{From: from, To: to, Props: Props{"weight": w}}
}

// project is the four-task network A -> {B, C} -> D.
func project() *Network {
	return New([]Edge{
		dirEdge("A", "B"),
		dirEdge("A", "C"),
		dirEdge("B", "D"),
		dirEdge("C", "D"),
	}, map[string]Props{
		"A": {"duration": 3},
		"B": {"duration": 2},
		"C": {"duration": 4},
		"D": {"duration": 1},
	})
}

func TestNewCollectsEndpoints(t *testing.T) {
	n := New([]Edge{dirEdge("x", "y")}, map[string]Props{"z": nil})
	assert.Equal(t, []string{"x", "y", "z"}, n.IDs())
	assert.NotNil(t, n.Nodes["z"])
}

func TestTopologicalSort(t *testing.T) {
	order, err := project().TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)

	t.Run("ties broken by id", func(t *testing.T) {
		n := New([]Edge{dirEdge("b", "z"), dirEdge("a", "z"), dirEdge("c", "y")}, nil)
		order, err := n.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "y", "z"}, order)
	})

	t.Run("self loop", func(t *testing.T) {
		n := New([]Edge{dirEdge("A", "B"), dirEdge("B", "B")}, nil)
		_, err := n.TopologicalSort()
		require.ErrorIs(t, err, ErrCycle)
		assert.True(t, n.HasCycle())
	})
}

func TestCycleDetection(t *testing.T) {
	n := New([]Edge{dirEdge("A", "B"), dirEdge("B", "C"), dirEdge("C", "A")}, nil)
	assert.True(t, n.HasCycle())

	_, err := n.TopologicalSort()
	require.ErrorIs(t, err, ErrCycle)
	require.ErrorIs(t, err, ErrValidation)

	cycle := n.FindCycle()
	require.NotEmpty(t, cycle)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.Len(t, cycle, 4)

	t.Run("self loop", func(t *testing.T) {
		n := New([]Edge{dirEdge("A", "A")}, nil)
		assert.Equal(t, []string{"A", "A"}, n.FindCycle())
	})

	t.Run("undirected", func(t *testing.T) {
		tree := New([]Edge{wEdge("A", "B", 1), wEdge("B", "C", 1)}, nil)
		assert.False(t, tree.HasCycle())
		loop := New([]Edge{wEdge("A", "B", 1), wEdge("B", "C", 1), wEdge("C", "A", 1)}, nil)
		assert.True(t, loop.HasCycle())
	})

	assert.False(t, project().HasCycle())
	assert.Nil(t, project().FindCycle())
}

func TestNeighborsAndDegree(t *testing.T) {
	n := project()
	succ, err := n.Neighbors("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, succ)

	deg, err := n.Degree("D")
	require.NoError(t, err)
	assert.Equal(t, 2, deg)

	_, err = n.Neighbors("nope")
	require.ErrorIs(t, err, ErrValidation)
}

func TestTraversal(t *testing.T) {
	n := New([]Edge{
		wEdge("A", "B", 1),
		wEdge("A", "C", 4),
		wEdge("B", "C", 2),
		wEdge("C", "D", 1),
		wEdge("E", "F", 1),
	}, nil)

	bfs, err := n.BFS("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, bfs)

	dfs, err := n.DFS("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, dfs)

	hops, found, err := n.BFSPath("A", "D")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"A", "C", "D"}, hops)

	route, dist, found, err := n.ShortestPath("A", "D")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"A", "B", "C", "D"}, route)
	assert.InDelta(t, 4.0, dist, 1e-9)

	_, dist, found, err = n.ShortestPath("A", "F")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, math.IsInf(dist, 1))

	assert.Equal(t, [][]string{{"A", "B", "C", "D"}, {"E", "F"}}, n.ConnectedComponents())
	assert.False(t, n.IsConnected())
}

func TestShortestPathRejectsNegativeWeights(t *testing.T) {
	n := New([]Edge{wEdge("A", "B", -1)}, nil)
	_, _, _, err := n.ShortestPath("A", "B")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCPM(t *testing.T) {
	n := project()
	require.NoError(t, n.ForwardPass())

	for id, want := range map[string][2]float64{
		"A": {0, 3},
		"B": {3, 5},
		"C": {3, 7},
		"D": {7, 8},
	} {
		assert.Equal(t, want[0], n.Nodes[id][PropES], "ES of %s", id)
		assert.Equal(t, want[1], n.Nodes[id][PropEF], "EF of %s", id)
	}

	require.NoError(t, n.CalculateSlack())
	assert.Equal(t, 2.0, n.Nodes["B"][PropSlack])
	assert.Equal(t, 5.0, n.Nodes["B"][PropLS])
	assert.Equal(t, 0.0, n.Nodes["A"][PropLS])

	path, err := n.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, path)

	total, err := n.ProjectDuration()
	require.NoError(t, err)
	assert.Equal(t, 8.0, total)

	pd, err := n.PathDuration(path)
	require.NoError(t, err)
	assert.Equal(t, total, pd)
}

func TestCPMRunsPassesOnDemand(t *testing.T) {
	n := project()
	path, err := n.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, path)
	assert.Contains(t, n.Nodes["A"], PropSlack)
}

func TestAllCriticalPaths(t *testing.T) {
	n := project()
	n.Nodes["B"]["duration"] = 4
	paths, err := n.AllCriticalPaths()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B", "D"}, {"A", "C", "D"}}, paths)
}

func TestCPMValidation(t *testing.T) {
	n := project()
	delete(n.Nodes["C"], "duration")
	err := n.ForwardPass()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `"C"`)

	cyclic := New([]Edge{dirEdge("A", "B"), dirEdge("B", "A")}, map[string]Props{
		"A": {"duration": 1},
		"B": {"duration": 1},
	})
	require.ErrorIs(t, cyclic.ForwardPass(), ErrCycle)
}

func TestPERT(t *testing.T) {
	te, err := ExpectedTime(2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3.0, te)

	v, err := TaskVariance(2, 4, 6)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/9, v, 1e-12)

	_, err = ExpectedTime(5, 3, 4)
	require.ErrorIs(t, err, ErrValidation)
	_, err = ExpectedTime(-1, 3, 4)
	require.ErrorIs(t, err, ErrValidation)

	n := New([]Edge{
		dirEdge("A", "B"),
		dirEdge("A", "C"),
		dirEdge("B", "D"),
		dirEdge("C", "D"),
	}, map[string]Props{
		"A": {"op": 2, "mo": 3, "pe": 4},
		"B": {"op": 1, "mo": 2, "pe": 3},
		"C": {"op": 2, "mo": 4, "pe": 6},
		"D": {"op": 1, "mo": 1, "pe": 1},
	})

	variance, err := n.ProjectVariance()
	require.NoError(t, err)
	assert.InDelta(t, 5.0/9, variance, 1e-12)

	p, err := n.CompletionProbability(8)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)

	p, err = n.CompletionProbability(8 + math.Sqrt(5.0/9))
	require.NoError(t, err)
	assert.InDelta(t, 0.8413, p, 1e-4)

	at, err := n.TimeForProbability(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, at, 1e-9)

	_, err = n.TimeForProbability(1.5)
	require.ErrorIs(t, err, ErrValidation)

	a, err := n.Analyze()
	require.NoError(t, err)
	assert.True(t, a.Probabilistic)
	assert.Equal(t, []string{"A", "C", "D"}, a.CriticalPath)
	assert.InDelta(t, 8.0, a.Duration, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/9), a.StdDev, 1e-12)
	assert.NotContains(t, n.Nodes["A"], PropES, "Analyze works on a copy")
}

func TestPERTDeterministicStep(t *testing.T) {
	n := New(nil, map[string]Props{"A": {"op": 2, "mo": 2, "pe": 2}})
	p, err := n.CompletionProbability(1.9)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
	p, err = n.CompletionProbability(2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func mstNetwork() *Network {
	return New([]Edge{
		wEdge("A", "B", 1),
		wEdge("B", "C", 2),
		wEdge("A", "C", 3),
		wEdge("C", "D", 1),
		wEdge("B", "D", 5),
	}, nil)
}

// referenceMST computes the minimum spanning tree weight with gonum.
func referenceMST(t *testing.T, n *Network) float64 {
	t.Helper()
	ids := n.IDs()
	index := map[string]int64{}
	src := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i, id := range ids {
		index[id] = int64(i)
		src.AddNode(simple.Node(i))
	}
	for _, e := range n.Edges {
		w, _ := e.Weight()
		src.SetWeightedEdge(src.NewWeightedEdge(simple.Node(index[e.From]), simple.Node(index[e.To]), w))
	}
	dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	return path.Kruskal(dst, src)
}

func TestMST(t *testing.T) {
	n := mstNetwork()
	want := referenceMST(t, n)
	assert.Equal(t, 4.0, want)

	k, err := n.Kruskal()
	require.NoError(t, err)
	assert.Equal(t, want, k.TotalWeight)
	assert.Len(t, k.Edges, 3)

	p, err := n.Prim("A")
	require.NoError(t, err)
	assert.Equal(t, want, p.TotalWeight)
	assert.Len(t, p.Edges, 3)

	t.Run("parallel edges and self loops", func(t *testing.T) {
		n := New([]Edge{
			wEdge("A", "B", 7),
			wEdge("A", "B", 2),
			wEdge("B", "B", 0),
			wEdge("B", "C", 3),
		}, nil)
		k, err := n.Kruskal()
		require.NoError(t, err)
		assert.Equal(t, 5.0, k.TotalWeight)
		require.Len(t, k.Edges, 2)
		w, _ := k.Edges[0].Weight()
		assert.Equal(t, 2.0, w)
	})

	t.Run("forest", func(t *testing.T) {
		n := New([]Edge{wEdge("A", "B", 1), wEdge("C", "D", 4), wEdge("D", "E", 2)}, nil)
		k, err := n.Kruskal()
		require.NoError(t, err)
		assert.Equal(t, 7.0, k.TotalWeight)
		assert.Len(t, k.Edges, 3)

		p, err := n.Prim("D")
		require.NoError(t, err)
		assert.Equal(t, 6.0, p.TotalWeight)
		assert.Len(t, p.Edges, 2)
	})

	t.Run("directed rejected", func(t *testing.T) {
		_, err := project().Kruskal()
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing weight rejected", func(t *testing.T) {
		n := New([]Edge{{From: "A", To: "B"}}, nil)
		_, err := n.Prim("A")
		require.ErrorIs(t, err, ErrValidation)
	})
}
