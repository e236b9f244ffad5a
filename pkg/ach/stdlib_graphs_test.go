package ach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsOf(t *testing.T, v Value) []string {
	t.Helper()
	vec, ok := Deref(v).(VectorValue)
	require.True(t, ok, "expected vector, got %s", v)
	out := make([]string, len(vec.Elements))
	for k, e := range vec.Elements {
		s, ok := Deref(e).(StringValue)
		require.True(t, ok, "expected string, got %s", e)
		out[k] = s.Val
	}
	return out
}

// projectNetwork is A(3) → B(2), A → C(4), B → D(1), C → D.
func projectNetwork() Node {
	return call("network",
		array(edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D")),
		record(
			"A", record("duration", num(3), "owner", str("ops")),
			"B", record("duration", num(2)),
			"C", record("duration", num(4)),
			"D", record("duration", num(1)),
		),
	)
}

func TestCriticalPathMethod(t *testing.T) {
	i := NewInterpreter()
	run(t, i, let("net", projectNetwork()))

	fwd := run(t, i, call("forward_pass", ref("net")))
	nodes := fieldOf(t, fwd, "nodes")
	for id, want := range map[string][2]float64{
		"A": {0, 3},
		"B": {3, 5},
		"C": {3, 7},
		"D": {7, 8},
	} {
		node := fieldOf(t, nodes, id)
		assert.Equal(t, want[0], number(t, fieldOf(t, node, "ES")), "ES of %s", id)
		assert.Equal(t, want[1], number(t, fieldOf(t, node, "EF")), "EF of %s", id)
	}
	assert.Equal(t, StringValue{Val: "ops"}, fieldOf(t, fieldOf(t, nodes, "A"), "owner"))

	slack := fieldOf(t, run(t, i, call("calculate_slack", ref("net"))), "nodes")
	assert.Equal(t, 2.0, number(t, fieldOf(t, fieldOf(t, slack, "B"), "slack")))
	assert.Equal(t, 0.0, number(t, fieldOf(t, fieldOf(t, slack, "C"), "slack")))

	assert.Equal(t, []string{"A", "C", "D"}, stringsOf(t, run(t, i, call("critical_path", ref("net")))))
	assert.Equal(t, 8.0, number(t, run(t, i, call("project_duration", ref("net")))))

	paths := run(t, i, call("all_critical_paths", ref("net")))
	require.Len(t, paths.(VectorValue).Elements, 1)

	// the input network is left untouched
	orig := fieldOf(t, fieldOf(t, run(t, i, ref("net")), "nodes"), "B")
	_, has := orig.(RecordValue).Get("ES")
	assert.False(t, has)
}

func TestPertAnalysis(t *testing.T) {
	net := call("network",
		array(edge("A", "B")),
		record(
			"A", record("op", num(1), "mo", num(2), "pe", num(9)),
			"B", record("op", num(2), "mo", num(3), "pe", num(4)),
		),
	)
	i := NewInterpreter()
	run(t, i, let("net", net))

	assert.InDelta(t, 3, number(t, run(t, i, call("expected_time", num(1), num(2), num(9)))), 1e-12)
	assert.InDelta(t, 3, number(t, run(t, i, call("expected_time", record("op", num(1), "mo", num(2), "pe", num(9))))), 1e-12)
	assert.InDelta(t, 16.0/9, number(t, run(t, i, call("task_variance", num(1), num(2), num(9)))), 1e-12)

	variance := 16.0/9 + 4.0/36
	assert.InDelta(t, variance, number(t, run(t, i, call("project_variance", ref("net")))), 1e-9)

	a := run(t, i, call("pert_analysis", ref("net")))
	assert.InDelta(t, 6, number(t, fieldOf(t, a, "duration")), 1e-9)
	assert.Equal(t, []string{"A", "B"}, stringsOf(t, fieldOf(t, a, "critical_path")))
	assert.InDelta(t, variance, number(t, fieldOf(t, a, "variance")), 1e-9)

	assert.InDelta(t, 0.5, number(t, run(t, i, call("completion_probability", ref("net"), num(6)))), 1e-9)
	assert.InDelta(t, 6, number(t, run(t, i, call("time_for_probability", ref("net"), num(0.5)))), 1e-6)
}

func TestPertAnalysisWithoutEstimates(t *testing.T) {
	a := eval(t, call("pert_analysis", projectNetwork()))
	assert.Equal(t, 8.0, number(t, fieldOf(t, a, "duration")))
	_, ok := a.(RecordValue).Get("variance")
	assert.False(t, ok)
}

func TestCyclicProjectIsRejected(t *testing.T) {
	net := call("network",
		array(edge("A", "B"), edge("B", "A")),
		record("A", record("duration", num(1)), "B", record("duration", num(1))),
	)
	err := runErr(t, NewInterpreter(), call("forward_pass", net))
	assert.Equal(t, KindValidationError, ErrorKind(err))
}

func TestGraphTraversal(t *testing.T) {
	i := NewInterpreter()
	run(t, i, let("g", call("network", array(
		wedge("A", "B", 1),
		wedge("B", "C", 2),
		wedge("A", "C", 5),
		wedge("C", "D", 1),
	))))

	assert.Equal(t, []string{"A", "B", "C", "D"}, stringsOf(t, run(t, i, call("nodes", ref("g")))))
	assert.Equal(t, []string{"B", "C"}, stringsOf(t, run(t, i, call("neighbors", ref("g"), str("A")))))
	assert.Equal(t, 3.0, number(t, run(t, i, call("degree", ref("g"), str("C")))))
	assert.Equal(t, "A", stringsOf(t, run(t, i, call("bfs", ref("g"), str("A"))))[0])
	assert.Len(t, stringsOf(t, run(t, i, call("dfs", ref("g"), str("A")))), 4)

	p := run(t, i, call("bfs_path", ref("g"), str("A"), str("D")))
	assert.Equal(t, BoolValue{Val: true}, fieldOf(t, p, "found"))
	assert.Equal(t, []string{"A", "C", "D"}, stringsOf(t, fieldOf(t, p, "path")))

	d := run(t, i, call("dijkstra", ref("g"), str("A"), str("D")))
	assert.Equal(t, []string{"A", "B", "C", "D"}, stringsOf(t, fieldOf(t, d, "path")))
	assert.Equal(t, 4.0, number(t, fieldOf(t, d, "distance")))

	assert.Equal(t, BoolValue{Val: true}, run(t, i, call("is_connected", ref("g"))))

	for _, algo := range []Node{call("kruskal", ref("g")), call("prim", ref("g")), call("prim", ref("g"), str("D"))} {
		tree := run(t, i, algo)
		assert.Equal(t, 4.0, number(t, fieldOf(t, tree, "total_weight")))
		assert.Len(t, fieldOf(t, tree, "edges").(VectorValue).Elements, 3)
	}
}

func TestDirectedGraphQueries(t *testing.T) {
	i := NewInterpreter()
	run(t, i,
		let("dag", call("network", array(edge("a", "b"), edge("b", "c"), edge("x", "y")))),
		let("loop", call("network", array(edge("a", "b"), edge("b", "a")))),
	)

	assert.Equal(t, BoolValue{Val: false}, run(t, i, call("has_cycle", ref("dag"))))
	assert.Equal(t, BoolValue{Val: true}, run(t, i, call("has_cycle", ref("loop"))))
	assert.Equal(t, BoolValue{Val: false}, run(t, i, call("is_connected", ref("dag"))))

	comps := run(t, i, call("connected_components", ref("dag")))
	assert.Len(t, comps.(VectorValue).Elements, 2)

	order := stringsOf(t, run(t, i, call("topological_sort", ref("dag"))))
	pos := map[string]int{}
	for k, id := range order {
		pos[id] = k
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
	assert.Less(t, pos["x"], pos["y"])

	err := runErr(t, i, call("topological_sort", ref("loop")))
	assert.Equal(t, KindValidationError, ErrorKind(err))
}

func TestNetworkRejectsNonEdges(t *testing.T) {
	err := runErr(t, NewInterpreter(), call("network", nums(1, 2)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
}
