package graph

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// BFS returns the nodes reachable from start in breadth-first order.
func (n *Network) BFS(start string) ([]string, error) {
	if err := n.requireNode(start); err != nil {
		return nil, err
	}
	adj := n.successors()
	seen := map[string]bool{start: true}
	queue := []string{start}
	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return order, nil
}

// DFS returns the nodes reachable from start in depth-first preorder.
func (n *Network) DFS(start string) ([]string, error) {
	if err := n.requireNode(start); err != nil {
		return nil, err
	}
	adj := n.successors()
	seen := map[string]bool{}
	var order []string
	var visit func(string)
	visit = func(id string) {
		seen[id] = true
		order = append(order, id)
		for _, next := range adj[id] {
			if !seen[next] {
				visit(next)
			}
		}
	}
	visit(start)
	return order, nil
}

// BFSPath returns the path with the fewest edges from start to goal.
func (n *Network) BFSPath(start, goal string) ([]string, bool, error) {
	if err := n.requireNode(start); err != nil {
		return nil, false, err
	}
	if err := n.requireNode(goal); err != nil {
		return nil, false, err
	}
	adj := n.successors()
	prev := map[string]string{}
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == goal {
			p := []string{goal}
			for p[0] != start {
				p = append([]string{prev[p[0]]}, p...)
			}
			return p, true, nil
		}
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				prev[next] = id
				queue = append(queue, next)
			}
		}
	}
	return nil, false, nil
}

// ShortestPath runs Dijkstra's algorithm from start to goal over edge
// weights. Every edge needs a non-negative "weight".
func (n *Network) ShortestPath(start, goal string) ([]string, float64, bool, error) {
	if err := n.requireNode(start); err != nil {
		return nil, 0, false, err
	}
	if err := n.requireNode(goal); err != nil {
		return nil, 0, false, err
	}

	ids, index := n.index()
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, id := range ids {
		g.AddNode(simple.Node(index[id]))
	}
	setEdge := func(from, to string, w float64) {
		if from == to {
			return
		}
		f, t := index[from], index[to]
		if existing := g.WeightedEdge(f, t); existing != nil && existing.Weight() <= w {
			return
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(f), simple.Node(t), w))
	}
	for _, e := range n.Edges {
		w, ok := e.Weight()
		if !ok {
			return nil, 0, false, fmt.Errorf("%w: edge %s -> %s has no weight", ErrValidation, e.From, e.To)
		}
		if w < 0 {
			return nil, 0, false, fmt.Errorf("%w: edge %s -> %s has negative weight %g", ErrValidation, e.From, e.To, w)
		}
		setEdge(e.From, e.To, w)
		if !e.Directed {
			setEdge(e.To, e.From, w)
		}
	}

	shortest := path.DijkstraFrom(simple.Node(index[start]), g)
	nodes, dist := shortest.To(index[goal])
	if nodes == nil {
		return nil, math.Inf(1), false, nil
	}
	route := make([]string, len(nodes))
	for i, node := range nodes {
		route[i] = ids[node.ID()]
	}
	return route, dist, true, nil
}

// ConnectedComponents groups the nodes into components, ignoring edge
// direction. Components and their members are sorted.
func (n *Network) ConnectedComponents() [][]string {
	g, ids := n.undirected()
	var components [][]string
	for _, cc := range topo.ConnectedComponents(g) {
		members := make([]string, len(cc))
		for i, node := range cc {
			members[i] = ids[node.ID()]
		}
		slices.Sort(members)
		components = append(components, members)
	}
	slices.SortFunc(components, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return components
}

// IsConnected reports whether the network has at most one component.
func (n *Network) IsConnected() bool {
	return len(n.ConnectedComponents()) <= 1
}
