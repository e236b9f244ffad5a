package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/topo"
)

// TopologicalSort orders the nodes so that every edge points forward,
// treating every edge as directed from From to To. Ties are broken by node
// id, so the order is deterministic.
func (n *Network) TopologicalSort() ([]string, error) {
	for _, e := range n.Edges {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, e.From, e.To)
		}
	}
	g, ids := n.directed()
	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		var cyclic topo.Unorderable
		if !errors.As(err, &cyclic) {
			return nil, err
		}
		if cycle := n.FindCycle(); len(cycle) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
		return nil, ErrCycle
	}
	order := make([]string, len(sorted))
	for i, node := range sorted {
		order[i] = ids[node.ID()]
	}
	return order, nil
}

// ValidateDAG fails with ErrCycle when the network is not acyclic.
func (n *Network) ValidateDAG() error {
	_, err := n.TopologicalSort()
	return err
}

// HasCycle reports whether the network contains a cycle. Networks with any
// directed edge are checked as directed graphs; purely undirected networks
// are checked for an edge that closes a loop.
func (n *Network) HasCycle() bool {
	directed := slices.ContainsFunc(n.Edges, func(e Edge) bool { return e.Directed })
	if directed {
		_, err := n.TopologicalSort()
		return err != nil
	}

	// An undirected forest has exactly nodes - components edges; anything
	// more, including a self loop or a repeated pair, closes a loop.
	seen := map[[2]string]bool{}
	for _, e := range n.Edges {
		pair := [2]string{min(e.From, e.To), max(e.From, e.To)}
		if e.From == e.To || seen[pair] {
			return true
		}
		seen[pair] = true
	}
	return len(seen) > len(n.Nodes)-len(n.ConnectedComponents())
}

// FindCycle returns one directed cycle, closed by repeating its first node,
// or nil when there is none.
func (n *Network) FindCycle() []string {
	for _, e := range n.Edges {
		if e.From == e.To {
			return []string{e.From, e.From}
		}
	}
	g, ids := n.directed()
	cycles := topo.DirectedCyclesIn(g)
	if len(cycles) == 0 {
		return nil
	}
	cycle := make([]string, len(cycles[0]))
	for i, node := range cycles[0] {
		cycle[i] = ids[node.ID()]
	}
	return cycle
}
