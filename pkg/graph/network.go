// Package graph implements network analysis over string-keyed graphs:
// topological ordering, traversal, critical-path scheduling (CPM),
// probabilistic PERT and minimum spanning trees.
package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrValidation reports a network that does not satisfy an algorithm's
	// preconditions.
	ErrValidation = errors.New("invalid network")

	// ErrCycle reports a cycle where a DAG is required.
	ErrCycle = fmt.Errorf("%w: network contains a cycle", ErrValidation)
)

// Epsilon decides when slack counts as zero.
const Epsilon = 1e-6

// Props holds the numeric properties of a node or edge.
type Props map[string]float64

// Get returns a property and whether it is present.
func (p Props) Get(key string) (float64, bool) {
	v, ok := p[key]
	return v, ok
}

// Edge connects two nodes. Undirected edges are traversable both ways.
type Edge struct {
	From     string
	To       string
	Directed bool
	Props    Props
}

// Weight returns the edge's "weight" property.
func (e Edge) Weight() (float64, bool) {
	return e.Props.Get("weight")
}

// Network is a set of nodes with numeric properties and the edges between
// them.
type Network struct {
	Nodes map[string]Props
	Edges []Edge
}

// New builds a network from edges. Every endpoint becomes a node; nodes
// listed in props but absent from edges are kept as isolated nodes.
func New(edges []Edge, props map[string]Props) *Network {
	n := &Network{
		Nodes: make(map[string]Props),
		Edges: slices.Clone(edges),
	}
	for _, e := range edges {
		n.ensure(e.From)
		n.ensure(e.To)
	}
	for id, p := range props {
		n.Nodes[id] = maps.Clone(p)
		if n.Nodes[id] == nil {
			n.Nodes[id] = Props{}
		}
	}
	return n
}

func (n *Network) ensure(id string) {
	if _, ok := n.Nodes[id]; !ok {
		n.Nodes[id] = Props{}
	}
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{
		Nodes: make(map[string]Props, len(n.Nodes)),
		Edges: make([]Edge, len(n.Edges)),
	}
	for id, p := range n.Nodes {
		c.Nodes[id] = maps.Clone(p)
	}
	for i, e := range n.Edges {
		e.Props = maps.Clone(e.Props)
		c.Edges[i] = e
	}
	return c
}

// IDs returns the node ids in sorted order.
func (n *Network) IDs() []string {
	return slices.Sorted(maps.Keys(n.Nodes))
}

// index numbers the sorted node ids for the gonum graph views, so gonum
// node id i is ids[i] and lexical id order matches string order.
func (n *Network) index() ([]string, map[string]int64) {
	ids := n.IDs()
	index := make(map[string]int64, len(ids))
	for i, id := range ids {
		index[id] = int64(i)
	}
	return ids, index
}

// directed views every edge as From -> To. Self loops are left out since
// gonum simple graphs cannot hold them.
func (n *Network) directed() (*simple.DirectedGraph, []string) {
	ids, index := n.index()
	g := simple.NewDirectedGraph()
	for _, id := range ids {
		g.AddNode(simple.Node(index[id]))
	}
	for _, e := range n.Edges {
		if e.From != e.To {
			g.SetEdge(g.NewEdge(simple.Node(index[e.From]), simple.Node(index[e.To])))
		}
	}
	return g, ids
}

// undirected views every edge as undirected, leaving out self loops.
func (n *Network) undirected() (*simple.UndirectedGraph, []string) {
	ids, index := n.index()
	g := simple.NewUndirectedGraph()
	for _, id := range ids {
		g.AddNode(simple.Node(index[id]))
	}
	for _, e := range n.Edges {
		if e.From != e.To {
			g.SetEdge(g.NewEdge(simple.Node(index[e.From]), simple.Node(index[e.To])))
		}
	}
	return g, ids
}

// HasNode reports whether id is a node of the network.
func (n *Network) HasNode(id string) bool {
	_, ok := n.Nodes[id]
	return ok
}

func (n *Network) requireNode(id string) error {
	if !n.HasNode(id) {
		return fmt.Errorf("%w: node %q not found", ErrValidation, id)
	}
	return nil
}

// successors maps every node to the nodes reachable over one edge,
// following undirected edges both ways. Lists are sorted.
func (n *Network) successors() map[string][]string {
	adj := make(map[string][]string, len(n.Nodes))
	for _, e := range n.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		if !e.Directed {
			adj[e.To] = append(adj[e.To], e.From)
		}
	}
	for id, list := range adj {
		slices.Sort(list)
		adj[id] = slices.Compact(list)
	}
	return adj
}

// Neighbors returns the sorted ids reachable from id over one edge.
func (n *Network) Neighbors(id string) ([]string, error) {
	if err := n.requireNode(id); err != nil {
		return nil, err
	}
	return slices.Clone(n.successors()[id]), nil
}

// Degree counts the edges incident to id.
func (n *Network) Degree(id string) (int, error) {
	if err := n.requireNode(id); err != nil {
		return 0, err
	}
	deg := 0
	for _, e := range n.Edges {
		if e.From == id {
			deg++
		}
		if e.To == id {
			deg++
		}
	}
	return deg, nil
}
