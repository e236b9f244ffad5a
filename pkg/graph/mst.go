package graph

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Tree is a spanning tree (or forest) and its total weight.
type Tree struct {
	Edges       []Edge
	TotalWeight float64
}

func (n *Network) validateUndirectedWeighted(algorithm string) error {
	for _, e := range n.Edges {
		if e.Directed {
			return fmt.Errorf("%w: %s requires undirected edges, %s -> %s is directed", ErrValidation, algorithm, e.From, e.To)
		}
		if _, ok := e.Weight(); !ok {
			return fmt.Errorf("%w: %s requires every edge to have a weight, %s <> %s has none", ErrValidation, algorithm, e.From, e.To)
		}
	}
	return nil
}

// Kruskal builds a minimum spanning forest by adding edges in weight order
// whenever they join two components.
func (n *Network) Kruskal() (*Tree, error) {
	if err := n.validateUndirectedWeighted("kruskal"); err != nil {
		return nil, err
	}
	return n.spanning(nil, func(dst, g *simple.WeightedUndirectedGraph) float64 {
		return path.Kruskal(dst, g)
	}), nil
}

// Prim grows a minimum spanning tree from start. Nodes unreachable from
// start are left out.
func (n *Network) Prim(start string) (*Tree, error) {
	if err := n.validateUndirectedWeighted("prim"); err != nil {
		return nil, err
	}
	if err := n.requireNode(start); err != nil {
		return nil, err
	}
	var component []string
	for _, cc := range n.ConnectedComponents() {
		if slices.Contains(cc, start) {
			component = cc
			break
		}
	}
	return n.spanning(component, func(dst, g *simple.WeightedUndirectedGraph) float64 {
		return path.Prim(dst, g)
	}), nil
}

// spanning runs a gonum spanning-tree builder over the weighted undirected
// view of the network, limited to the given nodes when only is non-nil, and
// maps the chosen gonum edges back to network edges. Parallel edges
// collapse to the lightest one; self loops never span anything and are
// left out.
func (n *Network) spanning(only []string, build func(dst, g *simple.WeightedUndirectedGraph) float64) *Tree {
	ids, index := n.index()
	keep := func(id string) bool { return only == nil || slices.Contains(only, id) }

	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, id := range ids {
		if keep(id) {
			g.AddNode(simple.Node(index[id]))
		}
	}
	lightest := map[[2]int64]int{}
	for i, e := range n.Edges {
		if e.From == e.To || !keep(e.From) || !keep(e.To) {
			continue
		}
		key := pairKey(index[e.From], index[e.To])
		w, _ := e.Weight()
		if prev, ok := lightest[key]; ok {
			if pw, _ := n.Edges[prev].Weight(); pw <= w {
				continue
			}
		}
		lightest[key] = i
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(index[e.From]), simple.Node(index[e.To]), w))
	}

	dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	tree := &Tree{TotalWeight: build(dst, g)}
	var chosen []int
	edges := dst.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		chosen = append(chosen, lightest[pairKey(e.From().ID(), e.To().ID())])
	}
	slices.SortFunc(chosen, func(a, b int) int {
		wa, _ := n.Edges[a].Weight()
		wb, _ := n.Edges[b].Weight()
		return cmp.Or(cmp.Compare(wa, wb), cmp.Compare(a, b))
	})
	for _, i := range chosen {
		tree.Edges = append(tree.Edges, n.Edges[i])
	}
	return tree
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
