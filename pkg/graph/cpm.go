package graph

import (
	"fmt"
	"math"
	"slices"
)

// Schedule property names written onto nodes.
const (
	PropES    = "ES"
	PropEF    = "EF"
	PropLS    = "LS"
	PropLF    = "LF"
	PropSlack = "slack"
)

// Duration resolves a task's duration from "duration", then "te", then the
// three-point estimate (op + 4·mo + pe)/6.
func Duration(id string, p Props) (float64, error) {
	if d, ok := p.Get("duration"); ok {
		if d < 0 {
			return 0, fmt.Errorf("%w: node %q has negative duration %g", ErrValidation, id, d)
		}
		return d, nil
	}
	if te, ok := p.Get("te"); ok {
		if te < 0 {
			return 0, fmt.Errorf("%w: node %q has negative te %g", ErrValidation, id, te)
		}
		return te, nil
	}
	op, okOp := p.Get("op")
	mo, okMo := p.Get("mo")
	pe, okPe := p.Get("pe")
	if okOp && okMo && okPe {
		return ExpectedTime(op, mo, pe)
	}
	return 0, fmt.Errorf("%w: node %q needs a numeric duration, te, or op/mo/pe", ErrValidation, id)
}

// ValidateDurations checks that every node has a usable duration.
func (n *Network) ValidateDurations() error {
	for _, id := range n.IDs() {
		if _, err := Duration(id, n.Nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) hasAll(keys ...string) bool {
	if len(n.Nodes) == 0 {
		return false
	}
	for _, p := range n.Nodes {
		for _, k := range keys {
			if _, ok := p[k]; !ok {
				return false
			}
		}
	}
	return true
}

// ForwardPass annotates every node with ES and EF.
func (n *Network) ForwardPass() error {
	order, err := n.TopologicalSort()
	if err != nil {
		return err
	}
	if err := n.ValidateDurations(); err != nil {
		return err
	}

	preds := make(map[string][]string)
	for _, e := range n.Edges {
		preds[e.To] = append(preds[e.To], e.From)
	}

	for _, id := range order {
		d, err := Duration(id, n.Nodes[id])
		if err != nil {
			return err
		}
		es := 0.0
		for _, p := range preds[id] {
			es = math.Max(es, n.Nodes[p][PropEF])
		}
		n.Nodes[id][PropES] = es
		n.Nodes[id][PropEF] = es + d
	}
	return nil
}

// ProjectDuration is the largest EF, running the forward pass if needed.
func (n *Network) ProjectDuration() (float64, error) {
	if !n.hasAll(PropES, PropEF) {
		if err := n.ForwardPass(); err != nil {
			return 0, err
		}
	}
	t := 0.0
	for _, p := range n.Nodes {
		t = math.Max(t, p[PropEF])
	}
	return t, nil
}

// BackwardPass annotates every node with LS and LF, running the forward
// pass first when ES/EF are missing.
func (n *Network) BackwardPass() error {
	total, err := n.ProjectDuration()
	if err != nil {
		return err
	}
	order, err := n.TopologicalSort()
	if err != nil {
		return err
	}

	succs := make(map[string][]string)
	for _, e := range n.Edges {
		succs[e.From] = append(succs[e.From], e.To)
	}

	for _, id := range slices.Backward(order) {
		d, err := Duration(id, n.Nodes[id])
		if err != nil {
			return err
		}
		lf := total
		for _, s := range succs[id] {
			lf = math.Min(lf, n.Nodes[s][PropLS])
		}
		n.Nodes[id][PropLF] = lf
		n.Nodes[id][PropLS] = lf - d
	}
	return nil
}

// CalculateSlack annotates every node with slack = LS - ES, running the
// backward pass first when LS/LF are missing.
func (n *Network) CalculateSlack() error {
	if !n.hasAll(PropLS, PropLF) {
		if err := n.BackwardPass(); err != nil {
			return err
		}
	}
	for _, p := range n.Nodes {
		p[PropSlack] = p[PropLS] - p[PropES]
	}
	return nil
}

func (n *Network) ensureSlack() error {
	if n.hasAll(PropES, PropEF, PropLS, PropLF, PropSlack) {
		return nil
	}
	return n.CalculateSlack()
}

// criticalGraph returns the critical sub-DAG along with its start and end
// nodes. Only edges where the successor starts exactly when the predecessor
// finishes are kept.
func (n *Network) criticalGraph() (map[string][]string, []string, map[string]bool, error) {
	if err := n.ensureSlack(); err != nil {
		return nil, nil, nil, err
	}
	total, err := n.ProjectDuration()
	if err != nil {
		return nil, nil, nil, err
	}

	critical := make(map[string]bool)
	for id, p := range n.Nodes {
		if math.Abs(p[PropSlack]) < Epsilon {
			critical[id] = true
		}
	}

	adj := make(map[string][]string)
	for _, e := range n.Edges {
		if !critical[e.From] || !critical[e.To] {
			continue
		}
		if math.Abs(n.Nodes[e.From][PropEF]-n.Nodes[e.To][PropES]) < Epsilon {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}
	for id := range adj {
		slices.Sort(adj[id])
	}

	var starts []string
	ends := make(map[string]bool)
	for _, id := range n.IDs() {
		if !critical[id] {
			continue
		}
		p := n.Nodes[id]
		if math.Abs(p[PropES]) < Epsilon {
			starts = append(starts, id)
		}
		if math.Abs(p[PropEF]-total) < Epsilon {
			ends[id] = true
		}
	}
	if len(starts) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no critical start node (ES = 0)", ErrValidation)
	}
	if len(ends) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no critical end node", ErrValidation)
	}
	return adj, starts, ends, nil
}

// CriticalPath returns one start-to-end path through zero-slack tasks.
func (n *Network) CriticalPath() ([]string, error) {
	paths, err := n.criticalPaths(true)
	if err != nil {
		return nil, err
	}
	return paths[0], nil
}

// AllCriticalPaths returns every start-to-end path through zero-slack
// tasks.
func (n *Network) AllCriticalPaths() ([][]string, error) {
	return n.criticalPaths(false)
}

func (n *Network) criticalPaths(firstOnly bool) ([][]string, error) {
	adj, starts, ends, err := n.criticalGraph()
	if err != nil {
		return nil, err
	}

	var paths [][]string
	var walk func(id string, path []string) bool
	walk = func(id string, path []string) bool {
		path = append(path, id)
		if ends[id] {
			paths = append(paths, slices.Clone(path))
			if firstOnly {
				return true
			}
		}
		for _, next := range adj[id] {
			if walk(next, path) {
				return true
			}
		}
		return false
	}
	for _, s := range starts {
		if walk(s, nil) {
			break
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no critical path connects a start node to an end node", ErrValidation)
	}
	return paths, nil
}

// PathDuration sums the durations of the given tasks.
func (n *Network) PathDuration(path []string) (float64, error) {
	total := 0.0
	for _, id := range path {
		d, err := Duration(id, n.Nodes[id])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}
