package ach

import (
	"context"
	"maps"
	"slices"

	"github.com/vito/achronyme/pkg/graph"
)

// netArg is a network argument converted for the graph package, along
// with the original node records so non-numeric properties survive a
// round trip.
type netArg struct {
	net   *graph.Network
	nodes map[string]RecordValue
}

func registerGraphs() {
	Builtin("network").
		Module("graphs").
		Doc("builds {nodes, edges} from a vector of edges and optional node properties").
		Params("edges").
		Optional("node_props").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			edges := make([]EdgeValue, len(elems))
			for k, e := range elems {
				ev, ok := Deref(e).(EdgeValue)
				if !ok {
					return nil, typeErrorf("network: element %d is %s, not an Edge", k, typeString(InferType(e)))
				}
				edges[k] = ev
			}
			nodes := map[string]Value{}
			for _, e := range edges {
				for _, id := range []string{e.From, e.To} {
					if _, ok := nodes[id]; !ok {
						nodes[id] = RecordValue{Fields: map[string]Value{}}
					}
				}
			}
			if args.Has(1) {
				props, err := args.Record(1)
				if err != nil {
					return nil, err
				}
				for id, p := range props.Fields {
					rec, ok := Deref(p).(RecordValue)
					if !ok {
						return nil, typeErrorf("network: properties of node '%s' must be a Record", id)
					}
					nodes[id] = rec
				}
			}
			vals := make([]Value, len(edges))
			for k, e := range edges {
				vals[k] = e
			}
			return NewRecord(map[string]Value{
				"nodes": NewRecord(nodes),
				"edges": VectorValue{Elements: vals},
			}), nil
		})

	Builtin("nodes").
		Module("graphs").
		Doc("sorted node ids").
		Params("network").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			n, err := networkArg(args, 0)
			if err != nil {
				return nil, err
			}
			return ToValue(n.net.IDs())
		})

	Builtin("edges").
		Module("graphs").
		Doc("the network's edges").
		Params("network").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			rec, err := args.Record(0)
			if err != nil {
				return nil, err
			}
			if _, err := networkArg(args, 0); err != nil {
				return nil, err
			}
			return Deref(rec.Fields["edges"]), nil
		})

	nodeQuery := func(name, doc string, fn func(n *graph.Network, id string) (Value, error)) {
		Builtin(name).
			Module("graphs").
			Doc(doc).
			Params("network", "node").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				n, err := networkArg(args, 0)
				if err != nil {
					return nil, err
				}
				id, err := args.String(1)
				if err != nil {
					return nil, err
				}
				return fn(n.net, id)
			})
	}
	nodeQuery("neighbors", "nodes one edge away", func(n *graph.Network, id string) (Value, error) {
		return stringsResult(n.Neighbors(id))
	})
	nodeQuery("degree", "number of incident edges", func(n *graph.Network, id string) (Value, error) {
		d, err := n.Degree(id)
		if err != nil {
			return nil, err
		}
		return NumberValue{Val: float64(d)}, nil
	})
	nodeQuery("bfs", "breadth-first visit order", func(n *graph.Network, id string) (Value, error) {
		return stringsResult(n.BFS(id))
	})
	nodeQuery("dfs", "depth-first visit order", func(n *graph.Network, id string) (Value, error) {
		return stringsResult(n.DFS(id))
	})

	pathQuery := func(name, doc string, fn func(n *graph.Network, from, to string) (Value, error)) {
		Builtin(name).
			Module("graphs").
			Doc(doc).
			Params("network", "from", "to").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				n, err := networkArg(args, 0)
				if err != nil {
					return nil, err
				}
				from, err := args.String(1)
				if err != nil {
					return nil, err
				}
				to, err := args.String(2)
				if err != nil {
					return nil, err
				}
				return fn(n.net, from, to)
			})
	}
	pathQuery("bfs_path", "fewest-edge path, as {path, found}", func(n *graph.Network, from, to string) (Value, error) {
		path, found, err := n.BFSPath(from, to)
		if err != nil {
			return nil, err
		}
		p, _ := ToValue(path)
		return NewRecord(map[string]Value{
			"path":  p,
			"found": BoolValue{Val: found},
		}), nil
	})
	pathQuery("dijkstra", "lightest path by edge weight, as {path, distance, found}", func(n *graph.Network, from, to string) (Value, error) {
		path, dist, found, err := n.ShortestPath(from, to)
		if err != nil {
			return nil, err
		}
		p, _ := ToValue(path)
		return NewRecord(map[string]Value{
			"path":     p,
			"distance": NumberValue{Val: dist},
			"found":    BoolValue{Val: found},
		}), nil
	})

	netQuery := func(module, name, doc string, fn func(n netArg) (Value, error)) {
		Builtin(name).
			Module(module).
			Doc(doc).
			Params("network").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				n, err := networkArg(args, 0)
				if err != nil {
					return nil, err
				}
				return fn(n)
			})
	}
	netQuery("graphs", "has_cycle", "whether the directed edges form a cycle", func(n netArg) (Value, error) {
		return BoolValue{Val: n.net.HasCycle()}, nil
	})
	netQuery("graphs", "is_connected", "whether every node is reachable ignoring direction", func(n netArg) (Value, error) {
		return BoolValue{Val: n.net.IsConnected()}, nil
	})
	netQuery("graphs", "connected_components", "node ids grouped by component", func(n netArg) (Value, error) {
		return pathsValue(n.net.ConnectedComponents()), nil
	})
	netQuery("graphs", "topological_sort", "node ids in dependency order; cycles are a ValidationError", func(n netArg) (Value, error) {
		return stringsResult(n.net.TopologicalSort())
	})

	// CPM
	pass := func(name, doc string, fn func(*graph.Network) error) {
		netQuery("pert", name, doc, func(n netArg) (Value, error) {
			work := n.net.Clone()
			if err := fn(work); err != nil {
				return nil, err
			}
			return n.annotated(work), nil
		})
	}
	pass("forward_pass", "copy of the network with ES and EF on every node", (*graph.Network).ForwardPass)
	pass("backward_pass", "copy of the network with LS and LF on every node", (*graph.Network).BackwardPass)
	pass("calculate_slack", "copy of the network with slack on every node", (*graph.Network).CalculateSlack)

	netQuery("pert", "critical_path", "a zero-slack path from start to finish", func(n netArg) (Value, error) {
		return stringsResult(n.net.Clone().CriticalPath())
	})
	netQuery("pert", "all_critical_paths", "every zero-slack path from start to finish", func(n netArg) (Value, error) {
		paths, err := n.net.Clone().AllCriticalPaths()
		if err != nil {
			return nil, err
		}
		return pathsValue(paths), nil
	})
	netQuery("pert", "project_duration", "earliest finish of the whole project", func(n netArg) (Value, error) {
		return numberResult(n.net.Clone().ProjectDuration())
	})

	// probabilistic PERT
	estimate := func(name, doc string, fn func(op, mo, pe float64) (float64, error)) {
		Builtin(name).
			Module("pert").
			Doc(doc).
			Params("op").
			Optional("mo", "pe").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				op, mo, pe, err := estimateArgs(args)
				if err != nil {
					return nil, err
				}
				return numberResult(fn(op, mo, pe))
			})
	}
	estimate("expected_time", "(op + 4·mo + pe) / 6, from three numbers or an {op, mo, pe} record", graph.ExpectedTime)
	estimate("task_variance", "((pe - op) / 6)², from three numbers or an {op, mo, pe} record", graph.TaskVariance)

	netQuery("pert", "project_variance", "sum of task variances along the critical path", func(n netArg) (Value, error) {
		return numberResult(n.net.Clone().ProjectVariance())
	})
	netQuery("pert", "project_std_dev", "square root of the project variance", func(n netArg) (Value, error) {
		return numberResult(n.net.Clone().ProjectStdDev())
	})

	Builtin("completion_probability").
		Module("pert").
		Doc("probability of finishing within time t").
		Params("network", "t").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			n, err := networkArg(args, 0)
			if err != nil {
				return nil, err
			}
			t, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			return numberResult(n.net.Clone().CompletionProbability(t))
		})

	Builtin("time_for_probability").
		Module("pert").
		Doc("deadline met with probability p").
		Params("network", "p").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			n, err := networkArg(args, 0)
			if err != nil {
				return nil, err
			}
			p, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			return numberResult(n.net.Clone().TimeForProbability(p))
		})

	netQuery("pert", "pert_analysis", "full schedule as {network, critical_path, duration, variance?, std_dev?}", func(n netArg) (Value, error) {
		a, err := n.net.Analyze()
		if err != nil {
			return nil, err
		}
		path, _ := ToValue(a.CriticalPath)
		fields := map[string]Value{
			"network":       n.annotated(a.Network),
			"critical_path": path,
			"duration":      NumberValue{Val: a.Duration},
		}
		if a.Probabilistic {
			fields["variance"] = NumberValue{Val: a.Variance}
			fields["std_dev"] = NumberValue{Val: a.StdDev}
		}
		return NewRecord(fields), nil
	})

	// spanning trees
	netQuery("graphs", "kruskal", "minimum spanning forest, as {edges, total_weight}", func(n netArg) (Value, error) {
		t, err := n.net.Kruskal()
		if err != nil {
			return nil, err
		}
		return treeValue(t), nil
	})

	Builtin("prim").
		Module("graphs").
		Doc("minimum spanning tree grown from start (the first node by default), as {edges, total_weight}").
		Params("network").
		Optional("start").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			n, err := networkArg(args, 0)
			if err != nil {
				return nil, err
			}
			var start string
			if args.Has(1) {
				if start, err = args.String(1); err != nil {
					return nil, err
				}
			} else if ids := n.net.IDs(); len(ids) > 0 {
				start = ids[0]
			}
			t, err := n.net.Prim(start)
			if err != nil {
				return nil, err
			}
			return treeValue(t), nil
		})
}

// networkArg reads a {nodes, edges} record.
func networkArg(args Args, k int) (netArg, error) {
	rec, err := args.Record(k)
	if err != nil {
		return netArg{}, err
	}
	nodesVal, ok := rec.Get("nodes")
	if !ok {
		return netArg{}, args.mismatch(k, "a network record with 'nodes' and 'edges'")
	}
	nodesRec, ok := Deref(nodesVal).(RecordValue)
	if !ok {
		return netArg{}, args.mismatch(k, "a network record whose 'nodes' is a Record")
	}
	edgesVal, ok := rec.Get("edges")
	if !ok {
		return netArg{}, args.mismatch(k, "a network record with 'nodes' and 'edges'")
	}
	edgeList, ok := Deref(edgesVal).(VectorValue)
	if !ok {
		return netArg{}, args.mismatch(k, "a network record whose 'edges' is a Vector")
	}

	n := netArg{nodes: map[string]RecordValue{}}
	props := map[string]graph.Props{}
	for id, v := range nodesRec.Fields {
		r, ok := Deref(v).(RecordValue)
		if !ok {
			return netArg{}, typeErrorf("%s: properties of node '%s' must be a Record", args.def.Name, id)
		}
		n.nodes[id] = r
		props[id] = numericProps(r.Fields)
	}
	edges := make([]graph.Edge, len(edgeList.Elements))
	for j, e := range edgeList.Elements {
		ev, ok := Deref(e).(EdgeValue)
		if !ok {
			return netArg{}, typeErrorf("%s: edge %d is %s, not an Edge", args.def.Name, j, typeString(InferType(e)))
		}
		edges[j] = graph.Edge{
			From:     ev.From,
			To:       ev.To,
			Directed: ev.Directed,
			Props:    numericProps(ev.Props),
		}
	}
	n.net = graph.New(edges, props)
	return n, nil
}

// numericProps keeps the Number fields of a record.
func numericProps(fields map[string]Value) graph.Props {
	p := graph.Props{}
	for name, v := range fields {
		if num, ok := Deref(v).(NumberValue); ok {
			p[name] = num.Val
		}
	}
	return p
}

// annotated renders a computed network, overlaying its numeric node
// properties onto the original records.
func (n netArg) annotated(work *graph.Network) RecordValue {
	nodes := make(map[string]Value, len(work.Nodes))
	for id, p := range work.Nodes {
		fields := map[string]Value{}
		if orig, ok := n.nodes[id]; ok {
			for name, v := range orig.Fields {
				fields[name] = Deref(v)
			}
		}
		for name, f := range p {
			fields[name] = NumberValue{Val: f}
		}
		nodes[id] = NewRecord(fields)
	}
	return NewRecord(map[string]Value{
		"nodes": NewRecord(nodes),
		"edges": edgesValue(work.Edges),
	})
}

func edgesValue(edges []graph.Edge) VectorValue {
	vals := make([]Value, len(edges))
	for k, e := range edges {
		props := make(map[string]Value, len(e.Props))
		for _, name := range slices.Sorted(maps.Keys(e.Props)) {
			props[name] = NumberValue{Val: e.Props[name]}
		}
		vals[k] = EdgeValue{From: e.From, To: e.To, Directed: e.Directed, Props: props}
	}
	return VectorValue{Elements: vals}
}

func treeValue(t *graph.Tree) RecordValue {
	return NewRecord(map[string]Value{
		"edges":        edgesValue(t.Edges),
		"total_weight": NumberValue{Val: t.TotalWeight},
	})
}

func pathsValue(paths [][]string) VectorValue {
	vals := make([]Value, len(paths))
	for k, p := range paths {
		vals[k], _ = ToValue(p)
	}
	return VectorValue{Elements: vals}
}

func stringsResult(ids []string, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ToValue(ids)
}

// estimateArgs accepts (op, mo, pe) or a single {op, mo, pe} record.
func estimateArgs(args Args) (op, mo, pe float64, err error) {
	if rec, ok := args.Get(0).(RecordValue); ok && args.Len() == 1 {
		p := numericProps(rec.Fields)
		var has [3]bool
		op, has[0] = p.Get("op")
		mo, has[1] = p.Get("mo")
		pe, has[2] = p.Get("pe")
		if !has[0] || !has[1] || !has[2] {
			return 0, 0, 0, typeErrorf("%s: estimate record needs numeric op, mo and pe", args.def.Name)
		}
		return op, mo, pe, nil
	}
	if args.Len() != 3 {
		return 0, 0, 0, typeErrorf("%s expects op, mo and pe, got %d arguments", args.def.Name, args.Len())
	}
	if op, err = args.Number(0); err != nil {
		return
	}
	if mo, err = args.Number(1); err != nil {
		return
	}
	pe, err = args.Number(2)
	return
}
