package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/vito/achronyme/pkg/graph"
	"github.com/vito/achronyme/pkg/ioctx"
)

// NetworkFile is the TOML description of a project network. Each task has
// either a duration or a three-point estimate:
//
//	[[task]]
//	id = "design"
//	duration = 3
//
//	[[task]]
//	id = "build"
//	op = 2
//	mo = 4
//	pe = 9
//	deps = ["design"]
type NetworkFile struct {
	Tasks []TaskSpec `toml:"task"`
}

type TaskSpec struct {
	ID       string   `toml:"id"`
	Duration *float64 `toml:"duration"`
	Op       *float64 `toml:"op"`
	Mo       *float64 `toml:"mo"`
	Pe       *float64 `toml:"pe"`
	Deps     []string `toml:"deps"`
}

func (f NetworkFile) network() (*graph.Network, error) {
	props := make(map[string]graph.Props, len(f.Tasks))
	var edges []graph.Edge
	for _, t := range f.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task without an id")
		}
		if _, dup := props[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task %q", t.ID)
		}
		p := graph.Props{}
		for key, v := range map[string]*float64{"duration": t.Duration, "op": t.Op, "mo": t.Mo, "pe": t.Pe} {
			if v != nil {
				p[key] = *v
			}
		}
		props[t.ID] = p
		for _, dep := range t.Deps {
			edges = append(edges, graph.Edge{From: dep, To: t.ID, Directed: true})
		}
	}
	for _, e := range edges {
		if _, ok := props[e.From]; !ok {
			return nil, fmt.Errorf("task %q depends on unknown task %q", e.To, e.From)
		}
	}
	return graph.New(edges, props), nil
}

// Schedule is a fully analyzed network in topological order.
type Schedule struct {
	*graph.Analysis
	Order []string

	// Deadline and Probability are set when a deadline was requested.
	HasDeadline bool
	Deadline    float64
	Probability float64
}

func schedule(f NetworkFile, deadline float64) (*Schedule, error) {
	n, err := f.network()
	if err != nil {
		return nil, err
	}
	a, err := n.Analyze()
	if err != nil {
		return nil, err
	}
	order, err := a.Network.TopologicalSort()
	if err != nil {
		return nil, err
	}
	s := &Schedule{Analysis: a, Order: order}
	if !math.IsNaN(deadline) {
		if !a.Probabilistic {
			return nil, fmt.Errorf("--deadline needs op/mo/pe estimates on every task")
		}
		s.HasDeadline = true
		s.Deadline = deadline
		if s.Probability, err = a.Network.CompletionProbability(deadline); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func printSchedule(w io.Writer, s *Schedule) error {
	p := newPrinter(w)
	critical := map[string]bool{}
	for _, id := range s.CriticalPath {
		critical[id] = true
	}

	rows := make([][]string, 0, len(s.Order))
	for _, id := range s.Order {
		props := s.Network.Nodes[id]
		d, err := graph.Duration(id, props)
		if err != nil {
			return err
		}
		mark := ""
		if critical[id] {
			mark = p.render(criticalMark, "*")
		}
		rows = append(rows, []string{
			id,
			formatNum(d),
			formatNum(props[graph.PropES]),
			formatNum(props[graph.PropEF]),
			formatNum(props[graph.PropLS]),
			formatNum(props[graph.PropLF]),
			formatNum(props[graph.PropSlack]),
			mark,
		})
	}

	p.Title("Schedule")
	p.Table([]string{"TASK", "DURATION", "ES", "EF", "LS", "LF", "SLACK", ""}, rows)
	p.Printf("\n")
	p.Field("duration", formatNum(s.Duration))
	p.Field("critical path", strings.Join(s.CriticalPath, " -> "))
	if s.Probabilistic {
		p.Field("variance", fmt.Sprintf("%.4g", s.Variance))
		p.Field("std dev", fmt.Sprintf("%.4g", s.StdDev))
	}
	if s.HasDeadline {
		p.Field("P(T ≤ "+formatNum(s.Deadline)+")", fmt.Sprintf("%.4f", s.Probability))
	}
	return nil
}

func pertCmd() *cobra.Command {
	var deadline float64
	cmd := &cobra.Command{
		Use:   "pert NETWORK.toml",
		Short: "Schedule a project network with CPM/PERT",
		Long: `Pert reads [[task]] tables with an id, a duration or op/mo/pe
three-point estimate, and optional deps, then prints the earliest and
latest start and finish of every task, its slack, and the critical path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var f NetworkFile
			if _, err := toml.DecodeFile(args[0], &f); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			if !cmd.Flags().Changed("deadline") {
				deadline = math.NaN()
			}
			s, err := schedule(f, deadline)
			if err != nil {
				return err
			}
			return printSchedule(ioctx.StdoutFromContext(ctx), s)
		},
	}
	cmd.Flags().Float64Var(&deadline, "deadline", 0, "Report the probability of finishing by this time")
	return cmd
}
