package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vito/achronyme/pkg/ioctx"
	"github.com/vito/achronyme/pkg/lp"
)

// ProblemFile is the TOML description of a linear program:
//
//	sense = "max"
//	c = [3, 5]
//	A = [[1, 0], [0, 2], [3, 2]]
//	b = [4, 12, 18]
type ProblemFile struct {
	Sense  string      `toml:"sense"`
	Method string      `toml:"method"`
	C      []float64   `toml:"c"`
	A      [][]float64 `toml:"A"`
	B      []float64   `toml:"b"`

	// Integer and Binary list variable indices for Branch-and-Bound.
	Integer []int `toml:"integer"`
	Binary  []int `toml:"binary"`

	Sensitivity bool `toml:"sensitivity"`
}

func (f ProblemFile) problem() (lp.Problem, error) {
	p := lp.Problem{C: f.C, A: f.A, B: f.B}
	switch strings.ToLower(f.Sense) {
	case "", "max", "maximize":
		p.Sense = lp.Maximize
	case "min", "minimize":
		p.Sense = lp.Minimize
	default:
		return p, fmt.Errorf("unknown sense %q (want max or min)", f.Sense)
	}
	return p, p.Validate()
}

type solverFunc func(context.Context, lp.Problem, lp.Options) (*lp.Solution, error)

var solvers = map[string]solverFunc{
	"auto":         lp.Solve,
	"simplex":      lp.Simplex,
	"two_phase":    lp.TwoPhase,
	"dual_simplex": lp.DualSimplex,
	"revised":      lp.RevisedSimplex,
}

// SolveReport is the outcome of solving a ProblemFile.
type SolveReport struct {
	Method   string
	Sense    lp.Sense
	Solution *lp.Solution

	ShadowPrices []float64
	CostRanges   []lp.Range
	RHSRanges    []lp.Range
}

func solveProblem(ctx context.Context, f ProblemFile, opts lp.Options) (*SolveReport, error) {
	p, err := f.problem()
	if err != nil {
		return nil, err
	}
	report := &SolveReport{Method: f.Method, Sense: p.Sense}
	switch {
	case len(f.Integer) > 0 && len(f.Binary) > 0:
		return nil, errors.New("integer and binary cannot both be set")
	case len(f.Binary) > 0:
		report.Method = "binary branch-and-bound"
		report.Solution, err = lp.Binary(ctx, p, f.Binary, opts)
	case len(f.Integer) > 0:
		report.Method = "branch-and-bound"
		report.Solution, err = lp.BranchAndBound(ctx, p, f.Integer, opts)
	default:
		if report.Method == "" {
			report.Method = "auto"
		}
		solve, ok := solvers[report.Method]
		if !ok {
			return nil, fmt.Errorf("unknown method %q", report.Method)
		}
		report.Solution, err = solve(ctx, p, opts)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", report.Method)
	}

	if f.Sensitivity {
		if report.Solution.Tableau == nil {
			return nil, fmt.Errorf("sensitivity analysis is not available for %s", report.Method)
		}
		if report.ShadowPrices, err = lp.ShadowPrices(report.Solution); err != nil {
			return nil, err
		}
		for j := range p.C {
			r, err := lp.CostRange(report.Solution, p.C, j)
			if err != nil {
				return nil, err
			}
			report.CostRanges = append(report.CostRanges, r)
		}
		for i := range p.B {
			r, err := lp.RHSRange(report.Solution, p.B, i)
			if err != nil {
				return nil, err
			}
			report.RHSRanges = append(report.RHSRanges, r)
		}
	}
	return report, nil
}

// formatNum prints v to six significant digits, snapping rounding noise
// around zero.
func formatNum(v float64) string {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return fmt.Sprintf("%.6g", v)
}

func formatRange(r lp.Range) string {
	return "[" + formatNum(r.Lower) + ", " + formatNum(r.Upper) + "]"
}

func printSolve(w io.Writer, r *SolveReport) {
	p := newPrinter(w)
	p.Title(fmt.Sprintf("%s (%s)", r.Method, r.Sense))
	p.Field("objective", formatNum(r.Solution.Objective))
	p.Field("iterations", r.Solution.Iterations)

	rows := make([][]string, len(r.Solution.X))
	for j, x := range r.Solution.X {
		rows[j] = []string{fmt.Sprintf("x%d", j), formatNum(x)}
		if r.CostRanges != nil {
			rows[j] = append(rows[j], formatRange(r.CostRanges[j]))
		}
	}
	p.Printf("\n")
	if r.CostRanges != nil {
		p.Table([]string{"VAR", "VALUE", "COST RANGE"}, rows)
	} else {
		p.Table([]string{"VAR", "VALUE"}, rows)
	}

	if r.ShadowPrices != nil {
		rows := make([][]string, len(r.ShadowPrices))
		for i, price := range r.ShadowPrices {
			rows[i] = []string{fmt.Sprintf("c%d", i), formatNum(price), formatRange(r.RHSRanges[i])}
		}
		p.Printf("\n")
		p.Table([]string{"CONSTRAINT", "SHADOW PRICE", "RHS RANGE"}, rows)
	}
}

func solveCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "solve PROBLEM.toml",
		Short: "Solve a linear or integer program described in TOML",
		Long: `Solve reads a linear program of the form

  maximize (or minimize) cᵀx subject to Ax ≤ b, x ≥ 0

from a TOML file with the keys sense, c, A and b. Optional keys:

  method       auto, simplex, two_phase, dual_simplex or revised
  integer      indices of integer variables (Branch-and-Bound)
  binary       indices of 0-1 variables
  sensitivity  report shadow prices and ranging

Iteration caps come from the [limits] section of achronyme.toml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}
			var f ProblemFile
			if _, err := toml.DecodeFile(args[0], &f); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			ioctx.LoggerFromContext(ctx).Debug("solving", "file", args[0], "vars", len(f.C), "constraints", len(f.A))
			report, err := solveProblem(ctx, f, cfg.LPOptions())
			if err != nil {
				return err
			}
			printSolve(ioctx.StdoutFromContext(ctx), report)
			return nil
		},
	}
}
