package lp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// SolveBounded solves p with lower[j] ≤ x[j] ≤ upper[j]. Variables are
// shifted by their lower bound and finite upper bounds become extra rows,
// so the result is a plain LP handed to the two-phase method.
func SolveBounded(ctx context.Context, p Problem, lower, upper []float64, opts Options) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.numVars()
	if len(lower) != n || len(upper) != n {
		return nil, fmt.Errorf("%w: bounds must have %d entries", ErrDimensionMismatch, n)
	}

	shifted := Problem{
		C:     p.C,
		Sense: p.Sense,
	}
	for i, row := range p.A {
		rhs := p.B[i]
		for j, a := range row {
			rhs -= a * lower[j]
		}
		shifted.A = append(shifted.A, row)
		shifted.B = append(shifted.B, rhs)
	}
	for j := range n {
		if lower[j] < 0 {
			return nil, fmt.Errorf("%w: lower bound of x%d is negative", ErrInvalidProblem, j)
		}
		if math.IsInf(upper[j], 1) {
			continue
		}
		span := upper[j] - lower[j]
		if span < -IntegerTolerance {
			return nil, fmt.Errorf("%w: x%d has empty bounds [%g, %g]", ErrInfeasible, j, lower[j], upper[j])
		}
		row := make([]float64, n)
		row[j] = 1
		shifted.A = append(shifted.A, row)
		shifted.B = append(shifted.B, math.Max(span, 0))
	}

	sol, err := TwoPhase(ctx, shifted, opts)
	if err != nil {
		return nil, err
	}
	x := make([]float64, n)
	for j := range n {
		x[j] = sol.X[j] + lower[j]
	}
	return newSolution(p, x, sol.Iterations, nil), nil
}

type bbNode struct {
	lower, upper []float64
}

// BranchAndBound solves p with the variables listed in integers restricted
// to integer values. A nil list means every variable is integer.
func BranchAndBound(ctx context.Context, p Problem, integers []int, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	return branchAndBound(ctx, p, integers, false, opts.MaxNodes, opts)
}

// Binary solves p with the listed variables restricted to {0, 1}. A nil
// list means every variable is binary.
func Binary(ctx context.Context, p Problem, binaries []int, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	return branchAndBound(ctx, p, binaries, true, opts.MaxBinaryNodes, opts)
}

func branchAndBound(ctx context.Context, p Problem, vars []int, binary bool, maxNodes int, opts Options) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.numVars()
	if vars == nil {
		vars = make([]int, n)
		for j := range vars {
			vars[j] = j
		}
	}
	for _, j := range vars {
		if j < 0 || j >= n {
			return nil, fmt.Errorf("%w: integer variable index %d out of range [0, %d)", ErrDimensionMismatch, j, n)
		}
	}

	root := bbNode{
		lower: make([]float64, n),
		upper: make([]float64, n),
	}
	for j := range n {
		root.upper[j] = math.Inf(1)
	}
	if binary {
		for _, j := range vars {
			root.upper[j] = 1
		}
	}

	var best *Solution
	stack := []bbNode{root}
	nodes := 0
	capped := false
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= maxNodes {
			capped = true
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		relaxed, err := SolveBounded(ctx, p, node.lower, node.upper, opts)
		if err != nil {
			if errors.Is(err, ErrInfeasible) {
				continue
			}
			return nil, err
		}
		if best != nil && !better(p.Sense, relaxed.Objective, best.Objective) {
			continue
		}

		branch, frac := -1, math.Inf(1)
		for _, j := range vars {
			v := relaxed.X[j]
			if isIntegral(v) {
				continue
			}
			dist := math.Abs(v - math.Floor(v) - 0.5)
			if dist < frac {
				frac, branch = dist, j
			}
		}

		if branch < 0 {
			x := slices.Clone(relaxed.X)
			for _, j := range vars {
				x[j] = math.Round(x[j])
			}
			best = newSolution(p, x, nodes, nil)
			slog.Debug("branch and bound incumbent", "objective", best.Objective, "nodes", nodes)
			continue
		}

		v := relaxed.X[branch]
		left := bbNode{lower: slices.Clone(node.lower), upper: slices.Clone(node.upper)}
		right := bbNode{lower: slices.Clone(node.lower), upper: slices.Clone(node.upper)}
		if binary {
			left.upper[branch] = 0
			right.lower[branch] = 1
		} else {
			left.upper[branch] = math.Floor(v)
			right.lower[branch] = math.Ceil(v)
		}
		stack = append(stack, left, right)
	}

	if best == nil {
		if capped {
			return nil, fmt.Errorf("%w: branch and bound explored %d nodes without an integer solution", ErrMaxIterations, nodes)
		}
		return nil, fmt.Errorf("%w: no integer solution", ErrInfeasible)
	}
	if capped {
		slog.Warn("branch and bound node limit reached, returning best incumbent",
			"nodes", nodes, "objective", best.Objective)
	}
	best.Iterations = nodes
	return best, nil
}
