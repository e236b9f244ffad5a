package lp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Simplex runs the standard tableau simplex. Every entry of b must be
// non-negative so that the slack basis is feasible.
func Simplex(ctx context.Context, p Problem, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	t, err := NewTableau(p)
	if err != nil {
		return nil, err
	}
	for i, b := range p.B {
		if b < 0 {
			return nil, fmt.Errorf("%w: b[%d] = %g is negative; use the two-phase method", ErrInvalidProblem, i, b)
		}
	}
	iters, err := t.run(ctx, opts.MaxIterations)
	if err != nil {
		return nil, err
	}
	return newSolution(p, t.Solution(), iters, t), nil
}

// Solve picks the standard simplex when the slack basis is feasible and the
// two-phase method otherwise.
func Solve(ctx context.Context, p Problem, opts Options) (*Solution, error) {
	for _, b := range p.B {
		if b < 0 {
			return TwoPhase(ctx, p, opts)
		}
	}
	return Simplex(ctx, p, opts)
}

// TwoPhase solves problems whose right-hand side may be negative. Rows with
// bᵢ < 0 are negated and given an artificial variable; Phase 1 drives the
// artificials to zero and Phase 2 optimizes the real objective from the
// resulting basis.
func TwoPhase(ctx context.Context, p Problem, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n, m := p.numVars(), p.numConstraints()

	var artRows []int
	for i, b := range p.B {
		if b < 0 {
			artRows = append(artRows, i)
		}
	}
	if len(artRows) == 0 {
		return Simplex(ctx, p, opts)
	}

	k := len(artRows)
	cols := n + m + k
	rows := make([][]float64, m)
	basis := make([]int, m)
	for i := range m {
		row := make([]float64, cols+1)
		copy(row, p.A[i])
		row[n+i] = 1
		row[cols] = p.B[i]
		basis[i] = n + i
		rows[i] = row
	}
	for a, i := range artRows {
		row := rows[i]
		for j := range row {
			row[j] = -row[j]
		}
		row[n+m+a] = 1
		basis[i] = n + m + a
	}

	// Phase 1: maximize -Σ artificials, priced out against the basis.
	obj := make([]float64, cols+1)
	for a := range k {
		obj[n+m+a] = 1
	}
	for _, i := range artRows {
		for j := range obj {
			obj[j] -= rows[i][j]
		}
	}

	phase1 := &Tableau{
		Rows:     rows,
		Obj:      obj,
		Basis:    basis,
		NumVars:  n,
		NumSlack: m,
		Sense:    Maximize,
	}
	iters1, err := phase1.run(ctx, opts.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("phase 1: %w", err)
	}
	if w := phase1.Obj[cols]; math.Abs(w) > 1e-8 {
		return nil, fmt.Errorf("%w: phase 1 ended with artificial sum %g", ErrInfeasible, -w)
	}

	// Pivot zero-level artificials out of the basis. A row with no
	// non-artificial entry left is redundant and dropped.
	var keep []int
	for i := range phase1.Rows {
		if phase1.Basis[i] < n+m {
			keep = append(keep, i)
			continue
		}
		pivoted := false
		for j := range n + m {
			if math.Abs(phase1.Rows[i][j]) > Epsilon {
				phase1.Pivot(i, j)
				pivoted = true
				break
			}
		}
		if pivoted {
			keep = append(keep, i)
		} else {
			slog.Debug("dropping redundant constraint after phase 1", "row", i)
		}
	}

	// Phase 2: drop artificial columns and re-price the original objective.
	phase2 := &Tableau{
		Rows:     make([][]float64, len(keep)),
		Obj:      make([]float64, n+m+1),
		Basis:    make([]int, len(keep)),
		NumVars:  n,
		NumSlack: m,
		Sense:    p.Sense,
	}
	for r, i := range keep {
		row := make([]float64, n+m+1)
		copy(row, phase1.Rows[i][:n+m])
		row[n+m] = phase1.Rows[i][cols]
		phase2.Rows[r] = row
		phase2.Basis[r] = phase1.Basis[i]
	}
	for j, c := range p.C {
		phase2.Obj[j] = -float64(p.Sense) * c
	}
	for r, b := range phase2.Basis {
		f := phase2.Obj[b]
		if f == 0 {
			continue
		}
		for j := range phase2.Obj {
			phase2.Obj[j] -= f * phase2.Rows[r][j]
		}
	}

	iters2, err := phase2.run(ctx, opts.MaxIterations-iters1)
	if err != nil {
		return nil, fmt.Errorf("phase 2: %w", err)
	}
	return newSolution(p, phase2.Solution(), iters1+iters2, phase2), nil
}

// DualSimplex starts from a dual feasible slack basis and restores primal
// feasibility. Negative entries of b are allowed. When the starting basis is
// not dual feasible the problem is handed to the two-phase method.
func DualSimplex(ctx context.Context, p Problem, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	t, err := NewTableau(p)
	if err != nil {
		return nil, err
	}
	if !t.IsOptimal() {
		slog.Debug("dual simplex start is not dual feasible, using two-phase")
		return TwoPhase(ctx, p, opts)
	}

	rhs := t.cols()
	for iter := 0; ; iter++ {
		row, minRHS := -1, -Epsilon
		for i, r := range t.Rows {
			if r[rhs] < minRHS {
				minRHS, row = r[rhs], i
			}
		}
		if row < 0 {
			return newSolution(p, t.Solution(), iter, t), nil
		}
		if iter >= opts.MaxIterations {
			return nil, fmt.Errorf("%w: dual simplex stopped after %d pivots", ErrMaxIterations, iter)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		col, minRatio := -1, math.Inf(1)
		for j := range rhs {
			a := t.Rows[row][j]
			if a < -Epsilon {
				ratio := math.Abs(t.Obj[j] / a)
				if ratio < minRatio {
					minRatio, col = ratio, j
				}
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("%w: row %d has no negative entries", ErrInfeasible, row)
		}
		t.Pivot(row, col)
	}
}
