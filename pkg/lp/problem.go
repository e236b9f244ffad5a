// Package lp solves linear and integer programs of the form
//
//	maximize (or minimize) cᵀx subject to Ax ≤ b, x ≥ 0
//
// with a family of simplex variants and Branch-and-Bound.
package lp

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInfeasible        = errors.New("problem is infeasible")
	ErrUnbounded         = errors.New("problem is unbounded")
	ErrMaxIterations     = errors.New("maximum iterations exceeded")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidProblem    = errors.New("invalid problem")
)

const (
	// Epsilon is the pivoting tolerance.
	Epsilon = 1e-10

	// IntegerTolerance decides when a relaxed value counts as integral.
	IntegerTolerance = 1e-6
)

// Sense selects the optimization direction. It doubles as the sign applied
// to the objective row of the tableau.
type Sense int

const (
	Maximize Sense = 1
	Minimize Sense = -1
)

func (s Sense) String() string {
	switch s {
	case Maximize:
		return "max"
	case Minimize:
		return "min"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Problem is an LP in inequality form.
type Problem struct {
	C     []float64
	A     [][]float64
	B     []float64
	Sense Sense
}

// Validate checks the shape of the problem.
func (p Problem) Validate() error {
	if p.Sense != Maximize && p.Sense != Minimize {
		return fmt.Errorf("%w: sense must be 1 (max) or -1 (min), got %d", ErrInvalidProblem, p.Sense)
	}
	if len(p.C) == 0 {
		return fmt.Errorf("%w: objective has no variables", ErrInvalidProblem)
	}
	if len(p.A) != len(p.B) {
		return fmt.Errorf("%w: A has %d rows but b has %d entries", ErrDimensionMismatch, len(p.A), len(p.B))
	}
	for i, row := range p.A {
		if len(row) != len(p.C) {
			return fmt.Errorf("%w: row %d of A has %d columns, expected %d", ErrDimensionMismatch, i, len(row), len(p.C))
		}
	}
	return nil
}

func (p Problem) numVars() int        { return len(p.C) }
func (p Problem) numConstraints() int { return len(p.A) }

// Options bounds the work done by the solvers.
type Options struct {
	// MaxIterations caps simplex pivots per LP solve.
	MaxIterations int
	// MaxNodes caps Branch-and-Bound nodes for general integer programs.
	MaxNodes int
	// MaxBinaryNodes caps Branch-and-Bound nodes for 0-1 programs.
	MaxBinaryNodes int
}

// DefaultOptions returns the stock iteration caps.
func DefaultOptions() Options {
	return Options{
		MaxIterations:  10000,
		MaxNodes:       10000,
		MaxBinaryNodes: 50000,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = def.MaxNodes
	}
	if o.MaxBinaryNodes <= 0 {
		o.MaxBinaryNodes = def.MaxBinaryNodes
	}
	return o
}

// Solution is the result of a solve.
type Solution struct {
	X          []float64
	Objective  float64
	Iterations int

	// Tableau is the final tableau of a tableau-based solve. It is nil for
	// revised simplex and Branch-and-Bound results.
	Tableau *Tableau
}

// ObjectiveValue computes cᵀx.
func ObjectiveValue(c, x []float64) (float64, error) {
	if len(c) != len(x) {
		return 0, fmt.Errorf("%w: c has %d entries but x has %d", ErrDimensionMismatch, len(c), len(x))
	}
	var z float64
	for i := range c {
		z += c[i] * x[i]
	}
	return z, nil
}

func newSolution(p Problem, x []float64, iterations int, t *Tableau) *Solution {
	z, _ := ObjectiveValue(p.C, x)
	return &Solution{
		X:          x,
		Objective:  z,
		Iterations: iterations,
		Tableau:    t,
	}
}

// better reports whether objective a improves on b in the given sense.
func better(sense Sense, a, b float64) bool {
	const tol = 1e-9
	if sense == Maximize {
		return a > b+tol
	}
	return a < b-tol
}

func isIntegral(v float64) bool {
	return math.Abs(v-math.Round(v)) <= IntegerTolerance
}
