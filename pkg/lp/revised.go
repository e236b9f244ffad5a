package lp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RevisedSimplex keeps the basis inverse instead of the full tableau and
// prices reduced costs on demand. Like Simplex it requires b ≥ 0.
func RevisedSimplex(ctx context.Context, p Problem, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for i, b := range p.B {
		if b < 0 {
			return nil, fmt.Errorf("%w: b[%d] = %g is negative; use the two-phase method", ErrInvalidProblem, i, b)
		}
	}

	n, m := p.numVars(), p.numConstraints()
	cols := n + m

	// [A | I] in column access form, with the objective turned into a
	// maximization.
	column := func(j int) []float64 {
		a := make([]float64, m)
		for i := range m {
			if j < n {
				a[i] = p.A[i][j]
			} else if j-n == i {
				a[i] = 1
			}
		}
		return a
	}
	cost := func(j int) float64 {
		if j < n {
			return float64(p.Sense) * p.C[j]
		}
		return 0
	}

	basis := make([]int, m)
	inBasis := make([]bool, cols)
	for i := range m {
		basis[i] = n + i
		inBasis[n+i] = true
	}
	if m == 0 {
		for j := range n {
			if cost(j) > Epsilon {
				return nil, fmt.Errorf("%w: variable %d is unconstrained", ErrUnbounded, j)
			}
		}
		return newSolution(p, make([]float64, n), 0, nil), nil
	}
	b := mat.NewVecDense(m, append([]float64(nil), p.B...))

	var xB mat.VecDense
	iterations := 0
	for ; ; iterations++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		B := mat.NewDense(m, m, nil)
		for r, j := range basis {
			B.SetCol(r, column(j))
		}
		var Binv mat.Dense
		if err := Binv.Inverse(B); err != nil {
			// mat.Condition only warns about ill-conditioning.
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("revised simplex: singular basis: %w", err)
			}
		}
		xB.MulVec(&Binv, b)

		cB := mat.NewVecDense(m, nil)
		for r, j := range basis {
			cB.SetVec(r, cost(j))
		}
		var pi mat.VecDense
		pi.MulVec(Binv.T(), cB)

		entering, bestD := -1, Epsilon
		for j := range cols {
			if inBasis[j] {
				continue
			}
			d := cost(j) - mat.Dot(&pi, mat.NewVecDense(m, column(j)))
			if d > bestD {
				bestD, entering = d, j
			}
		}
		if entering < 0 {
			break
		}
		if iterations >= opts.MaxIterations {
			return nil, fmt.Errorf("%w: revised simplex stopped after %d pivots", ErrMaxIterations, iterations)
		}

		var dir mat.VecDense
		dir.MulVec(&Binv, mat.NewVecDense(m, column(entering)))
		leaving, minRatio := -1, math.Inf(1)
		for r := range m {
			if d := dir.AtVec(r); d > Epsilon {
				if ratio := xB.AtVec(r) / d; ratio < minRatio {
					minRatio, leaving = ratio, r
				}
			}
		}
		if leaving < 0 {
			return nil, fmt.Errorf("%w: column %d has no positive direction", ErrUnbounded, entering)
		}

		inBasis[basis[leaving]] = false
		basis[leaving] = entering
		inBasis[entering] = true
	}

	x := make([]float64, n)
	for r, j := range basis {
		if j < n {
			x[j] = xB.AtVec(r)
		}
	}
	return newSolution(p, x, iterations, nil), nil
}
