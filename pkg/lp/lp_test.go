package lp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	convexlp "gonum.org/v1/gonum/optimize/convex/lp"
)

func classic() Problem {
	// max 3x + 5y s.t. x ≤ 4, 2y ≤ 12, 3x + 2y ≤ 18
	return Problem{
		C: []float64{3, 5},
		A: [][]float64{
			{1, 0},
			{0, 2},
			{3, 2},
		},
		B:     []float64{4, 12, 18},
		Sense: Maximize,
	}
}

// referenceOptimum solves p with gonum's standard-form simplex.
func referenceOptimum(t *testing.T, p Problem) float64 {
	t.Helper()
	n := len(p.C)
	rows := len(p.A) + n
	g := mat.NewDense(rows, n, nil)
	h := make([]float64, rows)
	for i, row := range p.A {
		g.SetRow(i, row)
		h[i] = p.B[i]
	}
	for j := range n {
		g.Set(len(p.A)+j, j, -1)
	}
	c := make([]float64, n)
	for j := range n {
		c[j] = -float64(p.Sense) * p.C[j]
	}
	cNew, aNew, bNew := convexlp.Convert(c, g, h, nil, nil)
	opt, _, err := convexlp.Simplex(cNew, aNew, bNew, 1e-10, nil)
	require.NoError(t, err)
	return -float64(p.Sense) * opt
}

func TestSimplex(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		problem   Problem
		objective float64
		x         []float64
	}{
		{
			name:      "classic maximization",
			problem:   classic(),
			objective: 36,
			x:         []float64{2, 6},
		},
		{
			name: "minimization at origin",
			problem: Problem{
				C:     []float64{2, 3},
				A:     [][]float64{{1, 1}},
				B:     []float64{10},
				Sense: Minimize,
			},
			objective: 0,
			x:         []float64{0, 0},
		},
		{
			name: "three variables",
			problem: Problem{
				C: []float64{2, 3, 4},
				A: [][]float64{
					{3, 2, 1},
					{2, 5, 3},
				},
				B:     []float64{10, 15},
				Sense: Maximize,
			},
			objective: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := Simplex(ctx, tt.problem, DefaultOptions())
			require.NoError(t, err)
			assert.InDelta(t, tt.objective, sol.Objective, 1e-9)
			assert.InDelta(t, referenceOptimum(t, tt.problem), sol.Objective, 1e-6)
			if tt.x != nil {
				assert.InDeltaSlice(t, tt.x, sol.X, 1e-9)
			}
			for _, b := range sol.Tableau.Basis {
				assert.Less(t, b, sol.Tableau.NumVars+sol.Tableau.NumSlack)
			}
		})
	}
}

func TestSimplexRejectsNegativeRHS(t *testing.T) {
	p := classic()
	p.B[0] = -1
	_, err := Simplex(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidProblem)
}

func TestSimplexUnbounded(t *testing.T) {
	p := Problem{
		C:     []float64{1, 1},
		A:     [][]float64{{1, -1}},
		B:     []float64{1},
		Sense: Maximize,
	}
	_, err := Simplex(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrUnbounded)
}

func TestValidate(t *testing.T) {
	_, err := Simplex(context.Background(), Problem{C: []float64{1}, A: [][]float64{{1}}, B: []float64{1}, Sense: 0}, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidProblem)

	_, err = Simplex(context.Background(), Problem{C: []float64{1, 2}, A: [][]float64{{1}}, B: []float64{1}, Sense: Maximize}, DefaultOptions())
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMaxIterations(t *testing.T) {
	_, err := Simplex(context.Background(), classic(), Options{MaxIterations: 1})
	require.ErrorIs(t, err, ErrMaxIterations)
}

func TestTwoPhase(t *testing.T) {
	ctx := context.Background()

	// min 2x + 3y s.t. x + y ≥ 4, x ≤ 3
	p := Problem{
		C: []float64{2, 3},
		A: [][]float64{
			{-1, -1},
			{1, 0},
		},
		B:     []float64{-4, 3},
		Sense: Minimize,
	}
	sol, err := TwoPhase(ctx, p, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 9, sol.Objective, 1e-9)
	assert.InDeltaSlice(t, []float64{3, 1}, sol.X, 1e-9)
	assert.InDelta(t, referenceOptimum(t, p), sol.Objective, 1e-6)

	// Phase 2 must re-price the real objective rather than stop at the
	// first feasible vertex.
	maxP := Problem{
		C: []float64{1, 1},
		A: [][]float64{
			{-1, 0},
			{1, 0},
			{0, 1},
		},
		B:     []float64{-1, 5, 2},
		Sense: Maximize,
	}
	sol, err = TwoPhase(ctx, maxP, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 7, sol.Objective, 1e-9)
	assert.Len(t, sol.Tableau.Obj, 2+3+1)
}

func TestTwoPhaseInfeasible(t *testing.T) {
	// x ≥ 5 and x ≤ 2
	p := Problem{
		C:     []float64{1},
		A:     [][]float64{{-1}, {1}},
		B:     []float64{-5, 2},
		Sense: Maximize,
	}
	_, err := TwoPhase(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestDualSimplex(t *testing.T) {
	// min 2x + 3y s.t. x + y ≥ 4
	p := Problem{
		C:     []float64{2, 3},
		A:     [][]float64{{-1, -1}},
		B:     []float64{-4},
		Sense: Minimize,
	}
	sol, err := DualSimplex(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 8, sol.Objective, 1e-9)
	assert.InDeltaSlice(t, []float64{4, 0}, sol.X, 1e-9)
}

func TestDualSimplexFallsBack(t *testing.T) {
	sol, err := DualSimplex(context.Background(), classic(), DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 36, sol.Objective, 1e-9)
}

func TestRevisedSimplex(t *testing.T) {
	ctx := context.Background()
	for _, p := range []Problem{
		classic(),
		{
			C:     []float64{2, 3, 4},
			A:     [][]float64{{3, 2, 1}, {2, 5, 3}},
			B:     []float64{10, 15},
			Sense: Maximize,
		},
	} {
		want, err := Simplex(ctx, p, DefaultOptions())
		require.NoError(t, err)
		got, err := RevisedSimplex(ctx, p, DefaultOptions())
		require.NoError(t, err)
		assert.InDelta(t, want.Objective, got.Objective, 1e-9)
		assert.Greater(t, got.Iterations, 0)
	}
}

func TestSensitivity(t *testing.T) {
	p := classic()
	sol, err := Simplex(context.Background(), p, DefaultOptions())
	require.NoError(t, err)

	prices, err := ShadowPrices(sol)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1.5, 1}, prices, 1e-9)

	price, err := ShadowPrice(sol, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, price, 1e-9)

	_, err = ShadowPrice(sol, 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	// The basis stays optimal while 0 ≤ c₁ ≤ 7.5 and c₂ ≥ 2.
	r, err := CostRange(sol, p.C, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, r.Lower, 1e-9)
	assert.InDelta(t, 7.5, r.Upper, 1e-9)

	r, err = CostRange(sol, p.C, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2, r.Lower, 1e-9)
	assert.True(t, math.IsInf(r.Upper, 1))

	// 6 ≤ b₂ ≤ 18 and 12 ≤ b₃ ≤ 24.
	r, err = RHSRange(sol, p.B, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6, r.Lower, 1e-9)
	assert.InDelta(t, 18, r.Upper, 1e-9)

	r, err = RHSRange(sol, p.B, 2)
	require.NoError(t, err)
	assert.InDelta(t, 12, r.Lower, 1e-9)
	assert.InDelta(t, 24, r.Upper, 1e-9)

	_, err = CostRange(&Solution{}, p.C, 0)
	require.ErrorIs(t, err, ErrInvalidProblem)
}

func TestKnapsack(t *testing.T) {
	p := Problem{
		C:     []float64{60, 100, 120},
		A:     [][]float64{{10, 20, 30}},
		B:     []float64{50},
		Sense: Maximize,
	}
	sol, err := Binary(context.Background(), p, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, sol.X)
	assert.InDelta(t, 220, sol.Objective, 1e-9)

	// The integer optimum never beats the relaxation.
	relaxed, err := Simplex(context.Background(), Problem{
		C:     p.C,
		A:     [][]float64{{10, 20, 30}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		B:     []float64{50, 1, 1, 1},
		Sense: Maximize,
	}, DefaultOptions())
	require.NoError(t, err)
	assert.LessOrEqual(t, sol.Objective, relaxed.Objective+1e-9)
}

func TestBranchAndBound(t *testing.T) {
	// max 5x + 4y s.t. 6x + 4y ≤ 24, x + 2y ≤ 6, integer
	p := Problem{
		C:     []float64{5, 4},
		A:     [][]float64{{6, 4}, {1, 2}},
		B:     []float64{24, 6},
		Sense: Maximize,
	}
	sol, err := BranchAndBound(context.Background(), p, nil, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 20, sol.Objective, 1e-9)
	for _, v := range sol.X {
		assert.Equal(t, math.Round(v), v)
	}
}

func TestBranchAndBoundInfeasible(t *testing.T) {
	// 2x = 1 has no integer solution: 2x ≤ 1 and -2x ≤ -1
	p := Problem{
		C:     []float64{1},
		A:     [][]float64{{2}, {-2}},
		B:     []float64{1, -1},
		Sense: Maximize,
	}
	_, err := BranchAndBound(context.Background(), p, nil, DefaultOptions())
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestBranchAndBoundCap(t *testing.T) {
	p := Problem{
		C:     []float64{5, 4},
		A:     [][]float64{{6, 4}, {1, 2}},
		B:     []float64{24, 6},
		Sense: Maximize,
	}
	_, err := BranchAndBound(context.Background(), p, nil, Options{MaxNodes: 1})
	require.ErrorIs(t, err, ErrMaxIterations)
}

func TestSolveBounded(t *testing.T) {
	p := classic()
	sol, err := SolveBounded(context.Background(), p,
		[]float64{1, 0}, []float64{math.Inf(1), 5}, DefaultOptions())
	require.NoError(t, err)
	// y ≤ 5 binds, then 3x ≤ 8.
	assert.InDeltaSlice(t, []float64{8.0 / 3, 5}, sol.X, 1e-9)
	assert.InDelta(t, 33, sol.Objective, 1e-9)
}

func TestObjectiveValue(t *testing.T) {
	z, err := ObjectiveValue([]float64{1, 2}, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 11.0, z)

	_, err = ObjectiveValue([]float64{1}, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Simplex(ctx, classic(), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}
