package lp

import (
	"fmt"
	"math"
)

// Range is a closed interval. Unbounded ends are ±Inf.
type Range struct {
	Lower, Upper float64
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Lower, r.Upper)
}

func optimalTableau(sol *Solution) (*Tableau, error) {
	if sol == nil || sol.Tableau == nil {
		return nil, fmt.Errorf("%w: sensitivity analysis needs a tableau solution", ErrInvalidProblem)
	}
	if !sol.Tableau.IsOptimal() {
		return nil, fmt.Errorf("%w: tableau is not optimal", ErrInvalidProblem)
	}
	return sol.Tableau, nil
}

// ShadowPrice returns the marginal change of the objective per unit of
// bᵢ, read from the objective row at the slack column of constraint i.
func ShadowPrice(sol *Solution, i int) (float64, error) {
	t, err := optimalTableau(sol)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= t.NumSlack {
		return 0, fmt.Errorf("%w: constraint %d out of range [0, %d)", ErrDimensionMismatch, i, t.NumSlack)
	}
	return float64(t.Sense) * t.Obj[t.NumVars+i], nil
}

// ShadowPrices returns every constraint's shadow price.
func ShadowPrices(sol *Solution) ([]float64, error) {
	t, err := optimalTableau(sol)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, t.NumSlack)
	for i := range prices {
		prices[i] = float64(t.Sense) * t.Obj[t.NumVars+i]
	}
	return prices, nil
}

// CostRange returns the interval over which c[j] can move without changing
// the optimal basis.
func CostRange(sol *Solution, c []float64, j int) (Range, error) {
	t, err := optimalTableau(sol)
	if err != nil {
		return Range{}, err
	}
	if j < 0 || j >= t.NumVars || j >= len(c) {
		return Range{}, fmt.Errorf("%w: variable %d out of range [0, %d)", ErrDimensionMismatch, j, t.NumVars)
	}

	// Work in the maximization form c' = sense·c, then map back.
	sense := float64(t.Sense)
	cj := sense * c[j]
	lo, hi := math.Inf(-1), math.Inf(1)

	if row, basic := t.BasicRow(j); basic {
		dLo, dHi := math.Inf(-1), math.Inf(1)
		for k := range t.cols() {
			if k == j || isBasic(t, k) {
				continue
			}
			a := t.Rows[row][k]
			switch {
			case a > Epsilon:
				dLo = math.Max(dLo, -t.Obj[k]/a)
			case a < -Epsilon:
				dHi = math.Min(dHi, -t.Obj[k]/a)
			}
		}
		lo, hi = cj+dLo, cj+dHi
	} else {
		hi = cj + t.Obj[j]
	}

	if t.Sense == Minimize {
		lo, hi = -hi, -lo
	}
	return Range{Lower: lo, Upper: hi}, nil
}

// RHSRange returns the interval over which b[i] can move while the
// current basis stays primal feasible. The column of B⁻¹ for constraint i
// is the slack column of the optimal tableau.
func RHSRange(sol *Solution, b []float64, i int) (Range, error) {
	t, err := optimalTableau(sol)
	if err != nil {
		return Range{}, err
	}
	if i < 0 || i >= t.NumSlack || i >= len(b) {
		return Range{}, fmt.Errorf("%w: constraint %d out of range [0, %d)", ErrDimensionMismatch, i, t.NumSlack)
	}

	col := t.NumVars + i
	dLo, dHi := math.Inf(-1), math.Inf(1)
	for r := range t.Rows {
		s := t.Rows[r][col]
		xb := t.RHS(r)
		switch {
		case s > Epsilon:
			dLo = math.Max(dLo, -xb/s)
		case s < -Epsilon:
			dHi = math.Min(dHi, -xb/s)
		}
	}
	return Range{Lower: b[i] + dLo, Upper: b[i] + dHi}, nil
}

func isBasic(t *Tableau, col int) bool {
	_, ok := t.BasicRow(col)
	return ok
}
