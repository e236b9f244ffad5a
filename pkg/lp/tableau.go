package lp

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Tableau is the dense augmented matrix [A | I | b] with an objective row
// [-sense·c | 0 | 0]. The last column of every row holds the right-hand
// side.
type Tableau struct {
	Rows  [][]float64
	Obj   []float64
	Basis []int

	NumVars  int
	NumSlack int
	Sense    Sense
}

// NewTableau builds the initial tableau of p with the slack columns as the
// starting basis. It does not require b ≥ 0; the standard simplex checks
// that separately.
func NewTableau(p Problem) (*Tableau, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n, m := p.numVars(), p.numConstraints()
	cols := n + m
	t := &Tableau{
		Rows:     make([][]float64, m),
		Obj:      make([]float64, cols+1),
		Basis:    make([]int, m),
		NumVars:  n,
		NumSlack: m,
		Sense:    p.Sense,
	}
	for i := range m {
		row := make([]float64, cols+1)
		copy(row, p.A[i])
		row[n+i] = 1
		row[cols] = p.B[i]
		t.Rows[i] = row
		t.Basis[i] = n + i
	}
	for j, c := range p.C {
		t.Obj[j] = -float64(p.Sense) * c
	}
	return t, nil
}

func (t *Tableau) cols() int { return len(t.Obj) - 1 }

// RHS returns the right-hand side of row i.
func (t *Tableau) RHS(i int) float64 { return t.Rows[i][t.cols()] }

// IsOptimal reports whether no reduced cost is negative.
func (t *Tableau) IsOptimal() bool {
	for j := range t.cols() {
		if t.Obj[j] < -Epsilon {
			return false
		}
	}
	return true
}

// EnteringVariable picks the column with the most negative reduced cost,
// preferring the lowest index on ties.
func (t *Tableau) EnteringVariable() (int, bool) {
	best, col := -Epsilon, -1
	for j := range t.cols() {
		if t.Obj[j] < best {
			best, col = t.Obj[j], j
		}
	}
	return col, col >= 0
}

// LeavingVariable runs the minimum ratio test on the entering column.
func (t *Tableau) LeavingVariable(col int) (int, error) {
	rhs := t.cols()
	row, minRatio := -1, math.Inf(1)
	for i, r := range t.Rows {
		if r[col] > Epsilon {
			ratio := r[rhs] / r[col]
			if ratio < minRatio {
				minRatio, row = ratio, i
			}
		}
	}
	if row < 0 {
		return -1, fmt.Errorf("%w: column %d has no positive entries", ErrUnbounded, col)
	}
	return row, nil
}

// Pivot makes column col basic in row row.
func (t *Tableau) Pivot(row, col int) {
	pr := t.Rows[row]
	pv := pr[col]
	for j := range pr {
		pr[j] /= pv
	}
	eliminate := func(r []float64) {
		f := r[col]
		if f == 0 {
			return
		}
		for j := range r {
			r[j] -= f * pr[j]
		}
	}
	for i, r := range t.Rows {
		if i != row {
			eliminate(r)
		}
	}
	eliminate(t.Obj)
	t.Basis[row] = col
}

// Solution reads the decision variables off the basis.
func (t *Tableau) Solution() []float64 {
	x := make([]float64, t.NumVars)
	for i, b := range t.Basis {
		if b < t.NumVars {
			x[b] = t.RHS(i)
		}
	}
	return x
}

// BasicRow returns the row in which col is basic.
func (t *Tableau) BasicRow(col int) (int, bool) {
	for i, b := range t.Basis {
		if b == col {
			return i, true
		}
	}
	return -1, false
}

// run pivots until optimal, returning the number of pivots performed.
func (t *Tableau) run(ctx context.Context, maxIter int) (int, error) {
	for iter := 0; ; iter++ {
		if t.IsOptimal() {
			return iter, nil
		}
		if iter >= maxIter {
			return iter, fmt.Errorf("%w: simplex stopped after %d pivots", ErrMaxIterations, iter)
		}
		if err := ctx.Err(); err != nil {
			return iter, err
		}
		col, ok := t.EnteringVariable()
		if !ok {
			return iter, nil
		}
		row, err := t.LeavingVariable(col)
		if err != nil {
			return iter, err
		}
		t.Pivot(row, col)
	}
}

// Clone returns a deep copy of the tableau.
func (t *Tableau) Clone() *Tableau {
	c := *t
	c.Rows = make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]float64(nil), r...)
	}
	c.Obj = append([]float64(nil), t.Obj...)
	c.Basis = append([]int(nil), t.Basis...)
	return &c
}

func (t *Tableau) String() string {
	var sb strings.Builder
	for i, r := range t.Rows {
		fmt.Fprintf(&sb, "x%-3d|", t.Basis[i])
		for _, v := range r {
			fmt.Fprintf(&sb, " %8.3f", v)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("z   |")
	for _, v := range t.Obj {
		fmt.Fprintf(&sb, " %8.3f", v)
	}
	sb.WriteByte('\n')
	return sb.String()
}
