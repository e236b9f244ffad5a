package numeric

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch reports operands whose shapes do not fit together.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingular reports a matrix that cannot be inverted or factorized.
	ErrSingular = errors.New("matrix is singular")
)

// FromRows builds a dense matrix from equal-length rows.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: matrix must not be empty", ErrDimensionMismatch)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimensionMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Rows copies a matrix out into row slices.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range c {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// Flat copies a matrix out in row-major order.
func Flat(m mat.Matrix) []float64 {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := range r {
		for j := range c {
			data = append(data, m.At(i, j))
		}
	}
	return data
}

func requireSquare(op string, a mat.Matrix) (int, error) {
	r, c := a.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: %s needs a square matrix, got %dx%d", ErrDimensionMismatch, op, r, c)
	}
	return r, nil
}

// MatMul returns a·b.
func MatMul(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	var out mat.Dense
	out.Mul(a, b)
	return &out, nil
}

// Transpose returns aᵀ as a fresh matrix.
func Transpose(a mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(a.T())
}

// Det returns the determinant of a square matrix.
func Det(a mat.Matrix) (float64, error) {
	if _, err := requireSquare("det", a); err != nil {
		return 0, err
	}
	return mat.Det(a), nil
}

// Inverse returns a⁻¹, failing with ErrSingular when a is singular or too
// ill-conditioned to invert.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	if _, err := requireSquare("inverse", a); err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}

// Solve returns x with a·x = b. b may have several columns.
func Solve(a, b mat.Matrix) (*mat.Dense, error) {
	n, err := requireSquare("solve", a)
	if err != nil {
		return nil, err
	}
	if br, _ := b.Dims(); br != n {
		return nil, fmt.Errorf("%w: right-hand side has %d rows, expected %d", ErrDimensionMismatch, br, n)
	}
	var lu mat.LU
	lu.Factorize(a)
	var x mat.Dense
	if err := lu.SolveTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &x, nil
}

// LU factorizes a as P·L·U and returns the three factors.
func LU(a mat.Matrix) (l, u, p *mat.Dense, err error) {
	n, err := requireSquare("lu", a)
	if err != nil {
		return nil, nil, nil, err
	}
	var f mat.LU
	f.Factorize(a)

	var lt, ut mat.TriDense
	f.LTo(&lt)
	f.UTo(&ut)

	perm := mat.NewDense(n, n, nil)
	for i := range n {
		perm.Set(i, i, 1)
	}
	perm.PermuteRows(f.RowPivots(nil), false)
	return mat.DenseCopyOf(&lt), mat.DenseCopyOf(&ut), perm, nil
}

// QR factorizes a (rows ≥ columns) as Q·R.
func QR(a mat.Matrix) (q, r *mat.Dense, err error) {
	rows, cols := a.Dims()
	if rows < cols {
		return nil, nil, fmt.Errorf("%w: qr needs rows >= columns, got %dx%d", ErrDimensionMismatch, rows, cols)
	}
	var f mat.QR
	f.Factorize(a)
	q, r = &mat.Dense{}, &mat.Dense{}
	f.QTo(q)
	f.RTo(r)
	return q, r, nil
}

// Cholesky returns the lower-triangular L with a = L·Lᵀ. The matrix must
// be symmetric positive definite.
func Cholesky(a mat.Matrix) (*mat.Dense, error) {
	n, err := requireSquare("cholesky", a)
	if err != nil {
		return nil, err
	}
	sym := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			if a.At(i, j) != a.At(j, i) {
				return nil, fmt.Errorf("%w: cholesky needs a symmetric matrix", ErrDimensionMismatch)
			}
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: matrix is not positive definite", ErrSingular)
	}
	var l mat.TriDense
	chol.LTo(&l)
	return mat.DenseCopyOf(&l), nil
}

// Eigenvalues returns the eigenvalues of a square matrix.
func Eigenvalues(a mat.Matrix) ([]complex128, error) {
	if _, err := requireSquare("eigvals", a); err != nil {
		return nil, err
	}
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition failed", ErrSingular)
	}
	return eig.Values(nil), nil
}
