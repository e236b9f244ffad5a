package ach

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vito/achronyme/pkg/numeric"
)

func registerLinalg() {
	Builtin("dot").
		Module("linalg").
		Doc("inner product of two vectors").
		Params("a", "b").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			a, b, err := vectorPair(args)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: floats.Dot(a, b)}, nil
		})

	Builtin("cross").
		Module("linalg").
		Doc("cross product of two 3-vectors").
		Params("a", "b").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			a, b, err := vectorPair(args)
			if err != nil {
				return nil, err
			}
			if len(a) != 3 {
				return nil, Raise(KindDimensionMismatch, "cross needs 3-vectors, got length %d", len(a))
			}
			return numbers([]float64{
				a[1]*b[2] - a[2]*b[1],
				a[2]*b[0] - a[0]*b[2],
				a[0]*b[1] - a[1]*b[0],
			}), nil
		})

	Builtin("norm").
		Module("linalg").
		Doc("Euclidean norm, or the L-p norm when p is given").
		Params("v").
		Optional("p").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			v, err := args.Floats(0)
			if err != nil {
				return nil, err
			}
			p := 2.0
			if args.Has(1) {
				if p, err = args.Number(1); err != nil {
					return nil, err
				}
			}
			return NumberValue{Val: floats.Norm(v, p)}, nil
		})

	Builtin("identity").
		Module("linalg").
		Doc("n×n identity matrix").
		Params("n").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			n, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, typeErrorf("identity: n must be positive, got %d", n)
			}
			data := make([]float64, n*n)
			for k := range n {
				data[k*n+k] = 1
			}
			return TensorValue{Shape: []int{n, n}, Data: data}, nil
		})

	Builtin("trace").
		Module("linalg").
		Doc("sum of the diagonal").
		Params("m").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			m, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			r, c := m.Dims()
			if r != c {
				return nil, Raise(KindDimensionMismatch, "trace needs a square matrix, got %dx%d", r, c)
			}
			return NumberValue{Val: mat.Trace(m)}, nil
		})

	Builtin("matmul").
		Module("linalg").
		Doc("matrix product").
		Params("a", "b").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			a, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			b, err := matrixArg(args, 1)
			if err != nil {
				return nil, err
			}
			p, err := numeric.MatMul(a, b)
			if err != nil {
				return nil, err
			}
			return denseValue(p), nil
		})

	matrixOp := func(name, doc string, fn func(mat.Matrix) (mat.Matrix, error)) {
		Builtin(name).
			Module("linalg").
			Doc(doc).
			Params("m").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				m, err := matrixArg(args, 0)
				if err != nil {
					return nil, err
				}
				r, err := fn(m)
				if err != nil {
					return nil, err
				}
				return denseValue(r), nil
			})
	}
	matrixOp("transpose", "swaps rows and columns", func(m mat.Matrix) (mat.Matrix, error) {
		return numeric.Transpose(m), nil
	})
	matrixOp("inverse", "matrix inverse; singular matrices are an error", func(m mat.Matrix) (mat.Matrix, error) {
		return numeric.Inverse(m)
	})
	matrixOp("cholesky", "lower-triangular L with m = L·Lᵀ", func(m mat.Matrix) (mat.Matrix, error) {
		return numeric.Cholesky(m)
	})

	Builtin("det").
		Module("linalg").
		Doc("determinant of a square matrix").
		Params("m").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			m, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			d, err := numeric.Det(m)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: d}, nil
		})

	Builtin("solve").
		Module("linalg").
		Doc("x with A·x = b").
		Params("A", "b").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			a, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			b, err := args.Floats(1)
			if err != nil {
				return nil, err
			}
			x, err := numeric.Solve(a, mat.NewDense(len(b), 1, b))
			if err != nil {
				return nil, err
			}
			return numbers(numeric.Flat(x)), nil
		})

	Builtin("lu").
		Module("linalg").
		Doc("LU factorization with partial pivoting, as {L, U, P}").
		Params("m").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			m, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			l, u, p, err := numeric.LU(m)
			if err != nil {
				return nil, err
			}
			return NewRecord(map[string]Value{
				"L": denseValue(l),
				"U": denseValue(u),
				"P": denseValue(p),
			}), nil
		})

	Builtin("qr").
		Module("linalg").
		Doc("QR factorization, as {Q, R}").
		Params("m").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			m, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			q, r, err := numeric.QR(m)
			if err != nil {
				return nil, err
			}
			return NewRecord(map[string]Value{
				"Q": denseValue(q),
				"R": denseValue(r),
			}), nil
		})

	Builtin("eigvals").
		Module("linalg").
		Doc("eigenvalues; complex when any has an imaginary part").
		Params("m").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			m, err := matrixArg(args, 0)
			if err != nil {
				return nil, err
			}
			vals, err := numeric.Eigenvalues(m)
			if err != nil {
				return nil, err
			}
			out := make([]Value, len(vals))
			for k, z := range vals {
				if imag(z) == 0 {
					out[k] = NumberValue{Val: real(z)}
				} else {
					out[k] = ComplexValue{Val: z}
				}
			}
			return VectorValue{Elements: out}, nil
		})
}

func vectorPair(args Args) ([]float64, []float64, error) {
	a, err := args.Floats(0)
	if err != nil {
		return nil, nil, err
	}
	b, err := args.Floats(1)
	if err != nil {
		return nil, nil, err
	}
	if len(a) != len(b) {
		return nil, nil, Raise(KindDimensionMismatch, "%s: vectors have lengths %d and %d", args.def.Name, len(a), len(b))
	}
	return a, b, nil
}

func matrixArg(args Args, k int) (*mat.Dense, error) {
	rows, err := args.Matrix(k)
	if err != nil {
		return nil, err
	}
	return numeric.FromRows(rows)
}

func denseValue(m mat.Matrix) TensorValue {
	r, c := m.Dims()
	return TensorValue{Shape: []int{r, c}, Data: numeric.Flat(m)}
}
