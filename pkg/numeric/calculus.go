// Package numeric holds the numerical routines behind the calculus and
// linear algebra builtins. Functions are evaluated through Func so callers
// can surface evaluation errors from user code.
package numeric

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate"
)

var (
	// ErrMaxIterations reports an iterative method that ran out of budget
	// before converging.
	ErrMaxIterations = errors.New("maximum iterations exceeded")

	// ErrInvalidArgument reports arguments a routine cannot work with.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Func is a real function that may fail to evaluate.
type Func func(float64) (float64, error)

// capture adapts f to the plain signature gonum expects, remembering the
// first error and returning NaN from then on.
func capture(f Func) (func(float64) float64, func() error) {
	var first error
	return func(x float64) float64 {
			if first != nil {
				return math.NaN()
			}
			y, err := f(x)
			if err != nil {
				first = err
				return math.NaN()
			}
			return y
		}, func() error {
			return first
		}
}

func stepSettings(formula fd.Formula, h float64) (*fd.Settings, error) {
	if h < 0 || math.IsNaN(h) {
		return nil, fmt.Errorf("%w: step must be non-negative, got %g", ErrInvalidArgument, h)
	}
	return &fd.Settings{Formula: formula, Step: h}, nil
}

// Derivative approximates f'(x) with a central difference of step h. A zero
// step uses the formula's default.
func Derivative(f Func, x, h float64) (float64, error) {
	settings, err := stepSettings(fd.Central, h)
	if err != nil {
		return 0, err
	}
	plain, errf := capture(f)
	d := fd.Derivative(plain, x, settings)
	return d, errf()
}

// SecondDerivative approximates f''(x) with a central difference of step h.
func SecondDerivative(f Func, x, h float64) (float64, error) {
	settings, err := stepSettings(fd.Central2nd, h)
	if err != nil {
		return 0, err
	}
	plain, errf := capture(f)
	d := fd.Derivative(plain, x, settings)
	return d, errf()
}

// sample evaluates f at n+1 evenly spaced points over [a, b].
func sample(f Func, a, b float64, n int) ([]float64, []float64, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: need at least one interval, got %d", ErrInvalidArgument, n)
	}
	if !(a < b) {
		return nil, nil, fmt.Errorf("%w: interval [%g, %g] is empty", ErrInvalidArgument, a, b)
	}
	xs := make([]float64, n+1)
	ys := make([]float64, n+1)
	h := (b - a) / float64(n)
	for i := range xs {
		xs[i] = a + float64(i)*h
		if i == n {
			xs[i] = b
		}
		y, err := f(xs[i])
		if err != nil {
			return nil, nil, err
		}
		ys[i] = y
	}
	return xs, ys, nil
}

// integrateWith handles reversed and degenerate bounds before sampling.
func integrateWith(rule func(x, f []float64) float64, f Func, a, b float64, n int) (float64, error) {
	if a == b {
		return 0, nil
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	xs, ys, err := sample(f, a, b, n)
	if err != nil {
		return 0, err
	}
	return sign * rule(xs, ys), nil
}

// Trapezoidal integrates f over [a, b] with n trapezoids.
func Trapezoidal(f Func, a, b float64, n int) (float64, error) {
	return integrateWith(integrate.Trapezoidal, f, a, b, n)
}

// Simpson integrates f over [a, b] with the composite Simpson rule over n
// intervals. At least two intervals are needed.
func Simpson(f Func, a, b float64, n int) (float64, error) {
	if n < 2 {
		return 0, fmt.Errorf("%w: simpson needs at least 2 intervals, got %d", ErrInvalidArgument, n)
	}
	return integrateWith(integrate.Simpsons, f, a, b, n)
}

// Newton finds a root of f from x0 using its derivative df. It stops when
// |f(x)| < tol.
func Newton(f, df Func, x0, tol float64, maxIter int) (float64, error) {
	x := x0
	for range maxIter {
		fx, err := f(x)
		if err != nil {
			return 0, err
		}
		if math.Abs(fx) < tol {
			return x, nil
		}
		dfx, err := df(x)
		if err != nil {
			return 0, err
		}
		if math.Abs(dfx) < 1e-15 {
			return 0, fmt.Errorf("%w: newton: derivative vanished at x = %g", ErrInvalidArgument, x)
		}
		x -= fx / dfx
	}
	return 0, fmt.Errorf("%w: newton did not converge in %d iterations", ErrMaxIterations, maxIter)
}

// Secant finds a root of f from the two starting points x0 and x1.
func Secant(f Func, x0, x1, tol float64, maxIter int) (float64, error) {
	f0, err := f(x0)
	if err != nil {
		return 0, err
	}
	for range maxIter {
		f1, err := f(x1)
		if err != nil {
			return 0, err
		}
		if math.Abs(f1) < tol {
			return x1, nil
		}
		if f1 == f0 {
			return 0, fmt.Errorf("%w: secant: flat step at x = %g", ErrInvalidArgument, x1)
		}
		x0, x1, f0 = x1, x1-f1*(x1-x0)/(f1-f0), f1
	}
	return 0, fmt.Errorf("%w: secant did not converge in %d iterations", ErrMaxIterations, maxIter)
}

// Bisect finds a root of f in [a, b], where f(a) and f(b) differ in sign.
// It stops once the bracket is narrower than tol.
func Bisect(f Func, a, b, tol float64, maxIter int) (float64, error) {
	fa, err := f(a)
	if err != nil {
		return 0, err
	}
	fb, err := f(b)
	if err != nil {
		return 0, err
	}
	switch {
	case fa == 0:
		return a, nil
	case fb == 0:
		return b, nil
	case fa*fb > 0:
		return 0, fmt.Errorf("%w: bisect: f(a) and f(b) must have opposite signs", ErrInvalidArgument)
	}
	for range maxIter {
		if math.Abs(b-a) <= tol {
			return (a + b) / 2, nil
		}
		c := (a + b) / 2
		fc, err := f(c)
		if err != nil {
			return 0, err
		}
		if math.Abs(fc) < tol {
			return c, nil
		}
		if fa*fc < 0 {
			b = c
		} else {
			a, fa = c, fc
		}
	}
	return 0, fmt.Errorf("%w: bisect did not converge in %d iterations", ErrMaxIterations, maxIter)
}
