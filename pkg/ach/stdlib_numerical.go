package ach

import (
	"context"

	"github.com/vito/achronyme/pkg/numeric"
)

const (
	defaultTolerance = 1e-10
	defaultIntervals = 1000
	defaultRootIter  = 100
)

func registerNumerical() {
	Builtin("diff").
		Module("numerical").
		Doc("central-difference derivative of f at x").
		Params("f", "x").
		Optional("h").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := i.realFunc(ctx, args, 0)
			if err != nil {
				return nil, err
			}
			x, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			h, err := optionalNumber(args, 2, 0)
			if err != nil {
				return nil, err
			}
			return numberResult(numeric.Derivative(f, x, h))
		})

	Builtin("diff2").
		Module("numerical").
		Doc("second derivative of f at x").
		Params("f", "x").
		Optional("h").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := i.realFunc(ctx, args, 0)
			if err != nil {
				return nil, err
			}
			x, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			h, err := optionalNumber(args, 2, 0)
			if err != nil {
				return nil, err
			}
			return numberResult(numeric.SecondDerivative(f, x, h))
		})

	integral := func(name, doc string, rule func(numeric.Func, float64, float64, int) (float64, error)) {
		Builtin(name).
			Module("numerical").
			Doc(doc).
			Params("f", "a", "b").
			Optional("n").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				f, err := i.realFunc(ctx, args, 0)
				if err != nil {
					return nil, err
				}
				a, err := args.Number(1)
				if err != nil {
					return nil, err
				}
				b, err := args.Number(2)
				if err != nil {
					return nil, err
				}
				n := defaultIntervals
				if args.Has(3) {
					if n, err = args.Int(3); err != nil {
						return nil, err
					}
				}
				return numberResult(rule(f, a, b, n))
			})
	}
	integral("integral", "definite integral of f over [a, b] by Simpson's rule", numeric.Simpson)
	integral("simpson", "composite Simpson's rule over n intervals", numeric.Simpson)
	integral("trapz", "composite trapezoidal rule over n intervals", numeric.Trapezoidal)

	Builtin("newton").
		Module("numerical").
		Doc("Newton-Raphson root of f from x0, given its derivative df").
		Params("f", "df", "x0").
		Optional("tol", "max_iter").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := i.realFunc(ctx, args, 0)
			if err != nil {
				return nil, err
			}
			df, err := i.realFunc(ctx, args, 1)
			if err != nil {
				return nil, err
			}
			x0, err := args.Number(2)
			if err != nil {
				return nil, err
			}
			tol, maxIter, err := rootLimits(args, 3)
			if err != nil {
				return nil, err
			}
			return numberResult(numeric.Newton(f, df, x0, tol, maxIter))
		})

	Builtin("secant").
		Module("numerical").
		Doc("secant-method root of f from x0 and x1").
		Params("f", "x0", "x1").
		Optional("tol", "max_iter").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := i.realFunc(ctx, args, 0)
			if err != nil {
				return nil, err
			}
			x0, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			x1, err := args.Number(2)
			if err != nil {
				return nil, err
			}
			tol, maxIter, err := rootLimits(args, 3)
			if err != nil {
				return nil, err
			}
			return numberResult(numeric.Secant(f, x0, x1, tol, maxIter))
		})

	Builtin("bisect").
		Module("numerical").
		Doc("root of f bracketed by [a, b]").
		Params("f", "a", "b").
		Optional("tol", "max_iter").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := i.realFunc(ctx, args, 0)
			if err != nil {
				return nil, err
			}
			a, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			b, err := args.Number(2)
			if err != nil {
				return nil, err
			}
			tol, maxIter, err := rootLimits(args, 3)
			if err != nil {
				return nil, err
			}
			return numberResult(numeric.Bisect(f, a, b, tol, maxIter))
		})
}

// realFunc wraps a user function as a numeric.Func. Non-number results
// are TypeErrors.
func (i *Interpreter) realFunc(ctx context.Context, args Args, k int) (numeric.Func, error) {
	fn, err := args.Func(k)
	if err != nil {
		return nil, err
	}
	name := args.def.Name
	return func(x float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := i.Apply(ctx, fn, NumberValue{Val: x})
		if err != nil {
			return 0, err
		}
		n, ok := Deref(v).(NumberValue)
		if !ok {
			return 0, typeErrorf("%s: function must return a Number, got %s", name, typeString(InferType(v)))
		}
		return n.Val, nil
	}, nil
}

func optionalNumber(args Args, k int, def float64) (float64, error) {
	if !args.Has(k) {
		return def, nil
	}
	return args.Number(k)
}

func rootLimits(args Args, k int) (float64, int, error) {
	tol, err := optionalNumber(args, k, defaultTolerance)
	if err != nil {
		return 0, 0, err
	}
	maxIter := defaultRootIter
	if args.Has(k + 1) {
		if maxIter, err = args.Int(k + 1); err != nil {
			return 0, 0, err
		}
	}
	return tol, maxIter, nil
}

func numberResult(f float64, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return NumberValue{Val: f}, nil
}
