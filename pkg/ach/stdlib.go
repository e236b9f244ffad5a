package ach

import (
	"context"
	"fmt"
	"maps"
	"math"
	"math/cmplx"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vito/achronyme/pkg/ioctx"
)

// constants are resolved after the environment, so user bindings shadow
// them and snapshots never contain them.
var constants = map[string]Value{
	"pi":  NumberValue{Val: math.Pi},
	"e":   NumberValue{Val: math.E},
	"phi": NumberValue{Val: math.Phi},
	"inf": NumberValue{Val: math.Inf(1)},
	"nan": NumberValue{Val: math.NaN()},
	"i":   ComplexValue{Val: complex(0, 1)},
}

func init() {
	registerStdlib()
	registerHOFs()
	registerLinalg()
	registerNumerical()
	registerOptimization()
	registerGraphs()
	registerEnvBuiltins()
	registerStrings()
	registerDSP()
	registerArrays()
}

// registerStdlib registers the math, complex, container and meta builtins.
func registerStdlib() {
	unary := func(name, doc string, fr func(float64) Value, fc func(complex128) Value) {
		Builtin(name).
			Module("math").
			Doc(doc).
			Params("x").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				return elementwise(name, args.Get(0), fr, fc)
			})
	}
	rf := func(f func(float64) float64) func(float64) Value {
		return func(x float64) Value { return NumberValue{Val: f(x)} }
	}
	cf := func(f func(complex128) complex128) func(complex128) Value {
		return func(z complex128) Value { return ComplexValue{Val: f(z)} }
	}

	unary("sqrt", "square root; negative numbers give a complex result",
		func(x float64) Value {
			if x < 0 {
				return ComplexValue{Val: cmplx.Sqrt(complex(x, 0))}
			}
			return NumberValue{Val: math.Sqrt(x)}
		}, cf(cmplx.Sqrt))
	unary("abs", "absolute value, or modulus of a complex number",
		rf(math.Abs),
		func(z complex128) Value { return NumberValue{Val: cmplx.Abs(z)} })
	unary("exp", "e raised to x", rf(math.Exp), cf(cmplx.Exp))
	unary("ln", "natural logarithm", rf(math.Log), cf(cmplx.Log))
	unary("sin", "sine", rf(math.Sin), cf(cmplx.Sin))
	unary("cos", "cosine", rf(math.Cos), cf(cmplx.Cos))
	unary("tan", "tangent", rf(math.Tan), cf(cmplx.Tan))
	unary("asin", "arcsine", rf(math.Asin), cf(cmplx.Asin))
	unary("acos", "arccosine", rf(math.Acos), cf(cmplx.Acos))
	unary("atan", "arctangent", rf(math.Atan), cf(cmplx.Atan))
	unary("sinh", "hyperbolic sine", rf(math.Sinh), cf(cmplx.Sinh))
	unary("cosh", "hyperbolic cosine", rf(math.Cosh), cf(cmplx.Cosh))
	unary("tanh", "hyperbolic tangent", rf(math.Tanh), cf(cmplx.Tanh))
	unary("floor", "rounds down", rf(math.Floor), nil)
	unary("ceil", "rounds up", rf(math.Ceil), nil)
	unary("round", "rounds half away from zero", rf(math.Round), nil)
	unary("sign", "-1, 0 or 1", rf(func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x
	}), nil)

	Builtin("log").
		Module("math").
		Doc("natural logarithm, or logarithm in the given base").
		Params("x").
		Optional("base").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			if !args.Has(1) {
				return elementwise("log", args.Get(0), func(x float64) Value {
					return NumberValue{Val: math.Log(x)}
				}, func(z complex128) Value {
					return ComplexValue{Val: cmplx.Log(z)}
				})
			}
			base, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			return elementwise("log", args.Get(0), func(x float64) Value {
				return NumberValue{Val: math.Log(x) / math.Log(base)}
			}, nil)
		})

	Builtin("atan2").
		Module("math").
		Doc("angle of the point (x, y)").
		Params("y", "x").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			y, err := args.Number(0)
			if err != nil {
				return nil, err
			}
			x, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: math.Atan2(y, x)}, nil
		})

	reduce := func(name, doc string, fn func([]float64) float64) {
		Builtin(name).
			Module("math").
			Doc(doc).
			Params("values").
			Variadic().
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				xs, err := numberList(args)
				if err != nil {
					return nil, err
				}
				if len(xs) == 0 {
					return nil, typeErrorf("%s needs at least one number", name)
				}
				return NumberValue{Val: fn(xs)}, nil
			})
	}
	reduce("min", "smallest of the arguments, or of a vector", floats.Min)
	reduce("max", "largest of the arguments, or of a vector", floats.Max)
	reduce("mean", "arithmetic mean", func(xs []float64) float64 { return stat.Mean(xs, nil) })
	reduce("std", "sample standard deviation", func(xs []float64) float64 { return stat.StdDev(xs, nil) })

	Builtin("sum").
		Module("math").
		Doc("sum of the arguments, or of a vector; 0 when empty").
		Params("values").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			xs, err := numberList(args)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: floats.Sum(xs)}, nil
		})

	Builtin("prod").
		Module("math").
		Doc("product of the arguments, or of a vector; 1 when empty").
		Params("values").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			xs, err := numberList(args)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: floats.Prod(xs)}, nil
		})

	// complex numbers
	Builtin("complex").
		Module("math").
		Doc("builds re + im·i").
		Params("re", "im").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			re, err := args.Number(0)
			if err != nil {
				return nil, err
			}
			im, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			return ComplexValue{Val: complex(re, im)}, nil
		})
	complexPart := func(name, doc string, fn func(complex128) float64) {
		Builtin(name).
			Module("math").
			Doc(doc).
			Params("z").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				return elementwise(name, args.Get(0), func(x float64) Value {
					return NumberValue{Val: fn(complex(x, 0))}
				}, func(z complex128) Value {
					return NumberValue{Val: fn(z)}
				})
			})
	}
	complexPart("re", "real part", func(z complex128) float64 { return real(z) })
	complexPart("im", "imaginary part", func(z complex128) float64 { return imag(z) })
	complexPart("arg", "phase angle", cmplx.Phase)
	unary("conj", "complex conjugate", rf(func(x float64) float64 { return x }), cf(cmplx.Conj))

	// containers
	Builtin("len").
		Doc("number of elements of a vector, characters of a string, fields of a record, or rows of a tensor").
		Params("x").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			switch x := args.Get(0).(type) {
			case VectorValue:
				return NumberValue{Val: float64(len(x.Elements))}, nil
			case StringValue:
				return NumberValue{Val: float64(len([]rune(x.Val)))}, nil
			case RecordValue:
				return NumberValue{Val: float64(len(x.Fields))}, nil
			case TensorValue:
				return NumberValue{Val: float64(x.Shape[0])}, nil
			case ComplexTensorValue:
				return NumberValue{Val: float64(x.Shape[0])}, nil
			}
			return nil, args.mismatch(0, "a Vector, String, Record or Tensor")
		})

	Builtin("range").
		Doc("range(n) is 0..n-1; range(a, b[, step]) counts from a up to but excluding b").
		Params("start").
		Optional("end", "step").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			start, end, step := 0.0, 0.0, 1.0
			var err error
			if !args.Has(1) {
				if end, err = args.Number(0); err != nil {
					return nil, err
				}
			} else {
				if start, err = args.Number(0); err != nil {
					return nil, err
				}
				if end, err = args.Number(1); err != nil {
					return nil, err
				}
			}
			if args.Has(2) {
				if step, err = args.Number(2); err != nil {
					return nil, err
				}
			}
			if step == 0 {
				return nil, typeErrorf("range: step must not be zero")
			}
			var xs []float64
			for x := start; (step > 0 && x < end) || (step < 0 && x > end); x += step {
				xs = append(xs, x)
			}
			return numbers(xs), nil
		})

	Builtin("linspace").
		Doc("n evenly spaced numbers from a to b inclusive").
		Params("a", "b", "n").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			a, err := args.Number(0)
			if err != nil {
				return nil, err
			}
			b, err := args.Number(1)
			if err != nil {
				return nil, err
			}
			n, err := args.Int(2)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, typeErrorf("linspace: n must be at least 1, got %d", n)
			}
			if n == 1 {
				return numbers([]float64{a}), nil
			}
			return numbers(floats.Span(make([]float64, n), a, b)), nil
		})

	filled := func(name string, fill float64) {
		Builtin(name).
			Doc(fmt.Sprintf("a vector or tensor of %gs with the given shape", fill)).
			Params("shape").
			Variadic().
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				shape, err := shapeArgs(args)
				if err != nil {
					return nil, err
				}
				n := 1
				for _, d := range shape {
					n *= d
				}
				data := make([]float64, n)
				for k := range data {
					data[k] = fill
				}
				if len(shape) == 1 {
					return numbers(data), nil
				}
				return TensorValue{Shape: shape, Data: data}, nil
			})
	}
	filled("zeros", 0)
	filled("ones", 1)

	Builtin("shape").
		Doc("dimensions of a vector or tensor").
		Params("x").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			switch x := args.Get(0).(type) {
			case VectorValue:
				return numbers([]float64{float64(len(x.Elements))}), nil
			case TensorValue:
				return intsValue(x.Shape), nil
			case ComplexTensorValue:
				return intsValue(x.Shape), nil
			}
			return nil, args.mismatch(0, "a Vector or Tensor")
		})

	Builtin("reshape").
		Doc("same data, new shape").
		Params("x", "shape").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			shape, err := args.Ints(1)
			if err != nil {
				return nil, err
			}
			op, ok := numericOperand(args.Get(0))
			if !ok || op.scalar {
				return nil, args.mismatch(0, "a numeric Vector or Tensor")
			}
			return makeTensor(shape, op)
		})

	Builtin("tensor").
		Doc("builds a tensor of the given shape from flat row-major data").
		Params("data", "shape").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			shape, err := args.Ints(1)
			if err != nil {
				return nil, err
			}
			op, ok := numericOperand(args.Get(0))
			if !ok || op.scalar {
				return nil, args.mismatch(0, "a numeric Vector")
			}
			return makeTensor(shape, op)
		})

	// records and meta
	Builtin("keys").
		Doc("sorted field names of a record").
		Params("record").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			r, err := args.Record(0)
			if err != nil {
				return nil, err
			}
			return ToValue(slices.Sorted(maps.Keys(r.Fields)))
		})

	Builtin("values").
		Doc("field values of a record, in key order").
		Params("record").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			r, err := args.Record(0)
			if err != nil {
				return nil, err
			}
			var vals []Value
			for _, k := range slices.Sorted(maps.Keys(r.Fields)) {
				vals = append(vals, Deref(r.Fields[k]))
			}
			return VectorValue{Elements: vals}, nil
		})

	Builtin("has").
		Doc("whether a record has the field").
		Params("record", "field").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			r, err := args.Record(0)
			if err != nil {
				return nil, err
			}
			name, err := args.String(1)
			if err != nil {
				return nil, err
			}
			_, ok := r.Fields[name]
			return BoolValue{Val: ok}, nil
		})

	Builtin("typeof").
		Doc("name of the value's kind").
		Params("value").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			return StringValue{Val: TypeName(args.Get(0))}, nil
		})

	Builtin("str").
		Doc("string form of a value").
		Params("value").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			return StringValue{Val: args.Get(0).String()}, nil
		})

	Builtin("print").
		Doc("prints values to stdout, separated by spaces").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			parts := make([]string, args.Len())
			for k, v := range args.Values {
				parts[k] = v.String()
			}
			fmt.Fprintln(ioctx.StdoutFromContext(ctx), strings.Join(parts, " "))
			return NullValue{}, nil
		})

	Builtin("error").
		Doc("builds an Error value without throwing it").
		Params("message").
		Optional("kind").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			msg, err := args.String(0)
			if err != nil {
				return nil, err
			}
			e := &ErrorValue{Message: msg}
			if args.Has(1) {
				if e.Kind, err = args.String(1); err != nil {
					return nil, err
				}
			}
			return e, nil
		})
}

// TypeName is the tag name of a value, as reported by typeof and matched
// by type patterns.
func TypeName(v Value) string {
	switch Deref(v).(type) {
	case NumberValue:
		return "Number"
	case BoolValue:
		return "Boolean"
	case StringValue:
		return "String"
	case ComplexValue:
		return "Complex"
	case VectorValue:
		return "Vector"
	case TensorValue, ComplexTensorValue:
		return "Tensor"
	case RecordValue:
		return "Record"
	case EdgeValue:
		return "Edge"
	case *Closure, BuiltinFunction:
		return "Function"
	case *Generator:
		return "Generator"
	case *ErrorValue:
		return "Error"
	case NullValue, nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// elementwise applies a scalar function to a number, a complex number, or
// every element of a vector or tensor. A nil fc rejects complex input.
func elementwise(name string, v Value, fr func(float64) Value, fc func(complex128) Value) (Value, error) {
	switch x := Deref(v).(type) {
	case NumberValue:
		return fr(x.Val), nil
	case ComplexValue:
		if fc == nil {
			return nil, typeErrorf("%s is not defined for Complex", name)
		}
		return fc(x.Val), nil
	case VectorValue:
		out := make([]Value, len(x.Elements))
		for k, e := range x.Elements {
			r, err := elementwise(name, e, fr, fc)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return VectorValue{Elements: out}, nil
	case TensorValue:
		elems := make([]Value, len(x.Data))
		for k, f := range x.Data {
			elems[k] = fr(f)
		}
		return stackFlat(x.Shape, elems), nil
	case ComplexTensorValue:
		if fc == nil {
			return nil, typeErrorf("%s is not defined for Complex", name)
		}
		elems := make([]Value, len(x.Data))
		for k, z := range x.Data {
			elems[k] = fc(z)
		}
		return stackFlat(x.Shape, elems), nil
	}
	return nil, typeErrorf("%s expects a number, got %s", name, typeString(InferType(Deref(v))))
}

// stackFlat packs scalar results back into a tensor of the given shape,
// complex if any element is complex.
func stackFlat(shape []int, elems []Value) Value {
	isComplex := false
	for _, e := range elems {
		if _, ok := e.(ComplexValue); ok {
			isComplex = true
			break
		}
	}
	if !isComplex {
		data := make([]float64, len(elems))
		for k, e := range elems {
			data[k] = e.(NumberValue).Val
		}
		return TensorValue{Shape: slices.Clone(shape), Data: data}
	}
	data := make([]complex128, len(elems))
	for k, e := range elems {
		switch e := e.(type) {
		case NumberValue:
			data[k] = complex(e.Val, 0)
		case ComplexValue:
			data[k] = e.Val
		}
	}
	return ComplexTensorValue{Shape: slices.Clone(shape), Data: data}
}

// numberList accepts either numbers as separate arguments or a single
// numeric vector.
func numberList(args Args) ([]float64, error) {
	if args.Len() == 1 {
		if xs, ok := toFloats(args.Get(0)); ok {
			return xs, nil
		}
	}
	xs := make([]float64, args.Len())
	for k := range args.Values {
		f, err := args.Number(k)
		if err != nil {
			return nil, err
		}
		xs[k] = f
	}
	return xs, nil
}

func shapeArgs(args Args) ([]int, error) {
	if args.Len() == 1 {
		if _, ok := args.Get(0).(NumberValue); !ok {
			return args.Ints(0)
		}
	}
	shape := make([]int, args.Len())
	for k := range args.Values {
		n, err := args.Int(k)
		if err != nil {
			return nil, err
		}
		shape[k] = n
	}
	for _, d := range shape {
		if d < 0 {
			return nil, typeErrorf("shape dimensions must be non-negative, got %v", shape)
		}
	}
	return shape, nil
}

func intsValue(ns []int) VectorValue {
	fs := make([]float64, len(ns))
	for k, n := range ns {
		fs[k] = float64(n)
	}
	return numbers(fs)
}

func makeTensor(shape []int, op operand) (Value, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, typeErrorf("shape dimensions must be non-negative, got %v", shape)
		}
		n *= d
	}
	size := len(op.re)
	if op.complex {
		size = len(op.cx)
	}
	if n != size {
		return nil, Raise(KindDimensionMismatch, "cannot shape %d elements as %s", size, shapeString(shape))
	}
	if op.complex {
		return ComplexTensorValue{Shape: slices.Clone(shape), Data: slices.Clone(op.cx)}, nil
	}
	return TensorValue{Shape: slices.Clone(shape), Data: slices.Clone(op.re)}, nil
}
