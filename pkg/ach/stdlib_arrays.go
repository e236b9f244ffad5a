package ach

import (
	"context"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// arrayResult rebuilds a flat tensor when the input was one and every
// element is still a scalar; anything else comes back as a Vector.
func arrayResult(from Value, elems []Value) Value {
	switch from.(type) {
	case TensorValue, ComplexTensorValue:
		if allScalars(elems) {
			return stackFlat([]int{len(elems)}, elems)
		}
	}
	return VectorValue{Elements: elems}
}

func allScalars(elems []Value) bool {
	for _, e := range elems {
		switch e.(type) {
		case NumberValue, ComplexValue:
		default:
			return false
		}
	}
	return true
}

func flattenValues(elems []Value, depth int) []Value {
	out := []Value{}
	for _, e := range elems {
		e = Deref(e)
		if depth > 0 {
			if inner, err := spreadElements(e); err == nil {
				out = append(out, flattenValues(inner, depth-1)...)
				continue
			}
			switch t := e.(type) {
			case TensorValue:
				out = append(out, numbers(t.Data).Elements...)
				continue
			case ComplexTensorValue:
				for _, z := range t.Data {
					out = append(out, ComplexValue{Val: z})
				}
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func (a Args) count(k int) (int, error) {
	n, err := a.Int(k)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, a.mismatch(k, "a non-negative integer")
	}
	return n, nil
}

func registerArrays() {
	Builtin("flatten").
		Module("arrays").
		Doc("splices nested vectors into their parent, depth levels deep (default 1)").
		Params("array").
		Optional("depth").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			depth := 1
			if args.Has(1) {
				d, err := args.count(1)
				if err != nil {
					return nil, err
				}
				depth = d
			}
			switch t := args.Get(0).(type) {
			case TensorValue:
				return TensorValue{Shape: []int{len(t.Data)}, Data: slices.Clone(t.Data)}, nil
			case ComplexTensorValue:
				return ComplexTensorValue{Shape: []int{len(t.Data)}, Data: slices.Clone(t.Data)}, nil
			}
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			return VectorValue{Elements: flattenValues(elems, depth)}, nil
		})

	cut := func(name, doc string, pick func(elems []Value, n int) []Value) {
		Builtin(name).
			Module("arrays").
			Doc(doc).
			Params("array", "n").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				elems, err := args.Vector(0)
				if err != nil {
					return nil, err
				}
				n, err := args.count(1)
				if err != nil {
					return nil, err
				}
				n = min(n, len(elems))
				return arrayResult(args.Get(0), slices.Clone(pick(elems, n))), nil
			})
	}
	cut("take", "the first n elements", func(elems []Value, n int) []Value { return elems[:n] })
	cut("drop", "everything after the first n elements", func(elems []Value, n int) []Value { return elems[n:] })

	Builtin("slice").
		Module("arrays").
		Doc("elements from start up to, not including, end; out-of-range bounds are clamped").
		Params("array", "start").
		Optional("end").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			start, err := args.count(1)
			if err != nil {
				return nil, err
			}
			end := len(elems)
			if args.Has(2) {
				if end, err = args.count(2); err != nil {
					return nil, err
				}
			}
			end = min(end, len(elems))
			start = min(start, end)
			return arrayResult(args.Get(0), slices.Clone(elems[start:end])), nil
		})

	Builtin("reverse").
		Module("arrays").
		Doc("the elements in reverse order").
		Params("array").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			out := slices.Clone(elems)
			slices.Reverse(out)
			return arrayResult(args.Get(0), out), nil
		})

	Builtin("unique").
		Module("arrays").
		Doc("drops repeated elements, keeping first occurrences").
		Params("array").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			out := []Value{}
			for _, e := range elems {
				if !slices.ContainsFunc(out, func(seen Value) bool { return Equal(seen, e) }) {
					out = append(out, e)
				}
			}
			return arrayResult(args.Get(0), out), nil
		})

	Builtin("chunk").
		Module("arrays").
		Doc("splits into consecutive vectors of size elements; the last may be shorter").
		Params("array", "size").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			size, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			if size <= 0 {
				return nil, args.mismatch(1, "a positive integer")
			}
			out := []Value{}
			for part := range slices.Chunk(elems, size) {
				out = append(out, arrayResult(args.Get(0), slices.Clone(part)))
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("zip").
		Module("arrays").
		Doc("pairs up elements by position, stopping at the shortest vector").
		Params("a", "b").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			cols := make([][]Value, args.Len())
			n := -1
			for k := range cols {
				elems, err := args.Vector(k)
				if err != nil {
					return nil, err
				}
				cols[k] = elems
				if n < 0 || len(elems) < n {
					n = len(elems)
				}
			}
			out := make([]Value, n)
			for j := range n {
				row := make([]Value, len(cols))
				for k, col := range cols {
					row[k] = col[j]
				}
				out[j] = VectorValue{Elements: row}
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("concat").
		Module("arrays").
		Doc("joins strings, or appends vectors end to end").
		Params("a", "b").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			if _, ok := args.Get(0).(StringValue); ok {
				var sb strings.Builder
				for k := range args.Values {
					s, err := args.String(k)
					if err != nil {
						return nil, err
					}
					sb.WriteString(s)
				}
				return StringValue{Val: sb.String()}, nil
			}
			var out []Value
			tensors := true
			for k, v := range args.Values {
				elems, err := args.Vector(k)
				if err != nil {
					return nil, err
				}
				switch v.(type) {
				case TensorValue, ComplexTensorValue:
				default:
					tensors = false
				}
				out = append(out, elems...)
			}
			if out == nil {
				out = []Value{}
			}
			if tensors && allScalars(out) {
				return stackFlat([]int{len(out)}, out), nil
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("product").
		Module("arrays").
		Doc("product of the elements; 1 when empty").
		Params("array").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			if xs, ok := toFloats(args.Get(0)); ok {
				return NumberValue{Val: floats.Prod(xs)}, nil
			}
			seq, err := args.complexSeq(0)
			if err != nil {
				return nil, err
			}
			total := complex(1, 0)
			for _, z := range seq {
				total *= z
			}
			return ComplexValue{Val: total}, nil
		})
}
