package ach

import (
	"math"
	"slices"
)

// IndexSpec is an evaluated index: a single position, or a half-open range
// whose missing bounds default to the whole dimension. Negative positions
// count from the end.
type IndexSpec struct {
	At    int
	Range bool
	Start *int
	End   *int
}

func indexNumber(v Value) (int, error) {
	n, ok := v.(NumberValue)
	if !ok {
		return 0, typeErrorf("Index must be a Number, got %s", typeString(InferType(v)))
	}
	if n.Val != math.Trunc(n.Val) || math.IsInf(n.Val, 0) {
		return 0, typeErrorf("Index must be an integer, got %s", n)
	}
	return int(n.Val), nil
}

func normalizeIndex(idx, n int) (int, error) {
	k := idx
	if k < 0 {
		k += n
	}
	if k < 0 || k >= n {
		return 0, Raise(KindIndexOutOfBounds, "Index %d out of bounds for length %d", idx, n)
	}
	return k, nil
}

// rangeBounds clamps a range to [0, n].
func rangeBounds(spec IndexSpec, n int) (int, int) {
	clamp := func(p *int, def int) int {
		if p == nil {
			return def
		}
		k := *p
		if k < 0 {
			k += n
		}
		return min(max(k, 0), n)
	}
	start := clamp(spec.Start, 0)
	end := clamp(spec.End, n)
	return start, max(start, end)
}

// Index reads v[args...].
func Index(v Value, args []IndexSpec) (Value, error) {
	if len(args) == 0 {
		return nil, typeErrorf("Missing index")
	}
	switch r := v.(type) {
	case VectorValue:
		if len(args) != 1 {
			return nil, typeErrorf("Vector indexing takes exactly one index, got %d", len(args))
		}
		if args[0].Range {
			start, end := rangeBounds(args[0], len(r.Elements))
			return VectorValue{Elements: slices.Clone(r.Elements[start:end])}, nil
		}
		k, err := normalizeIndex(args[0].At, len(r.Elements))
		if err != nil {
			return nil, err
		}
		return r.Elements[k], nil

	case StringValue:
		if len(args) != 1 {
			return nil, typeErrorf("String indexing takes exactly one index, got %d", len(args))
		}
		runes := []rune(r.Val)
		if args[0].Range {
			start, end := rangeBounds(args[0], len(runes))
			return StringValue{Val: string(runes[start:end])}, nil
		}
		k, err := normalizeIndex(args[0].At, len(runes))
		if err != nil {
			return nil, err
		}
		return StringValue{Val: string(runes[k])}, nil

	case TensorValue:
		kept, offsets, err := selectTensor(r.Shape, args)
		if err != nil {
			return nil, err
		}
		data := make([]float64, len(offsets))
		for k, off := range offsets {
			data[k] = r.Data[off]
		}
		switch len(kept) {
		case 0:
			return NumberValue{Val: data[0]}, nil
		case 1:
			return numbers(data), nil
		}
		return TensorValue{Shape: kept, Data: data}, nil

	case ComplexTensorValue:
		kept, offsets, err := selectTensor(r.Shape, args)
		if err != nil {
			return nil, err
		}
		data := make([]complex128, len(offsets))
		for k, off := range offsets {
			data[k] = r.Data[off]
		}
		switch len(kept) {
		case 0:
			return ComplexValue{Val: data[0]}, nil
		case 1:
			elems := make([]Value, len(data))
			for k, c := range data {
				elems[k] = ComplexValue{Val: c}
			}
			return VectorValue{Elements: elems}, nil
		}
		return ComplexTensorValue{Shape: kept, Data: data}, nil
	}
	return nil, typeErrorf("Cannot index %s", typeString(InferType(v)))
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	stride := 1
	for d := len(shape) - 1; d >= 0; d-- {
		out[d] = stride
		stride *= shape[d]
	}
	return out
}

// selectTensor resolves args against shape. Singles drop their dimension,
// ranges keep it, and dimensions without an index are taken whole. It
// returns the kept shape and the row-major offsets of the selection.
func selectTensor(shape []int, args []IndexSpec) ([]int, []int, error) {
	if len(args) > len(shape) {
		return nil, nil, Raise(KindIndexOutOfBounds, "Too many indices (%d) for tensor of rank %d", len(args), len(shape))
	}
	sel := make([][]int, len(shape))
	var kept []int
	for d, n := range shape {
		switch {
		case d >= len(args):
			sel[d] = seq(0, n)
			kept = append(kept, n)
		case args[d].Range:
			start, end := rangeBounds(args[d], n)
			sel[d] = seq(start, end)
			kept = append(kept, end-start)
		default:
			k, err := normalizeIndex(args[d].At, n)
			if err != nil {
				return nil, nil, err
			}
			sel[d] = []int{k}
		}
	}

	st := strides(shape)
	var offsets []int
	var gather func(d, off int)
	gather = func(d, off int) {
		if d == len(shape) {
			offsets = append(offsets, off)
			return
		}
		for _, k := range sel[d] {
			gather(d+1, off+k*st[d])
		}
	}
	gather(0, 0)
	return kept, offsets, nil
}

func seq(start, end int) []int {
	out := make([]int, 0, max(0, end-start))
	for k := start; k < end; k++ {
		out = append(out, k)
	}
	return out
}

// setIndex returns a copy of cur with the element at args replaced by v.
func setIndex(cur Value, args []IndexSpec, v Value) (Value, error) {
	for _, a := range args {
		if a.Range {
			return nil, typeErrorf("Cannot assign to a range")
		}
	}
	switch r := cur.(type) {
	case VectorValue:
		if len(args) != 1 {
			return nil, typeErrorf("Vector indexing takes exactly one index, got %d", len(args))
		}
		k, err := normalizeIndex(args[0].At, len(r.Elements))
		if err != nil {
			return nil, err
		}
		elems := slices.Clone(r.Elements)
		elems[k] = v
		return VectorValue{Elements: elems}, nil

	case TensorValue:
		n, ok := v.(NumberValue)
		if !ok {
			return nil, typeErrorf("Cannot store %s in a real tensor", typeString(InferType(v)))
		}
		off, err := elementOffset(r.Shape, args)
		if err != nil {
			return nil, err
		}
		data := slices.Clone(r.Data)
		data[off] = n.Val
		return TensorValue{Shape: r.Shape, Data: data}, nil

	case ComplexTensorValue:
		var c complex128
		switch x := v.(type) {
		case NumberValue:
			c = complex(x.Val, 0)
		case ComplexValue:
			c = x.Val
		default:
			return nil, typeErrorf("Cannot store %s in a complex tensor", typeString(InferType(v)))
		}
		off, err := elementOffset(r.Shape, args)
		if err != nil {
			return nil, err
		}
		data := slices.Clone(r.Data)
		data[off] = c
		return ComplexTensorValue{Shape: r.Shape, Data: data}, nil
	}
	return nil, typeErrorf("Cannot assign by index into %s", typeString(InferType(cur)))
}

func elementOffset(shape []int, args []IndexSpec) (int, error) {
	if len(args) != len(shape) {
		return 0, Raise(KindDimensionMismatch, "Element assignment needs %d indices, got %d", len(shape), len(args))
	}
	st := strides(shape)
	off := 0
	for d, a := range args {
		k, err := normalizeIndex(a.At, shape[d])
		if err != nil {
			return 0, err
		}
		off += k * st[d]
	}
	return off, nil
}
