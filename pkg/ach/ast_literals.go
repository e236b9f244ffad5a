package ach

import (
	"context"
	"slices"
)

type NumberLit struct {
	Value float64
	Loc   *SourceLocation
}

var _ Node = (*NumberLit)(nil)

func (n *NumberLit) GetSourceLocation() *SourceLocation { return n.Loc }
func (n *NumberLit) Walk(fn func(Node) bool)           { fn(n) }

func (n *NumberLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return NumberValue{Val: n.Value}, nil
}

type BoolLit struct {
	Value bool
	Loc   *SourceLocation
}

var _ Node = (*BoolLit)(nil)

func (b *BoolLit) GetSourceLocation() *SourceLocation { return b.Loc }
func (b *BoolLit) Walk(fn func(Node) bool)           { fn(b) }

func (b *BoolLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return BoolValue{Val: b.Value}, nil
}

type StringLit struct {
	Value string
	Loc   *SourceLocation
}

var _ Node = (*StringLit)(nil)

func (s *StringLit) GetSourceLocation() *SourceLocation { return s.Loc }
func (s *StringLit) Walk(fn func(Node) bool)           { fn(s) }

func (s *StringLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return StringValue{Val: s.Value}, nil
}

type ComplexLit struct {
	Value complex128
	Loc   *SourceLocation
}

var _ Node = (*ComplexLit)(nil)

func (c *ComplexLit) GetSourceLocation() *SourceLocation { return c.Loc }
func (c *ComplexLit) Walk(fn func(Node) bool)           { fn(c) }

func (c *ComplexLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return ComplexValue{Val: c.Value}, nil
}

type NullLit struct {
	Loc *SourceLocation
}

var _ Node = (*NullLit)(nil)

func (n *NullLit) GetSourceLocation() *SourceLocation { return n.Loc }
func (n *NullLit) Walk(fn func(Node) bool)           { fn(n) }

func (n *NullLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return NullValue{}, nil
}

// ArrayElement is one entry of an array literal; Spread splices a vector
// in place.
type ArrayElement struct {
	Value  Node
	Spread bool
}

type ArrayLit struct {
	Elements []ArrayElement
	Loc      *SourceLocation
}

var _ Node = (*ArrayLit)(nil)

func (a *ArrayLit) GetSourceLocation() *SourceLocation { return a.Loc }

func (a *ArrayLit) Walk(fn func(Node) bool) {
	if !fn(a) {
		return
	}
	for _, e := range a.Elements {
		e.Value.Walk(fn)
	}
}

func (a *ArrayLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, a, func() (Value, error) {
		elems := make([]Value, 0, len(a.Elements))
		for _, e := range a.Elements {
			v, err := EvalNode(ctx, i, e.Value)
			if err != nil {
				return nil, err
			}
			v = Deref(v)
			if !e.Spread {
				elems = append(elems, v)
				continue
			}
			spread, err := spreadElements(v)
			if err != nil {
				return nil, err
			}
			elems = append(elems, spread...)
		}
		if t, ok := stackRows(elems); ok {
			return t, nil
		}
		return VectorValue{Elements: elems}, nil
	})
}

func spreadElements(v Value) ([]Value, error) {
	switch v := v.(type) {
	case VectorValue:
		return v.Elements, nil
	case TensorValue:
		if v.Rank() == 1 {
			return numbers(v.Data).Elements, nil
		}
	case ComplexTensorValue:
		if v.Rank() == 1 {
			out := make([]Value, len(v.Data))
			for i, c := range v.Data {
				out[i] = ComplexValue{Val: c}
			}
			return out, nil
		}
	}
	return nil, typeErrorf("Cannot spread %s into an array", typeString(InferType(v)))
}

// stackRows turns a literal whose elements are equally shaped numeric
// arrays into a tensor one rank higher, so [[1, 2], [3, 4]] is a matrix.
func stackRows(elems []Value) (Value, bool) {
	if len(elems) == 0 {
		return nil, false
	}
	var shape []int
	var re []float64
	var cx []complex128
	isComplex := false
	for idx, e := range elems {
		rowShape, rowRe, rowCx, rowComplex, ok := tensorRow(e)
		if !ok {
			return nil, false
		}
		if idx == 0 {
			shape = rowShape
		} else if !slices.Equal(shape, rowShape) {
			return nil, false
		}
		if rowComplex && !isComplex {
			isComplex = true
			cx = make([]complex128, len(re))
			for j, f := range re {
				cx[j] = complex(f, 0)
			}
		}
		if isComplex {
			if rowComplex {
				cx = append(cx, rowCx...)
			} else {
				for _, f := range rowRe {
					cx = append(cx, complex(f, 0))
				}
			}
		} else {
			re = append(re, rowRe...)
		}
	}
	full := append([]int{len(elems)}, shape...)
	if isComplex {
		return ComplexTensorValue{Shape: full, Data: cx}, true
	}
	return TensorValue{Shape: full, Data: re}, true
}

// tensorRow reports the shape and data of a value usable as one row of a
// stacked tensor: a numeric vector or a tensor.
func tensorRow(v Value) ([]int, []float64, []complex128, bool, bool) {
	switch v := v.(type) {
	case TensorValue:
		return v.Shape, v.Data, nil, false, true
	case ComplexTensorValue:
		return v.Shape, nil, v.Data, true, true
	case VectorValue:
		if len(v.Elements) == 0 {
			return nil, nil, nil, false, false
		}
		op, ok := numericOperand(v)
		if !ok {
			return nil, nil, nil, false, false
		}
		return op.shape, op.re, op.cx, op.complex, true
	}
	return nil, nil, nil, false, false
}

// RecordField is one entry of a record literal. Spread copies the fields
// of another record.
type RecordField struct {
	Name    string
	Value   Node
	Mutable bool
	Spread  bool
}

type RecordLit struct {
	Fields []RecordField
	Loc    *SourceLocation
}

var _ Node = (*RecordLit)(nil)

func (r *RecordLit) GetSourceLocation() *SourceLocation { return r.Loc }

func (r *RecordLit) Walk(fn func(Node) bool) {
	if !fn(r) {
		return
	}
	for _, f := range r.Fields {
		f.Value.Walk(fn)
	}
}

func (r *RecordLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, r, func() (Value, error) {
		fields := make(map[string]Value, len(r.Fields))
		for _, f := range r.Fields {
			v, err := EvalNode(ctx, i, f.Value)
			if err != nil {
				return nil, err
			}
			if f.Spread {
				src, ok := Deref(v).(RecordValue)
				if !ok {
					return nil, typeErrorf("Cannot spread %s into a record", typeString(InferType(Deref(v))))
				}
				for name, fv := range src.Fields {
					if ref, ok := fv.(*MutableRef); ok {
						fv = &MutableRef{Val: ref.Val}
					}
					fields[name] = fv
				}
				continue
			}
			v = Deref(v)
			if f.Mutable {
				fields[f.Name] = &MutableRef{Val: v}
			} else {
				fields[f.Name] = v
			}
		}
		return RecordValue{Fields: fields}, nil
	})
}

// EdgeLit is `from -> to` (directed) or `from <> to`, optionally followed
// by a properties record.
type EdgeLit struct {
	From     string
	To       string
	Directed bool
	Props    Node
	Loc      *SourceLocation
}

var _ Node = (*EdgeLit)(nil)

func (e *EdgeLit) GetSourceLocation() *SourceLocation { return e.Loc }

func (e *EdgeLit) Walk(fn func(Node) bool) {
	if !fn(e) {
		return
	}
	walkAll(fn, e.Props)
}

func (e *EdgeLit) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, e, func() (Value, error) {
		edge := EdgeValue{From: e.From, To: e.To, Directed: e.Directed, Props: map[string]Value{}}
		if e.Props == nil {
			return edge, nil
		}
		v, err := EvalNode(ctx, i, e.Props)
		if err != nil {
			return nil, err
		}
		props, ok := Deref(v).(RecordValue)
		if !ok {
			return nil, typeErrorf("Edge properties must be a record, got %s", typeString(InferType(Deref(v))))
		}
		for name, pv := range props.Fields {
			edge.Props[name] = Deref(pv)
		}
		return edge, nil
	})
}
