package ach

import (
	"fmt"
	"maps"
	"math"
	"math/cmplx"
	"slices"
	"strconv"
	"strings"
)

// Value represents a runtime value
type Value interface {
	Type() Type
	String() string
}

type NumberValue struct {
	Val float64
}

func (n NumberValue) Type() Type     { return NumberType }
func (n NumberValue) String() string { return formatNumber(n.Val) }

type BoolValue struct {
	Val bool
}

func (b BoolValue) Type() Type     { return BooleanType }
func (b BoolValue) String() string { return strconv.FormatBool(b.Val) }

type StringValue struct {
	Val string
}

func (s StringValue) Type() Type     { return StringType }
func (s StringValue) String() string { return s.Val }

type ComplexValue struct {
	Val complex128
}

func (c ComplexValue) Type() Type     { return ComplexType }
func (c ComplexValue) String() string { return formatComplex(c.Val) }

// VectorValue is a heterogeneous list. A vector of Numbers behaves as a
// rank-1 tensor in arithmetic.
type VectorValue struct {
	Elements []Value
}

func (v VectorValue) Type() Type { return VectorType }

func (v VectorValue) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = quoted(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TensorValue is a dense row-major real tensor.
type TensorValue struct {
	Shape []int
	Data  []float64
}

func (t TensorValue) Type() Type {
	return TensorType{Elem: NumberType, Shape: slices.Clone(t.Shape)}
}

func (t TensorValue) String() string {
	return formatNested(t.Shape, func(i int) string { return formatNumber(t.Data[i]) })
}

// Rank returns the number of dimensions.
func (t TensorValue) Rank() int { return len(t.Shape) }

type ComplexTensorValue struct {
	Shape []int
	Data  []complex128
}

func (t ComplexTensorValue) Type() Type {
	return TensorType{Elem: ComplexType, Shape: slices.Clone(t.Shape)}
}

func (t ComplexTensorValue) String() string {
	return formatNested(t.Shape, func(i int) string { return formatComplex(t.Data[i]) })
}

func (t ComplexTensorValue) Rank() int { return len(t.Shape) }

// RecordValue maps field names to values. Mutable fields hold a
// *MutableRef.
type RecordValue struct {
	Fields map[string]Value
}

func (r RecordValue) Type() Type {
	fields := make(map[string]FieldType, len(r.Fields))
	for name, v := range r.Fields {
		if ref, ok := v.(*MutableRef); ok {
			fields[name] = FieldType{Mutable: true, Type: ref.Val.Type()}
		} else {
			fields[name] = FieldType{Type: v.Type()}
		}
	}
	return RecordType{Fields: fields}
}

func (r RecordValue) String() string {
	parts := make([]string, 0, len(r.Fields))
	for _, name := range slices.Sorted(maps.Keys(r.Fields)) {
		v := r.Fields[name]
		prefix := ""
		if _, ok := v.(*MutableRef); ok {
			prefix = "mut "
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", prefix, name, quoted(v)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns a field, dereferencing mutable cells.
func (r RecordValue) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return nil, false
	}
	return Deref(v), true
}

// NewRecord builds a record from plain values.
func NewRecord(fields map[string]Value) RecordValue {
	if fields == nil {
		fields = map[string]Value{}
	}
	return RecordValue{Fields: fields}
}

type EdgeValue struct {
	From     string
	To       string
	Directed bool
	Props    map[string]Value
}

func (e EdgeValue) Type() Type { return EdgeType }

func (e EdgeValue) String() string {
	arrow := "<>"
	if e.Directed {
		arrow = "->"
	}
	s := e.From + " " + arrow + " " + e.To
	if len(e.Props) > 0 {
		s += ": " + RecordValue{Fields: e.Props}.String()
	}
	return s
}

// Param is a lambda parameter with an optional type.
type Param struct {
	Name string
	Type Type
}

// Closure is a user-defined function together with the frame it was
// created in.
type Closure struct {
	Params     []Param
	ReturnType Type
	Body       Node
	Env        *Env
}

func (c *Closure) Type() Type {
	params := make([]Type, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.Type
	}
	return FunctionType{Params: params, Return: c.ReturnType}
}

func (c *Closure) String() string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("<function(%s)>", strings.Join(names, ", "))
}

// BuiltinFunction refers to a registered builtin by name.
type BuiltinFunction struct {
	Name string
}

func (b BuiltinFunction) Type() Type     { return AnyFunctionType }
func (b BuiltinFunction) String() string { return fmt.Sprintf("<builtin %s>", b.Name) }

// MutableRef is the cell behind a mut binding or mutable record field.
type MutableRef struct {
	Val Value
}

func (m *MutableRef) Type() Type     { return m.Val.Type() }
func (m *MutableRef) String() string { return m.Val.String() }

// ErrorValue is a first-class error, as thrown or caught.
type ErrorValue struct {
	Message string
	Kind    string
	Source  Value
}

func (e *ErrorValue) Type() Type { return ErrorType }

func (e *ErrorValue) String() string {
	if e.Kind == "" {
		return fmt.Sprintf("Error(%s)", e.Message)
	}
	return fmt.Sprintf("Error(%s: %s)", e.Kind, e.Message)
}

// Fields exposes the error the way a record pattern sees it.
func (e *ErrorValue) Fields() map[string]Value {
	fields := map[string]Value{
		"message": StringValue{Val: e.Message},
		"kind":    NullValue{},
		"source":  NullValue{},
	}
	if e.Kind != "" {
		fields["kind"] = StringValue{Val: e.Kind}
	}
	if e.Source != nil {
		fields["source"] = e.Source
	}
	return fields
}

type NullValue struct{}

func (NullValue) Type() Type     { return NullType }
func (NullValue) String() string { return "null" }

// TailCall, EarlyReturn and GeneratorYield are control markers. They travel
// up the evaluator as ordinary results and are intercepted by the TCO loop,
// the function boundary and generator resumption respectively.
type TailCall struct {
	Args []Value
}

func (TailCall) Type() Type       { return AnyType }
func (t TailCall) String() string { return fmt.Sprintf("<tail call/%d>", len(t.Args)) }

type EarlyReturn struct {
	Val Value
}

func (EarlyReturn) Type() Type       { return AnyType }
func (r EarlyReturn) String() string { return "<return " + r.Val.String() + ">" }

type GeneratorYield struct {
	Val Value
}

func (GeneratorYield) Type() Type       { return AnyType }
func (y GeneratorYield) String() string { return "<yield " + y.Val.String() + ">" }

// IsSentinel reports whether v is a control marker.
func IsSentinel(v Value) bool {
	switch v.(type) {
	case TailCall, EarlyReturn, GeneratorYield:
		return true
	}
	return false
}

// Deref unwraps mutable cells.
func Deref(v Value) Value {
	for {
		ref, ok := v.(*MutableRef)
		if !ok {
			return v
		}
		v = ref.Val
	}
}

// IsFunction reports whether v can be applied.
func IsFunction(v Value) bool {
	switch Deref(v).(type) {
	case *Closure, BuiltinFunction:
		return true
	}
	return false
}

// ToValue converts a Go value to a Value
func ToValue(v any) (Value, error) {
	if v == nil {
		return NullValue{}, nil
	}

	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return StringValue{Val: val}, nil
	case bool:
		return BoolValue{Val: val}, nil
	case int:
		return NumberValue{Val: float64(val)}, nil
	case int64:
		return NumberValue{Val: float64(val)}, nil
	case float64:
		return NumberValue{Val: val}, nil
	case complex128:
		return ComplexValue{Val: val}, nil
	case []float64:
		return numbers(val), nil
	case []string:
		values := make([]Value, len(val))
		for i, s := range val {
			values[i] = StringValue{Val: s}
		}
		return VectorValue{Elements: values}, nil
	case [][]string:
		values := make([]Value, len(val))
		for i, s := range val {
			values[i], _ = ToValue(s)
		}
		return VectorValue{Elements: values}, nil
	case []Value:
		return VectorValue{Elements: val}, nil
	case map[string]Value:
		return RecordValue{Fields: val}, nil
	case map[string]float64:
		fields := make(map[string]Value, len(val))
		for k, f := range val {
			fields[k] = NumberValue{Val: f}
		}
		return RecordValue{Fields: fields}, nil
	default:
		return nil, fmt.Errorf("cannot convert Go type %T to a Value", v)
	}
}

func numbers(fs []float64) VectorValue {
	values := make([]Value, len(fs))
	for i, f := range fs {
		values[i] = NumberValue{Val: f}
	}
	return VectorValue{Elements: values}
}

func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func formatComplex(c complex128) string {
	if cmplx.IsNaN(c) {
		return "NaN"
	}
	re, im := real(c), imag(c)
	switch {
	case im == 0:
		return formatNumber(re)
	case re == 0:
		return formatNumber(im) + "i"
	case im < 0:
		return formatNumber(re) + " - " + formatNumber(-im) + "i"
	default:
		return formatNumber(re) + " + " + formatNumber(im) + "i"
	}
}

// formatNested renders row-major data as nested brackets.
func formatNested(shape []int, elem func(int) string) string {
	if len(shape) == 0 {
		return elem(0)
	}
	var b strings.Builder
	var rec func(dim, offset int)
	rec = func(dim, offset int) {
		stride := 1
		for _, d := range shape[dim+1:] {
			stride *= d
		}
		b.WriteString("[")
		for i := range shape[dim] {
			if i > 0 {
				b.WriteString(", ")
			}
			if dim == len(shape)-1 {
				b.WriteString(elem(offset + i))
			} else {
				rec(dim+1, offset+i*stride)
			}
		}
		b.WriteString("]")
	}
	rec(0, 0)
	return b.String()
}

func quoted(v Value) string {
	if s, ok := Deref(v).(StringValue); ok {
		return strconv.Quote(s.Val)
	}
	return v.String()
}
