package ach

import (
	"math"
	"slices"
)

// Equal compares two values structurally. Numbers and complex numbers
// compare by value across the two variants; every other pair of distinct
// variants is unequal.
func Equal(a, b Value) bool {
	a, b = Deref(a), Deref(b)
	switch x := a.(type) {
	case NumberValue:
		switch y := b.(type) {
		case NumberValue:
			return x.Val == y.Val
		case ComplexValue:
			return complex(x.Val, 0) == y.Val
		}
	case ComplexValue:
		switch y := b.(type) {
		case ComplexValue:
			return x.Val == y.Val
		case NumberValue:
			return x.Val == complex(y.Val, 0)
		}
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Val == y.Val
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x.Val == y.Val
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case VectorValue:
		y, ok := b.(VectorValue)
		return ok && slices.EqualFunc(x.Elements, y.Elements, Equal)
	case TensorValue:
		y, ok := b.(TensorValue)
		return ok && slices.Equal(x.Shape, y.Shape) && slices.Equal(x.Data, y.Data)
	case ComplexTensorValue:
		y, ok := b.(ComplexTensorValue)
		return ok && slices.Equal(x.Shape, y.Shape) && slices.Equal(x.Data, y.Data)
	case RecordValue:
		y, ok := b.(RecordValue)
		return ok && fieldsEqual(x.Fields, y.Fields)
	case EdgeValue:
		y, ok := b.(EdgeValue)
		return ok && x.From == y.From && x.To == y.To && x.Directed == y.Directed &&
			fieldsEqual(x.Props, y.Props)
	case BuiltinFunction:
		y, ok := b.(BuiltinFunction)
		return ok && x.Name == y.Name
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	case *Generator:
		y, ok := b.(*Generator)
		return ok && x == y
	case *ErrorValue:
		y, ok := b.(*ErrorValue)
		return ok && x.Message == y.Message && x.Kind == y.Kind
	}
	return false
}

func fieldsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// numbersClose compares within machine epsilon, scaled to the operands.
func numbersClose(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 2.220446049250313e-16*scale
}
