package ach

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"
)

// Operator is a binary or unary operator symbol.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpMod Operator = "%"
	OpPow Operator = "^"
	OpEq  Operator = "=="
	OpNe  Operator = "!="
	OpLt  Operator = "<"
	OpLe  Operator = "<="
	OpGt  Operator = ">"
	OpGe  Operator = ">="
	OpAnd Operator = "&&"
	OpOr  Operator = "||"
	OpNot Operator = "!"
)

// operand is a numeric value viewed as a (possibly rank-0) tensor.
type operand struct {
	shape   []int
	re      []float64
	cx      []complex128
	complex bool
	scalar  bool
	// tensor is set when the value was a Tensor rather than a numeric
	// Vector or scalar.
	tensor bool
}

func numericOperand(v Value) (operand, bool) {
	switch v := v.(type) {
	case NumberValue:
		return operand{re: []float64{v.Val}, scalar: true}, true
	case ComplexValue:
		return operand{cx: []complex128{v.Val}, complex: true, scalar: true}, true
	case TensorValue:
		return operand{shape: v.Shape, re: v.Data, tensor: true}, true
	case ComplexTensorValue:
		return operand{shape: v.Shape, cx: v.Data, complex: true, tensor: true}, true
	case VectorValue:
		op := operand{shape: []int{len(v.Elements)}}
		for _, e := range v.Elements {
			switch e := Deref(e).(type) {
			case NumberValue:
				op.re = append(op.re, e.Val)
			case ComplexValue:
				op.complex = true
			default:
				return operand{}, false
			}
		}
		if op.complex {
			op.re = nil
			op.cx = make([]complex128, len(v.Elements))
			for i, e := range v.Elements {
				switch e := Deref(e).(type) {
				case NumberValue:
					op.cx[i] = complex(e.Val, 0)
				case ComplexValue:
					op.cx[i] = e.Val
				}
			}
		}
		return op, true
	}
	return operand{}, false
}

func (o operand) real(i int) float64 {
	if o.scalar {
		return o.re[0]
	}
	return o.re[i]
}

func (o operand) cplx(i int) complex128 {
	if o.scalar {
		i = 0
	}
	if o.complex {
		return o.cx[i]
	}
	return complex(o.re[i], 0)
}

// ApplyOperator evaluates a strict binary operator. && and || short-circuit
// in the evaluator and reach here only with both sides evaluated.
func ApplyOperator(op Operator, l, r Value) (Value, error) {
	l, r = Deref(l), Deref(r)
	switch op {
	case OpEq:
		return BoolValue{Val: Equal(l, r)}, nil
	case OpNe:
		return BoolValue{Val: !Equal(l, r)}, nil
	case OpLt, OpLe, OpGt, OpGe:
		return compare(op, l, r)
	case OpAnd, OpOr:
		lb, err := truthy(l)
		if err != nil {
			return nil, err
		}
		rb, err := truthy(r)
		if err != nil {
			return nil, err
		}
		if op == OpAnd {
			return BoolValue{Val: lb && rb}, nil
		}
		return BoolValue{Val: lb || rb}, nil
	}
	return arith(op, l, r)
}

func arith(op Operator, l, r Value) (Value, error) {
	if ln, ok := l.(NumberValue); ok {
		if rn, ok := r.(NumberValue); ok {
			f, err := realOp(op, ln.Val, rn.Val, false)
			if err != nil {
				return nil, err
			}
			return NumberValue{Val: f}, nil
		}
	}
	if ls, ok := l.(StringValue); ok && op == OpAdd {
		if rs, ok := r.(StringValue); ok {
			return StringValue{Val: ls.Val + rs.Val}, nil
		}
	}

	lo, lok := numericOperand(l)
	ro, rok := numericOperand(r)
	if !lok || !rok {
		return nil, typeErrorf("Operator '%s' not supported for %s and %s", op,
			typeString(InferType(l)), typeString(InferType(r)))
	}

	if lo.scalar && ro.scalar {
		c, err := complexOp(op, lo.cplx(0), ro.cplx(0), false)
		if err != nil {
			return nil, err
		}
		return ComplexValue{Val: c}, nil
	}

	var shape []int
	switch {
	case lo.scalar:
		shape = ro.shape
	case ro.scalar:
		shape = lo.shape
	case !slices.Equal(lo.shape, ro.shape):
		return nil, Raise(KindDimensionMismatch, "Shape mismatch for '%s': %s vs %s", op, shapeString(lo.shape), shapeString(ro.shape))
	default:
		shape = lo.shape
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	asTensor := lo.tensor || ro.tensor

	if lo.complex || ro.complex {
		data := make([]complex128, n)
		for k := range data {
			c, err := complexOp(op, lo.cplx(k), ro.cplx(k), true)
			if err != nil {
				return nil, err
			}
			data[k] = c
		}
		if !asTensor && len(shape) == 1 {
			elems := make([]Value, n)
			for k, c := range data {
				elems[k] = ComplexValue{Val: c}
			}
			return VectorValue{Elements: elems}, nil
		}
		return ComplexTensorValue{Shape: slices.Clone(shape), Data: data}, nil
	}

	data := make([]float64, n)
	for k := range data {
		f, err := realOp(op, lo.real(k), ro.real(k), true)
		if err != nil {
			return nil, err
		}
		data[k] = f
	}
	if !asTensor && len(shape) == 1 {
		return numbers(data), nil
	}
	return TensorValue{Shape: slices.Clone(shape), Data: data}, nil
}

// realOp applies op to two reals. Element-wise division by zero yields
// +Inf for every numerator; element-wise modulo by zero follows IEEE-754.
func realOp(op Operator, a, b float64, elementwise bool) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			if !elementwise {
				return 0, Raise(KindArithmeticError, "Division by zero")
			}
			return math.Inf(1), nil
		}
		return a / b, nil
	case OpMod:
		if b == 0 && !elementwise {
			return 0, Raise(KindArithmeticError, "Modulo by zero")
		}
		return math.Mod(a, b), nil
	case OpPow:
		return math.Pow(a, b), nil
	}
	return 0, typeErrorf("Unknown arithmetic operator '%s'", op)
}

func complexOp(op Operator, a, b complex128, elementwise bool) (complex128, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			if !elementwise {
				return 0, Raise(KindArithmeticError, "Division by zero")
			}
			return complex(math.Inf(1), 0), nil
		}
		return a / b, nil
	case OpPow:
		return cmplx.Pow(a, b), nil
	case OpMod:
		return 0, typeErrorf("Operator '%%' is not defined for complex numbers")
	}
	return 0, typeErrorf("Unknown arithmetic operator '%s'", op)
}

func compare(op Operator, l, r Value) (Value, error) {
	var c int
	switch x := l.(type) {
	case NumberValue:
		y, ok := r.(NumberValue)
		if !ok {
			return nil, incomparable(op, l, r)
		}
		if math.IsNaN(x.Val) || math.IsNaN(y.Val) {
			return BoolValue{Val: false}, nil
		}
		switch {
		case x.Val < y.Val:
			c = -1
		case x.Val > y.Val:
			c = 1
		}
	case StringValue:
		y, ok := r.(StringValue)
		if !ok {
			return nil, incomparable(op, l, r)
		}
		c = strings.Compare(x.Val, y.Val)
	default:
		return nil, incomparable(op, l, r)
	}
	switch op {
	case OpLt:
		return BoolValue{Val: c < 0}, nil
	case OpLe:
		return BoolValue{Val: c <= 0}, nil
	case OpGt:
		return BoolValue{Val: c > 0}, nil
	default:
		return BoolValue{Val: c >= 0}, nil
	}
}

func incomparable(op Operator, l, r Value) error {
	return typeErrorf("Operator '%s' not supported for %s and %s", op,
		typeString(InferType(l)), typeString(InferType(r)))
}

// Negate implements unary minus over numbers and numeric containers.
func Negate(v Value) (Value, error) {
	switch x := Deref(v).(type) {
	case NumberValue:
		return NumberValue{Val: -x.Val}, nil
	case ComplexValue:
		return ComplexValue{Val: -x.Val}, nil
	case VectorValue:
		elems := make([]Value, len(x.Elements))
		for i, e := range x.Elements {
			n, err := Negate(e)
			if err != nil {
				return nil, err
			}
			elems[i] = n
		}
		return VectorValue{Elements: elems}, nil
	case TensorValue:
		data := make([]float64, len(x.Data))
		for i, f := range x.Data {
			data[i] = -f
		}
		return TensorValue{Shape: slices.Clone(x.Shape), Data: data}, nil
	case ComplexTensorValue:
		data := make([]complex128, len(x.Data))
		for i, c := range x.Data {
			data[i] = -c
		}
		return ComplexTensorValue{Shape: slices.Clone(x.Shape), Data: data}, nil
	}
	return nil, typeErrorf("Cannot negate %s", typeString(InferType(Deref(v))))
}

// truthy accepts a Boolean, or a Number where non-zero is true.
func truthy(v Value) (bool, error) {
	switch x := Deref(v).(type) {
	case BoolValue:
		return x.Val, nil
	case NumberValue:
		return x.Val != 0, nil
	}
	return false, typeErrorf("Condition must be a Boolean or Number, got %s", typeString(InferType(Deref(v))))
}

func shapeString(shape []int) string {
	return strings.ReplaceAll(fmt.Sprint(shape), " ", ", ")
}
