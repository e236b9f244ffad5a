package ach

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMathBuiltins(t *testing.T) {
	for _, tc := range []struct {
		expr Node
		want float64
	}{
		{call("sqrt", num(16)), 4},
		{call("abs", num(-2.5)), 2.5},
		{call("exp", num(0)), 1},
		{call("ln", ref("e")), 1},
		{call("log", num(8), num(2)), 3},
		{call("log", ref("e")), 1},
		{call("floor", num(2.7)), 2},
		{call("ceil", num(2.1)), 3},
		{call("round", num(2.5)), 3},
		{call("sign", num(-9)), -1},
		{call("atan2", num(1), num(1)), math.Pi / 4},
		{call("min", num(3), num(1), num(2)), 1},
		{call("max", nums(3, 1, 2)), 3},
		{call("mean", nums(1, 2, 3, 4)), 2.5},
		{call("sum", nums(1, 2, 3, 4)), 10},
		{call("prod", num(2), num(3), num(4)), 24},
		{call("abs", bin(OpAdd, num(3), bin(OpMul, num(4), ref("i")))), 5},
		{call("re", call("complex", num(2), num(-1))), 2},
		{call("im", call("complex", num(2), num(-1))), -1},
	} {
		t.Run(tc.expr.(*FunctionCall).Name, func(t *testing.T) {
			assert.InDelta(t, tc.want, number(t, eval(t, tc.expr)), 1e-9)
		})
	}
}

func TestSqrtOfNegativeIsComplex(t *testing.T) {
	v := eval(t, call("sqrt", num(-4)))
	c, ok := v.(ComplexValue)
	require.True(t, ok, "got %s", v)
	assert.InDelta(t, 0, real(c.Val), 1e-12)
	assert.InDelta(t, 2, imag(c.Val), 1e-12)
}

func TestMathIsElementwise(t *testing.T) {
	v := eval(t, call("sqrt", nums(1, 4, 9)))
	assert.Equal(t, []float64{1, 2, 3}, floatsOf(t, v))

	err := runErr(t, NewInterpreter(), call("floor", call("complex", num(1), num(1))))
	assert.Contains(t, err.Error(), "floor is not defined for Complex")
}

func TestStandardDeviation(t *testing.T) {
	v := eval(t, call("std", nums(2, 4, 4, 4, 5, 5, 7, 9)))
	assert.InDelta(t, 2.138, number(t, v), 1e-3)
}

func TestRangeAndLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, floatsOf(t, eval(t, call("range", num(5)))))
	assert.Equal(t, []float64{2, 4, 6, 8}, floatsOf(t, eval(t, call("range", num(2), num(10), num(2)))))
	assert.Equal(t, []float64{3, 2, 1}, floatsOf(t, eval(t, call("range", num(3), num(0), num(-1)))))
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, floatsOf(t, eval(t, call("linspace", num(0), num(1), num(5)))))

	err := runErr(t, NewInterpreter(), call("range", num(0), num(5), num(0)))
	assert.Contains(t, err.Error(), "step must not be zero")
}

func TestShapes(t *testing.T) {
	v := eval(t, call("zeros", num(2), num(3)))
	tv, ok := v.(TensorValue)
	require.True(t, ok, "got %s", v)
	assert.Equal(t, []int{2, 3}, tv.Shape)

	v = eval(t, call("shape", call("reshape", call("range", num(6)), nums(3, 2))))
	assert.Equal(t, []float64{3, 2}, floatsOf(t, v))

	err := runErr(t, NewInterpreter(), call("reshape", call("range", num(5)), nums(2, 3)))
	assert.Equal(t, KindDimensionMismatch, ErrorKind(err))
	assert.Contains(t, err.Error(), "cannot shape 5 elements as")
}

func TestLenOfArrays(t *testing.T) {
	assert.Equal(t, 3.0, number(t, eval(t, call("len", nums(1, 2, 3)))))
	assert.Equal(t, 2.0, number(t, eval(t, call("len", array(nums(1, 2), nums(3, 4))))))
	assert.Equal(t, 5.0, number(t, eval(t, call("len", str("héllo")))))
	assert.Equal(t, 2.0, number(t, eval(t, call("len", strs("a", "b")))))
}

func TestRecordBuiltins(t *testing.T) {
	rec := record("b", num(2), "a", num(1))
	v := eval(t, call("keys", rec))
	assert.Equal(t, VectorValue{Elements: []Value{StringValue{Val: "a"}, StringValue{Val: "b"}}}, v)
	assert.Equal(t, []float64{1, 2}, floatsOf(t, eval(t, call("values", rec))))
	assert.Equal(t, BoolValue{Val: true}, eval(t, call("has", rec, str("a"))))
	assert.Equal(t, BoolValue{Val: false}, eval(t, call("has", rec, str("z"))))
}

func TestTypeof(t *testing.T) {
	for want, expr := range map[string]Node{
		"Number":    num(1),
		"String":    str("x"),
		"Boolean":   boolean(true),
		"Complex":   ref("i"),
		"Vector":    strs("a"),
		"Tensor":    nums(1, 2),
		"Record":    record("a", num(1)),
		"Function":  lambda(num(1)),
		"Edge":      edge("A", "B"),
		"Error":     call("error", str("oops")),
		"Generator": &GenerateBlock{},
	} {
		assert.Equal(t, StringValue{Val: want}, eval(t, call("typeof", expr)), "typeof for %s", want)
	}
}

func TestPrint(t *testing.T) {
	ctx, out := testContext(t)
	_, err := NewInterpreter().Eval(ctx, call("print", num(1), nums(2, 3)))
	require.NoError(t, err)
	assert.Equal(t, "1 [2, 3]\n", out.String())
}

func TestErrorBuiltinDoesNotThrow(t *testing.T) {
	v := eval(t, let("e", call("error", str("bad input"), str("ValidationError"))), field(ref("e"), "kind"))
	assert.Equal(t, StringValue{Val: "ValidationError"}, v)
}

func TestHigherOrderFunctions(t *testing.T) {
	double := lambda(bin(OpMul, ref("x"), num(2)), "x")
	add := lambda(bin(OpAdd, ref("a"), ref("b")), "a", "b")
	even := lambda(bin(OpEq, bin(OpMod, ref("x"), num(2)), num(0)), "x")

	t.Run("map", func(t *testing.T) {
		assert.Equal(t, []float64{2, 4, 6}, floatsOf(t, eval(t, call("map", double, nums(1, 2, 3)))))
		assert.Equal(t, []float64{11, 22}, floatsOf(t, eval(t, call("map", add, nums(1, 2, 3), nums(10, 20)))))
		assert.Equal(t, []float64{1, 2}, floatsOf(t, eval(t, call("map", ref("sqrt"), nums(1, 4)))))
	})

	t.Run("map arity", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), call("map", add, nums(1, 2)))
		assert.Contains(t, err.Error(), "function takes 2 arguments but 1 vectors were given")
	})

	t.Run("filter", func(t *testing.T) {
		assert.Equal(t, []float64{2, 4}, floatsOf(t, eval(t, call("filter", even, nums(1, 2, 3, 4)))))
	})

	t.Run("reduce", func(t *testing.T) {
		assert.Equal(t, 10.0, number(t, eval(t, call("reduce", add, num(0), nums(1, 2, 3, 4)))))
		assert.Equal(t, 7.0, number(t, eval(t, call("reduce", add, num(7), nums()))))
	})

	t.Run("pipe", func(t *testing.T) {
		v := eval(t, call("pipe", num(3), double, lambda(bin(OpAdd, ref("x"), num(1)), "x")))
		assert.Equal(t, 7.0, number(t, v))
	})

	t.Run("any all find", func(t *testing.T) {
		assert.Equal(t, BoolValue{Val: true}, eval(t, call("any", nums(1, 3, 4), even)))
		assert.Equal(t, BoolValue{Val: false}, eval(t, call("all", nums(2, 3), even)))
		assert.Equal(t, BoolValue{Val: true}, eval(t, call("all", nums(), even)))
		assert.Equal(t, 4.0, number(t, eval(t, call("find", nums(1, 3, 4, 6), even))))

		err := runErr(t, NewInterpreter(), call("find", nums(1, 3), even))
		assert.Contains(t, err.Error(), "element not found")
	})
}

func TestLinearAlgebra(t *testing.T) {
	a := array(nums(4, 3), nums(6, 3))

	assert.Equal(t, 32.0, number(t, eval(t, call("dot", nums(1, 2, 3), nums(4, 5, 6)))))
	assert.Equal(t, []float64{0, 0, 1}, floatsOf(t, eval(t, call("cross", nums(1, 0, 0), nums(0, 1, 0)))))
	assert.InDelta(t, 5, number(t, eval(t, call("norm", nums(3, 4)))), 1e-12)
	assert.InDelta(t, 7, number(t, eval(t, call("norm", nums(3, -4), num(1)))), 1e-12)
	assert.InDelta(t, -6, number(t, eval(t, call("det", a))), 1e-9)
	assert.InDelta(t, 7, number(t, eval(t, call("trace", a))), 1e-12)

	x := floatsOf(t, eval(t, call("solve", a, nums(10, 12))))
	require.Len(t, x, 2)
	assert.InDelta(t, 1, x[0], 1e-9)
	assert.InDelta(t, 2, x[1], 1e-9)

	v := eval(t, call("matmul", a, call("inverse", a)))
	tv, ok := v.(TensorValue)
	require.True(t, ok, "got %s", v)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, tv.Data, 1e-9)

	v = eval(t, call("transpose", array(nums(1, 2, 3), nums(4, 5, 6))))
	tv, ok = v.(TensorValue)
	require.True(t, ok, "got %s", v)
	assert.Equal(t, []int{3, 2}, tv.Shape)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tv.Data)

	err := runErr(t, NewInterpreter(), call("dot", nums(1, 2), nums(1, 2, 3)))
	assert.Equal(t, KindDimensionMismatch, ErrorKind(err))
}

func TestDecompositions(t *testing.T) {
	spd := array(nums(4, 2), nums(2, 3))

	v := eval(t, call("cholesky", spd))
	l, ok := v.(TensorValue)
	require.True(t, ok, "got %s", v)
	assert.InDelta(t, 2, l.Data[0], 1e-9)
	assert.InDelta(t, 0, l.Data[1], 1e-9)

	lu := eval(t, call("lu", spd))
	for _, name := range []string{"L", "U", "P"} {
		fieldOf(t, lu, name)
	}
	qr := eval(t, call("qr", spd))
	fieldOf(t, qr, "Q")
	fieldOf(t, qr, "R")

	eig := floatsOf(t, eval(t, call("eigvals", array(nums(2, 0), nums(0, 3)))))
	slices.Sort(eig)
	assert.InDeltaSlice(t, []float64{2, 3}, eig, 1e-9)

	rot := eval(t, call("eigvals", array(nums(0, -1), nums(1, 0))))
	vec, ok := rot.(VectorValue)
	require.True(t, ok, "got %s", rot)
	for _, e := range vec.Elements {
		assert.IsType(t, ComplexValue{}, e)
	}
}

func TestNumericalCalculus(t *testing.T) {
	square := lambda(bin(OpPow, ref("x"), num(2)), "x")
	sin := ref("sin")

	assert.InDelta(t, 6, number(t, eval(t, call("diff", square, num(3)))), 1e-5)
	assert.InDelta(t, 2, number(t, eval(t, call("diff2", square, num(3)))), 1e-3)
	assert.InDelta(t, 2, number(t, eval(t, call("integral", sin, num(0), ref("pi")))), 1e-8)
	assert.InDelta(t, 9, number(t, eval(t, call("simpson", square, num(0), num(3), num(100)))), 1e-8)
	assert.InDelta(t, 9, number(t, eval(t, call("trapz", square, num(0), num(3)))), 1e-4)
}

func TestRootFinding(t *testing.T) {
	f := lambda(bin(OpSub, bin(OpPow, ref("x"), num(2)), num(2)), "x")
	df := lambda(bin(OpMul, num(2), ref("x")), "x")

	assert.InDelta(t, math.Sqrt2, number(t, eval(t, call("newton", f, df, num(1)))), 1e-9)
	assert.InDelta(t, math.Sqrt2, number(t, eval(t, call("secant", f, num(1), num(2)))), 1e-9)
	assert.InDelta(t, math.Sqrt2, number(t, eval(t, call("bisect", f, num(0), num(2)))), 1e-9)

	err := runErr(t, NewInterpreter(), call("bisect", f, num(2), num(3)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
	assert.Contains(t, err.Error(), "opposite signs")

	notNumber := lambda(str("x"), "x")
	err = runErr(t, NewInterpreter(), call("diff", notNumber, num(1)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
}

func TestBuiltinArity(t *testing.T) {
	err := runErr(t, NewInterpreter(), call("sqrt"))
	assert.Equal(t, KindTypeError, ErrorKind(err))

	err = runErr(t, NewInterpreter(), call("sqrt", num(1), num(2)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
}
