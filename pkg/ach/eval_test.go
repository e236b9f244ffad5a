package ach

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailRecursiveFactorial(t *testing.T) {
	factTR := lambda(
		ifElse(
			bin(OpLe, ref("n"), num(1)),
			ref("acc"),
			call("rec", bin(OpSub, ref("n"), num(1)), bin(OpMul, ref("acc"), ref("n"))),
		),
		"n", "acc",
	)
	i := NewInterpreter()
	v := run(t, i,
		let("factTR", factTR),
		call("factTR", num(10000), num(1)),
	)
	require.IsType(t, NumberValue{}, v)
	assert.True(t, math.IsInf(number(t, v), 1))

	v = run(t, i, call("factTR", num(10), num(1)))
	assert.Equal(t, 3628800.0, number(t, v))
}

func TestNonTailRecursion(t *testing.T) {
	fact := lambda(
		ifElse(
			bin(OpLe, ref("n"), num(1)),
			num(1),
			bin(OpMul, ref("n"), call("rec", bin(OpSub, ref("n"), num(1)))),
		),
		"n",
	)
	v := eval(t, let("fact", fact), call("fact", num(10)))
	assert.Equal(t, 3628800.0, number(t, v))
}

func TestIsTailRecursive(t *testing.T) {
	for _, tc := range []struct {
		name string
		body Node
		want bool
	}{
		{
			name: "rec in else branch",
			body: ifElse(ref("c"), num(1), call("rec", num(1))),
			want: true,
		},
		{
			name: "rec under multiplication",
			body: bin(OpMul, ref("n"), call("rec", num(1))),
			want: false,
		},
		{
			name: "rec in condition",
			body: ifElse(call("rec", num(1)), num(1), num(2)),
			want: false,
		},
		{
			name: "rec as argument of rec",
			body: call("rec", call("rec", num(1))),
			want: false,
		},
		{
			name: "no rec at all",
			body: bin(OpAdd, ref("n"), num(1)),
			want: false,
		},
		{
			name: "rec in nested lambda is ignored",
			body: lambda(bin(OpMul, num(2), call("rec", num(1))), "x"),
			want: false,
		},
		{
			name: "rec callee in tail position",
			body: &CallExpr{Callee: &RecRef{}, Args: []Node{num(1)}},
			want: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTailRecursive(tc.body))
		})
	}
}

func TestIsTailPosition(t *testing.T) {
	recCall := call("rec", num(1))
	product := bin(OpMul, ref("n"), recCall)
	cond := bin(OpLe, ref("n"), num(1))
	body := ifElse(cond, num(1), product)

	assert.True(t, IsTailPosition(body, body))
	assert.True(t, IsTailPosition(body, product))
	assert.False(t, IsTailPosition(body, cond))
	assert.False(t, IsTailPosition(body, recCall))
	assert.False(t, IsTailPosition(body, num(1)), "not part of body")

	t.Run("last statement of a block", func(t *testing.T) {
		first, last := ref("a"), ref("b")
		block := &DoBlock{Stmts: []Node{first, last}}
		assert.False(t, IsTailPosition(block, first))
		assert.True(t, IsTailPosition(block, last))
	})

	t.Run("inside a nested lambda", func(t *testing.T) {
		inner := ref("x")
		assert.False(t, IsTailPosition(lambda(inner, "x"), inner))
	})
}

func TestTailCallLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.TCOIterations = 100
	i := NewInterpreter(WithConfig(cfg))
	loop := lambda(ifElse(bin(OpLe, ref("n"), num(0)), num(0), call("rec", bin(OpSub, ref("n"), num(1)))), "n")

	run(t, i, let("loop", loop))
	v := run(t, i, call("loop", num(50)))
	assert.Equal(t, 0.0, number(t, v))

	err := runErr(t, i, call("loop", num(1000)))
	assert.Equal(t, KindMaxIterations, ErrorKind(err))
}

func TestTailCallCancellation(t *testing.T) {
	i := NewInterpreter()
	forever := lambda(call("rec", ref("n")), "n")
	run(t, i, let("forever", forever))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := i.Eval(ctx, call("forever", num(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMatchWithGuard(t *testing.T) {
	describe := lambda(&Match{
		Value: ref("x"),
		Arms: []MatchArm{
			{Pattern: LiteralPattern{Value: NumberValue{Val: 0}}, Body: str("zero")},
			{Pattern: VariablePattern{Name: "n"}, Guard: bin(OpGt, ref("n"), num(0)), Body: str("positive")},
			{Pattern: WildcardPattern{}, Body: str("negative")},
		},
	}, "x")

	i := NewInterpreter()
	run(t, i, let("describe", describe))
	for in, want := range map[float64]string{-5: "negative", 0: "zero", 3: "positive"} {
		v := run(t, i, call("describe", num(in)))
		assert.Equal(t, StringValue{Val: want}, v, "describe(%v)", in)
	}
}

func TestMatchPatterns(t *testing.T) {
	t.Run("record destructuring", func(t *testing.T) {
		v := eval(t, &Match{
			Value: record("x", num(1), "y", num(2)),
			Arms: []MatchArm{{
				Pattern: RecordPattern{Fields: []FieldPattern{{Name: "x"}, {Name: "y", Pattern: VariablePattern{Name: "b"}}}},
				Body:    bin(OpAdd, ref("x"), ref("b")),
			}},
		})
		assert.Equal(t, 3.0, number(t, v))
	})

	t.Run("vector with rest", func(t *testing.T) {
		v := eval(t, &Match{
			Value: nums(1, 2, 3, 4),
			Arms: []MatchArm{
				{
					Pattern: VectorPattern{Elements: []Pattern{VariablePattern{Name: "head"}, RestPattern{Name: "tail"}}},
					Body:    call("len", ref("tail")),
				},
			},
		})
		assert.Equal(t, 3.0, number(t, v))
	})

	t.Run("type pattern", func(t *testing.T) {
		v := eval(t, &Match{
			Value: str("hi"),
			Arms: []MatchArm{
				{Pattern: TypePattern{Name: "Number"}, Body: str("number")},
				{Pattern: TypePattern{Name: "String", Bind: "s"}, Body: ref("s")},
			},
		})
		assert.Equal(t, StringValue{Val: "hi"}, v)
	})

	t.Run("null type pattern", func(t *testing.T) {
		v := eval(t, &Match{
			Value: &NullLit{},
			Arms: []MatchArm{
				{Pattern: TypePattern{Name: "Null"}, Body: str("null!")},
				{Pattern: WildcardPattern{}, Body: str("other")},
			},
		})
		assert.Equal(t, StringValue{Val: "null!"}, v)
	})

	t.Run("rest in any position", func(t *testing.T) {
		for name, tc := range map[string]struct {
			pattern []Pattern
			body    Node
			want    []float64
		}{
			"middle": {
				pattern: []Pattern{VariablePattern{Name: "a"}, RestPattern{Name: "m"}, VariablePattern{Name: "z"}},
				body:    array(ref("a"), call("len", ref("m")), ref("z")),
				want:    []float64{1, 2, 4},
			},
			"leading": {
				pattern: []Pattern{RestPattern{Name: "init"}, VariablePattern{Name: "last"}},
				body:    array(call("len", ref("init")), ref("last")),
				want:    []float64{3, 4},
			},
			"empty rest": {
				pattern: []Pattern{VariablePattern{Name: "a"}, VariablePattern{Name: "b"}, RestPattern{Name: "m"}, VariablePattern{Name: "c"}, VariablePattern{Name: "d"}},
				body:    array(call("len", ref("m"))),
				want:    []float64{0},
			},
		} {
			t.Run(name, func(t *testing.T) {
				v := eval(t, &Match{
					Value: nums(1, 2, 3, 4),
					Arms:  []MatchArm{{Pattern: VectorPattern{Elements: tc.pattern}, Body: tc.body}},
				})
				assert.Equal(t, tc.want, floatsOf(t, v))
			})
		}
	})

	t.Run("rest needs enough elements", func(t *testing.T) {
		v := eval(t, &Match{
			Value: nums(1),
			Arms: []MatchArm{
				{Pattern: VectorPattern{Elements: []Pattern{VariablePattern{Name: "a"}, RestPattern{Name: "m"}, VariablePattern{Name: "z"}}}, Body: str("matched")},
				{Pattern: WildcardPattern{}, Body: str("too short")},
			},
		})
		assert.Equal(t, StringValue{Val: "too short"}, v)
	})

	t.Run("multiple rests", func(t *testing.T) {
		for _, value := range []Node{nums(1, 2), nums(1, 2, 3, 4, 5)} {
			err := runErr(t, NewInterpreter(), &Match{
				Value: value,
				Arms: []MatchArm{{
					Pattern: VectorPattern{Elements: []Pattern{RestPattern{Name: "a"}, VariablePattern{Name: "x"}, RestPattern{Name: "b"}}},
					Body:    num(0),
				}},
			})
			assert.Contains(t, err.Error(), "Only one rest pattern")
		}
	})

	t.Run("no arm matches", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), &Match{
			Value: num(1),
			Arms:  []MatchArm{{Pattern: LiteralPattern{Value: NumberValue{Val: 2}}, Body: num(0)}},
		})
		assert.Contains(t, err.Error(), "no pattern matched the value")
	})
}

func TestGeneratorSquares(t *testing.T) {
	squares := lambda(&GenerateBlock{Stmts: []Node{
		&Yield{Value: num(1)},
		&Yield{Value: num(4)},
		&Yield{Value: num(9)},
	}})
	i := NewInterpreter()
	run(t, i, let("squares", squares), let("g", call("squares")))

	next := method(ref("g"), "next")
	for _, want := range []float64{1, 4, 9} {
		v := run(t, i, next)
		assert.Equal(t, want, number(t, fieldOf(t, v, "value")))
		assert.Equal(t, BoolValue{Val: false}, fieldOf(t, v, "done"))
	}
	for range 2 {
		v := run(t, i, next)
		assert.Equal(t, NullValue{}, fieldOf(t, v, "value"))
		assert.Equal(t, BoolValue{Val: true}, fieldOf(t, v, "done"))
	}
}

func TestGeneratorKeepsState(t *testing.T) {
	counter := &GenerateBlock{Stmts: []Node{
		mut("n", num(0)),
		assign(ref("n"), bin(OpAdd, ref("n"), num(1))),
		&Yield{Value: ref("n")},
		assign(ref("n"), bin(OpAdd, ref("n"), num(10))),
		&Yield{Value: ref("n")},
		&Return{Value: str("finished")},
		&Yield{Value: num(-1)},
	}}
	i := NewInterpreter()
	run(t, i, let("g", counter))

	next := method(ref("g"), "next")
	assert.Equal(t, 1.0, number(t, fieldOf(t, run(t, i, next), "value")))
	assert.Equal(t, 11.0, number(t, fieldOf(t, run(t, i, next), "value")))

	last := run(t, i, next)
	assert.Equal(t, StringValue{Val: "finished"}, fieldOf(t, last, "value"))
	assert.Equal(t, BoolValue{Val: true}, fieldOf(t, last, "done"))

	again := run(t, i, next)
	assert.Equal(t, StringValue{Val: "finished"}, fieldOf(t, again, "value"))
}

func TestForInOverGenerator(t *testing.T) {
	gen := &GenerateBlock{Stmts: []Node{
		&Yield{Value: num(1)},
		&Yield{Value: num(2)},
		&Yield{Value: num(3)},
	}}
	v := eval(t,
		mut("total", num(0)),
		&ForIn{Var: "x", Iterable: gen, Body: assign(ref("total"), bin(OpAdd, ref("total"), ref("x")))},
		ref("total"),
	)
	assert.Equal(t, 6.0, number(t, v))
}

func TestBoundaryBehaviours(t *testing.T) {
	t.Run("popping the root scope", func(t *testing.T) {
		i := NewInterpreter()
		require.Error(t, i.PopScope())
		i.PushScope()
		require.NoError(t, i.PopScope())
	})

	t.Run("rec outside a function", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), call("rec", num(1)))
		assert.Contains(t, err.Error(), "'rec' can only be used inside functions")
	})

	t.Run("yield outside a generator", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), &Yield{Value: num(1)})
		assert.Contains(t, err.Error(), "yield can only be used inside generate blocks")
	})

	t.Run("throwing a record without a message", func(t *testing.T) {
		v := eval(t, &TryCatch{
			Try:   &Throw{Value: record("code", num(7))},
			Param: "e",
			Catch: field(ref("e"), "message"),
		})
		assert.Equal(t, StringValue{Val: "Unknown error"}, v)
	})

	t.Run("scalar division by zero", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), bin(OpDiv, num(1), num(0)))
		assert.Equal(t, KindArithmeticError, ErrorKind(err))
	})

	t.Run("tensor division by zero", func(t *testing.T) {
		v := eval(t, bin(OpDiv, nums(-1, 0, 2), num(0)))
		for _, f := range floatsOf(t, v) {
			assert.True(t, math.IsInf(f, 1), "got %v", f)
		}
	})

	t.Run("complex tensor division by zero", func(t *testing.T) {
		v := eval(t, bin(OpDiv, array(&ComplexLit{Value: -1 + 2i}, &ComplexLit{Value: 0}), num(0)))
		var got []complex128
		switch x := v.(type) {
		case VectorValue:
			for _, e := range x.Elements {
				c, ok := e.(ComplexValue)
				require.True(t, ok, "expected complex, got %s", e)
				got = append(got, c.Val)
			}
		case ComplexTensorValue:
			got = x.Data
		default:
			t.Fatalf("expected complex vector, got %s", v)
		}
		require.Len(t, got, 2)
		for _, c := range got {
			assert.True(t, math.IsInf(real(c), 1), "got %v", c)
			assert.Equal(t, 0.0, imag(c))
		}
	})

	t.Run("negative index", func(t *testing.T) {
		v := eval(t, index(nums(10, 20, 30), num(-1)))
		assert.Equal(t, 30.0, number(t, v))
	})

	t.Run("index past the end", func(t *testing.T) {
		err := runErr(t, NewInterpreter(), index(nums(10, 20, 30), num(3)))
		assert.Equal(t, KindIndexOutOfBounds, ErrorKind(err))
	})
}

func TestErrorKindsInCatch(t *testing.T) {
	for _, tc := range []struct {
		name string
		try  Node
		kind Value
	}{
		{"undefined variable", ref("nope"), StringValue{Val: KindUndefinedVariable}},
		{"type error", bin(OpAdd, num(1), str("a")), StringValue{Val: KindTypeError}},
		{"arithmetic", bin(OpMod, num(1), num(0)), StringValue{Val: KindArithmeticError}},
		{"dimension mismatch", bin(OpAdd, nums(1, 2), nums(1, 2, 3)), StringValue{Val: KindDimensionMismatch}},
		{"thrown string has no kind", &Throw{Value: str("boom")}, NullValue{}},
		{"thrown record keeps its kind", &Throw{Value: record("message", str("bad"), "kind", str("Custom"))}, StringValue{Val: "Custom"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := eval(t, &TryCatch{Try: tc.try, Param: "e", Catch: field(ref("e"), "kind")})
			assert.Equal(t, tc.kind, v)
		})
	}
}

func TestFailedStatementKeepsEarlierBindings(t *testing.T) {
	i := NewInterpreter()
	run(t, i, let("x", num(1)))
	runErr(t, i, let("y", bin(OpDiv, num(1), num(0))))

	assert.Equal(t, 1.0, number(t, run(t, i, ref("x"))))
	assert.False(t, i.Env().Has("y"))
}

func TestMutability(t *testing.T) {
	t.Run("mut binding", func(t *testing.T) {
		v := eval(t, mut("x", num(1)), assign(ref("x"), num(5)), ref("x"))
		assert.Equal(t, 5.0, number(t, v))
	})

	t.Run("immutable binding", func(t *testing.T) {
		i := NewInterpreter()
		err := runErr(t, i, let("x", num(1)), assign(ref("x"), num(5)))
		assert.Equal(t, KindImmutableAssign, ErrorKind(err))
	})

	t.Run("closure sees later writes", func(t *testing.T) {
		v := eval(t,
			mut("count", num(0)),
			let("get", lambda(ref("count"))),
			assign(ref("count"), num(42)),
			call("get"),
		)
		assert.Equal(t, 42.0, number(t, v))
	})

	t.Run("typed mut rejects a different type", func(t *testing.T) {
		i := NewInterpreter()
		err := runErr(t, i,
			&MutDecl{Name: "x", Type: NumberType, Value: num(1)},
			assign(ref("x"), str("no")),
		)
		assert.Equal(t, KindTypeError, ErrorKind(err))
	})
}

func TestSelfInRecordMethods(t *testing.T) {
	counter := record(
		"n", num(41),
		"next", lambda(bin(OpAdd, field(&SelfRef{}, "n"), num(1))),
	)
	v := eval(t, let("c", counter), method(ref("c"), "next"))
	assert.Equal(t, 42.0, number(t, v))
}

func TestLambdaArityAndTypes(t *testing.T) {
	i := NewInterpreter()
	run(t, i, let("add", lambda(bin(OpAdd, ref("a"), ref("b")), "a", "b")))

	err := runErr(t, i, call("add", num(1)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
	assert.Contains(t, err.Error(), "Lambda expects 2 arguments, got 1")

	typed := &Lambda{
		Params: []Param{{Name: "x", Type: NumberType}},
		Body:   ref("x"),
	}
	err = runErr(t, i, let("f", typed), call("f", str("no")))
	assert.Contains(t, err.Error(), "Type error in argument 'x'")
}

func TestEarlyReturn(t *testing.T) {
	f := lambda(&Sequence{Stmts: []Node{
		ifElse(bin(OpGt, ref("x"), num(0)), &Return{Value: str("pos")}, nil),
		str("non-pos"),
	}}, "x")
	i := NewInterpreter()
	run(t, i, let("f", f))
	assert.Equal(t, StringValue{Val: "pos"}, run(t, i, call("f", num(1))))
	assert.Equal(t, StringValue{Val: "non-pos"}, run(t, i, call("f", num(-1))))
}

func TestWhileLoop(t *testing.T) {
	v := eval(t,
		mut("i", num(0)),
		mut("sum", num(0)),
		&While{
			Cond: bin(OpLt, ref("i"), num(5)),
			Body: &Sequence{Stmts: []Node{
				assign(ref("sum"), bin(OpAdd, ref("sum"), ref("i"))),
				assign(ref("i"), bin(OpAdd, ref("i"), num(1))),
			}},
		},
		ref("sum"),
	)
	assert.Equal(t, 10.0, number(t, v))
}

func TestPiecewise(t *testing.T) {
	abs := lambda(&Piecewise{
		Cases:   []PiecewiseCase{{Cond: bin(OpLt, ref("x"), num(0)), Value: &UnaryOp{Op: OpSub, Operand: ref("x")}}},
		Default: ref("x"),
	}, "x")
	i := NewInterpreter()
	run(t, i, let("abs2", abs))
	assert.Equal(t, 3.0, number(t, run(t, i, call("abs2", num(-3)))))
	assert.Equal(t, 4.0, number(t, run(t, i, call("abs2", num(4)))))
}

func TestConstantsAreShadowable(t *testing.T) {
	assert.InDelta(t, math.Pi, number(t, eval(t, ref("pi"))), 1e-12)
	assert.Equal(t, 3.0, number(t, eval(t, let("pi", num(3)), ref("pi"))))
	assert.Equal(t, ComplexValue{Val: complex(0, 1)}, eval(t, ref("i")))
}
