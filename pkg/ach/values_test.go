package ach

import (
	"fmt"
	"strings"
	"testing"

	"gotest.tools/v3/golden"
)

func TestValueRendering(t *testing.T) {
	cases := []struct {
		name string
		expr Node
	}{
		{"integer", num(42)},
		{"fraction", bin(OpDiv, num(1), num(4))},
		{"large", num(1e20)},
		{"infinity", ref("inf")},
		{"boolean", boolean(true)},
		{"null", &NullLit{}},
		{"complex", bin(OpAdd, num(3), bin(OpMul, num(4), ref("i")))},
		{"imaginary", call("sqrt", num(-4))},
		{"conjugate", call("conj", call("complex", num(1), num(2)))},
		{"strings", strs("a", "b")},
		{"mixed", array(num(1), str("a"), boolean(false))},
		{"empty", nums()},
		{"vector", nums(1, 2.5, 3)},
		{"matrix", array(nums(1, 2), nums(3, 4))},
		{"linspace", call("linspace", num(0), num(1), num(3))},
		{"record", record("b", str("x"), "a", num(1))},
		{"mutable field", &RecordLit{Fields: []RecordField{{Name: "n", Value: num(1), Mutable: true}}}},
		{"nested record", record("inner", record("v", nums(1, 2)))},
		{"directed edge", edge("A", "B")},
		{"weighted edge", wedge("A", "B", 2)},
		{"error", call("error", str("bad"), str("Custom"))},
		{"plain error", call("error", str("bad"))},
		{"lambda", lambda(num(1), "x", "y")},
		{"builtin", ref("sqrt")},
		{"generator", &GenerateBlock{Stmts: []Node{&Yield{Value: num(1)}}}},
	}

	var out strings.Builder
	for _, tc := range cases {
		fmt.Fprintf(&out, "%s: %s\n", tc.name, eval(t, tc.expr))
	}
	golden.Assert(t, out.String(), "values.golden")
}
