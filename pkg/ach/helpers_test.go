package ach

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vito/achronyme/pkg/ioctx"
)

func num(f float64) Node { return &NumberLit{Value: f} }
func str(s string) Node { return &StringLit{Value: s} }
func boolean(b bool) Node { return &BoolLit{Value: b} }
func ref(name string) Node { return &VarRef{Name: name} }
func let(name string, v Node) Node {
	return &VarDecl{Name: name, Value: v}
}
func mut(name string, v Node) Node {
	return &MutDecl{Name: name, Value: v}
}
func assign(target, v Node) Node {
	return &Assignment{Target: target, Value: v}
}

func call(name string, args ...Node) Node {
	return &FunctionCall{Name: name, Args: args}
}

func method(recv Node, field string, args ...Node) Node {
	return &CallExpr{Callee: &FieldAccess{Receiver: recv, Field: field}, Args: args}
}

func field(recv Node, name string) Node {
	return &FieldAccess{Receiver: recv, Field: name}
}

func index(recv Node, idx ...Node) Node {
	args := make([]IndexArg, len(idx))
	for k, n := range idx {
		args[k] = IndexArg{Single: n}
	}
	return &IndexAccess{Receiver: recv, Indices: args}
}

func bin(op Operator, l, r Node) Node {
	return &BinaryOp{Op: op, Left: l, Right: r}
}

func ifElse(cond, then, els Node) Node {
	return &If{Cond: cond, Then: then, Else: els}
}

func lambda(body Node, params ...string) Node {
	ps := make([]Param, len(params))
	for k, p := range params {
		ps[k] = Param{Name: p}
	}
	return &Lambda{Params: ps, Body: body}
}

func array(elems ...Node) Node {
	out := make([]ArrayElement, len(elems))
	for k, e := range elems {
		out[k] = ArrayElement{Value: e}
	}
	return &ArrayLit{Elements: out}
}

func nums(fs ...float64) Node {
	elems := make([]Node, len(fs))
	for k, f := range fs {
		elems[k] = num(f)
	}
	return array(elems...)
}

func strs(ss ...string) Node {
	elems := make([]Node, len(ss))
	for k, s := range ss {
		elems[k] = str(s)
	}
	return array(elems...)
}

// record builds a record literal from alternating names and nodes.
func record(kv ...any) Node {
	var fields []RecordField
	for k := 0; k < len(kv); k += 2 {
		fields = append(fields, RecordField{Name: kv[k].(string), Value: kv[k+1].(Node)})
	}
	return &RecordLit{Fields: fields}
}

func edge(from, to string) Node {
	return &EdgeLit{From: from, To: to, Directed: true}
}

func wedge(from, to string, w float64) Node {
	return &EdgeLit{From: from, To: to, Props: record("weight", num(w))}
}

// testContext captures print output.
func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	ctx := ioctx.StdoutToContext(context.Background(), &out)
	return ctx, &out
}

func run(t *testing.T, i *Interpreter, nodes ...Node) Value {
	t.Helper()
	ctx, _ := testContext(t)
	v, err := i.EvalProgram(ctx, nodes)
	require.NoError(t, err)
	return v
}

func runErr(t *testing.T, i *Interpreter, nodes ...Node) error {
	t.Helper()
	ctx, _ := testContext(t)
	_, err := i.EvalProgram(ctx, nodes)
	require.Error(t, err)
	return err
}

func eval(t *testing.T, nodes ...Node) Value {
	t.Helper()
	return run(t, NewInterpreter(WithDir(t.TempDir())), nodes...)
}

func floatsOf(t *testing.T, v Value) []float64 {
	t.Helper()
	fs, ok := toFloats(Deref(v))
	require.True(t, ok, "expected numeric vector, got %s", v)
	return fs
}

func fieldOf(t *testing.T, v Value, name string) Value {
	t.Helper()
	rec, ok := Deref(v).(RecordValue)
	require.True(t, ok, "expected record, got %s", v)
	f, ok := rec.Get(name)
	require.True(t, ok, "record %s has no field %q", v, name)
	return f
}

func number(t *testing.T, v Value) float64 {
	t.Helper()
	n, ok := Deref(v).(NumberValue)
	require.True(t, ok, "expected Number, got %s", v)
	return n.Val
}
