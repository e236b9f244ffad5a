package ach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringBuiltins(t *testing.T) {
	for _, tc := range []struct {
		name string
		expr Node
		want Value
	}{
		{"upper", call("upper", str("Hello World")), StringValue{Val: "HELLO WORLD"}},
		{"lower", call("lower", str("Hello World")), StringValue{Val: "hello world"}},
		{"trim", call("trim", str("\n\t hi  ")), StringValue{Val: "hi"}},
		{"trim_start", call("trim_start", str("  hi  ")), StringValue{Val: "hi  "}},
		{"trim_end", call("trim_end", str("  hi  ")), StringValue{Val: "  hi"}},
		{"starts_with", call("starts_with", str("hello world"), str("hello")), BoolValue{Val: true}},
		{"ends_with", call("ends_with", str("hello world"), str("hello")), BoolValue{Val: false}},
		{"contains substring", call("contains", str("hello world"), str("o w")), BoolValue{Val: true}},
		{"contains element", call("contains", nums(1, 2, 3), num(2)), BoolValue{Val: true}},
		{"contains missing element", call("contains", strs("a", "b"), str("c")), BoolValue{Val: false}},
		{"replace", call("replace", str("aaa"), str("a"), str("b")), StringValue{Val: "bbb"}},
		{"join", call("join", strs("a", "b", "c"), str(",")), StringValue{Val: "a,b,c"}},
		{"pad_start", call("pad_start", str("5"), num(3), str("0")), StringValue{Val: "005"}},
		{"pad_start default fill", call("pad_start", str("5"), num(3)), StringValue{Val: "  5"}},
		{"pad_end", call("pad_end", str("5"), num(3), str("-")), StringValue{Val: "5--"}},
		{"pad_end already wide", call("pad_end", str("hello"), num(3)), StringValue{Val: "hello"}},
		{"pad_start wide runes", call("pad_start", str("日本"), num(6), str(".")), StringValue{Val: "..日本"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, eval(t, tc.expr))
		})
	}

	t.Run("split", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "", "c"}, stringsOf(t, eval(t, call("split", str("a,b,,c"), str(",")))))
	})

	t.Run("split then join round trips", func(t *testing.T) {
		got := eval(t, call("join", call("split", str("x y z"), str(" ")), str(" ")))
		assert.Equal(t, StringValue{Val: "x y z"}, got)
	})
}

func TestStringBuiltinErrors(t *testing.T) {
	i := NewInterpreter()

	err := runErr(t, i, call("upper", num(1)))
	assert.Equal(t, KindTypeError, ErrorKind(err))

	err = runErr(t, i, call("pad_start", str("5"), num(3), str("ab")))
	assert.Contains(t, err.Error(), "fill must be a single character")

	err = runErr(t, i, call("join", nums(1, 2), str(",")))
	assert.Equal(t, KindTypeError, ErrorKind(err))
}
