package ach

import (
	"log/slog"

	"github.com/kr/pretty"
)

// DebugString renders a value or node with its Go structure, for
// diagnostics rather than display.
func DebugString(v any) string {
	return pretty.Sprint(v)
}

// debugAttr defers DebugString until a log record is actually emitted.
type debugAttr struct{ v any }

func (d debugAttr) LogValue() slog.Value {
	return slog.StringValue(DebugString(d.v))
}
