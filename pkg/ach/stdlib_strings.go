package ach

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

func registerStrings() {
	transform := func(name, doc string, fn func(string) string) {
		Builtin(name).
			Module("strings").
			Doc(doc).
			Params("s").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				s, err := args.String(0)
				if err != nil {
					return nil, err
				}
				return StringValue{Val: fn(s)}, nil
			})
	}
	transform("upper", "converts to upper case", strings.ToUpper)
	transform("lower", "converts to lower case", strings.ToLower)
	transform("trim", "drops leading and trailing whitespace", strings.TrimSpace)
	transform("trim_start", "drops leading whitespace", func(s string) string {
		return strings.TrimLeft(s, " \t\r\n\v\f")
	})
	transform("trim_end", "drops trailing whitespace", func(s string) string {
		return strings.TrimRight(s, " \t\r\n\v\f")
	})

	test := func(name, doc string, fn func(s, affix string) bool) {
		Builtin(name).
			Module("strings").
			Doc(doc).
			Params("s", "affix").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				s, err := args.String(0)
				if err != nil {
					return nil, err
				}
				affix, err := args.String(1)
				if err != nil {
					return nil, err
				}
				return BoolValue{Val: fn(s, affix)}, nil
			})
	}
	test("starts_with", "whether s begins with the prefix", strings.HasPrefix)
	test("ends_with", "whether s ends with the suffix", strings.HasSuffix)

	Builtin("contains").
		Module("strings").
		Doc("substring test for strings, membership test for vectors").
		Params("haystack", "needle").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			if s, ok := args.Get(0).(StringValue); ok {
				sub, err := args.String(1)
				if err != nil {
					return nil, err
				}
				return BoolValue{Val: strings.Contains(s.Val, sub)}, nil
			}
			elems, err := args.Vector(0)
			if err != nil {
				return nil, args.mismatch(0, "a String or Vector")
			}
			for _, e := range elems {
				if Equal(e, args.Get(1)) {
					return BoolValue{Val: true}, nil
				}
			}
			return BoolValue{Val: false}, nil
		})

	Builtin("replace").
		Module("strings").
		Doc("replaces every occurrence of old with new").
		Params("s", "old", "new").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			var parts [3]string
			for k := range parts {
				s, err := args.String(k)
				if err != nil {
					return nil, err
				}
				parts[k] = s
			}
			return StringValue{Val: strings.ReplaceAll(parts[0], parts[1], parts[2])}, nil
		})

	Builtin("split").
		Module("strings").
		Doc("splits s around every delimiter").
		Params("s", "delimiter").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			s, err := args.String(0)
			if err != nil {
				return nil, err
			}
			sep, err := args.String(1)
			if err != nil {
				return nil, err
			}
			parts := strings.Split(s, sep)
			out := make([]Value, len(parts))
			for k, p := range parts {
				out[k] = StringValue{Val: p}
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("join").
		Module("strings").
		Doc("joins a vector of strings with the delimiter").
		Params("parts", "delimiter").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			sep, err := args.String(1)
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(elems))
			for k, e := range elems {
				s, ok := Deref(e).(StringValue)
				if !ok {
					return nil, args.mismatch(0, "a Vector of Strings")
				}
				parts[k] = s.Val
			}
			return StringValue{Val: strings.Join(parts, sep)}, nil
		})

	pad := func(name, doc string, atStart bool) {
		Builtin(name).
			Module("strings").
			Doc(doc).
			Params("s", "width").
			Optional("fill").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				s, err := args.String(0)
				if err != nil {
					return nil, err
				}
				width, err := args.Int(1)
				if err != nil {
					return nil, err
				}
				fill := " "
				if args.Has(2) {
					if fill, err = args.String(2); err != nil {
						return nil, err
					}
					if utf8.RuneCountInString(fill) != 1 {
						return nil, typeErrorf("%s: fill must be a single character", name)
					}
				}
				missing := width - ansi.StringWidth(s)
				if missing <= 0 {
					return StringValue{Val: s}, nil
				}
				padding := strings.Repeat(fill, missing)
				if atStart {
					return StringValue{Val: padding + s}, nil
				}
				return StringValue{Val: s + padding}, nil
			})
	}
	pad("pad_start", "pads s on the left to the given display width", true)
	pad("pad_end", "pads s on the right to the given display width", false)
}
