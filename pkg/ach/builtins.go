package ach

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// BuiltinFunc implements a builtin. The interpreter is passed so that
// higher-order builtins can apply user functions.
type BuiltinFunc func(ctx context.Context, i *Interpreter, args Args) (Value, error)

// BuiltinDef describes a registered builtin function.
type BuiltinDef struct {
	Name   string
	Module string
	Doc    string
	Params []string

	// Arity is the maximum argument count, or -1 for variadic builtins.
	Arity    int
	MinArity int

	Impl BuiltinFunc
}

func (d BuiltinDef) accepts(n int) bool {
	if n < d.MinArity {
		return false
	}
	return d.Arity < 0 || n <= d.Arity
}

func (d BuiltinDef) arityString() string {
	switch {
	case d.Arity < 0:
		return fmt.Sprintf("at least %d", d.MinArity)
	case d.MinArity == d.Arity:
		return fmt.Sprint(d.Arity)
	default:
		return fmt.Sprintf("%d to %d", d.MinArity, d.Arity)
	}
}

// Signature renders the builtin as name(params).
func (d BuiltinDef) Signature() string {
	params := slices.Clone(d.Params)
	for k := d.MinArity; k < len(params); k++ {
		params[k] += "?"
	}
	if d.Arity < 0 {
		params = append(params, "...")
	}
	return d.Name + "(" + strings.Join(params, ", ") + ")"
}

// BuiltinBuilder provides a fluent API for defining builtin functions
type BuiltinBuilder struct {
	def BuiltinDef
}

// Builtin creates a new builtin function builder
func Builtin(name string) *BuiltinBuilder {
	return &BuiltinBuilder{
		def: BuiltinDef{
			Name:   name,
			Module: "core",
		},
	}
}

// Module sets the module the builtin can be imported from.
func (b *BuiltinBuilder) Module(module string) *BuiltinBuilder {
	b.def.Module = module
	return b
}

// Doc sets the documentation string
func (b *BuiltinBuilder) Doc(doc string) *BuiltinBuilder {
	b.def.Doc = doc
	return b
}

// Params adds required parameters.
func (b *BuiltinBuilder) Params(names ...string) *BuiltinBuilder {
	b.def.Params = append(b.def.Params, names...)
	b.def.MinArity += len(names)
	b.def.Arity = len(b.def.Params)
	return b
}

// Optional adds trailing parameters that may be omitted.
func (b *BuiltinBuilder) Optional(names ...string) *BuiltinBuilder {
	b.def.Params = append(b.def.Params, names...)
	b.def.Arity = len(b.def.Params)
	return b
}

// Variadic lets the builtin take any number of arguments beyond its
// required parameters.
func (b *BuiltinBuilder) Variadic() *BuiltinBuilder {
	b.def.Arity = -1
	return b
}

// Impl sets the implementation and registers the builtin
func (b *BuiltinBuilder) Impl(fn BuiltinFunc) {
	b.def.Impl = fn
	Register(b.def)
}

var (
	registry      []BuiltinDef
	registryIndex = map[string]int{}
)

// Register adds a builtin definition to the registry, replacing any
// earlier definition with the same name.
func Register(def BuiltinDef) {
	if idx, ok := registryIndex[def.Name]; ok {
		registry[idx] = def
		return
	}
	registryIndex[def.Name] = len(registry)
	registry = append(registry, def)
}

// LookupBuiltin finds a builtin by name.
func LookupBuiltin(name string) (BuiltinDef, bool) {
	idx, ok := registryIndex[name]
	if !ok {
		return BuiltinDef{}, false
	}
	return registry[idx], true
}

// ForEachFunction calls fn for every registered builtin, in registration
// order.
func ForEachFunction(fn func(BuiltinDef)) {
	for _, def := range registry {
		fn(def)
	}
}

// ModuleBuiltins returns the builtins belonging to module.
func ModuleBuiltins(module string) []BuiltinDef {
	var defs []BuiltinDef
	for _, def := range registry {
		if def.Module == module {
			defs = append(defs, def)
		}
	}
	return defs
}

// Modules lists the builtin module names.
func Modules() []string {
	seen := map[string]bool{}
	var mods []string
	for _, def := range registry {
		if !seen[def.Module] {
			seen[def.Module] = true
			mods = append(mods, def.Module)
		}
	}
	sort.Strings(mods)
	return mods
}

func (i *Interpreter) callBuiltin(ctx context.Context, name string, args []Value) (Value, error) {
	def, ok := LookupBuiltin(name)
	if !ok {
		return nil, undefinedf("Undefined function: '%s'", name)
	}
	if !def.accepts(len(args)) {
		return nil, typeErrorf("%s expects %s arguments, got %d", name, def.arityString(), len(args))
	}
	vals := make([]Value, len(args))
	for k, a := range args {
		vals[k] = Deref(a)
	}
	v, err := def.Impl(ctx, i, Args{def: def, Values: vals})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NullValue{}, nil
	}
	return v, nil
}

// Args provides typed positional access to builtin arguments. Conversion
// failures are TypeErrors naming the builtin and the parameter.
type Args struct {
	def    BuiltinDef
	Values []Value
}

// Len returns the number of arguments passed.
func (a Args) Len() int { return len(a.Values) }

// Has reports whether argument k was passed.
func (a Args) Has(k int) bool { return k < len(a.Values) }

// Get returns argument k.
func (a Args) Get(k int) Value { return a.Values[k] }

func (a Args) mismatch(k int, want string) error {
	param := fmt.Sprintf("argument %d", k+1)
	if k < len(a.def.Params) {
		param = fmt.Sprintf("'%s'", a.def.Params[k])
	}
	return typeErrorf("%s: %s must be %s, got %s", a.def.Name, param, want, typeString(InferType(a.Values[k])))
}

// Number retrieves a Number argument.
func (a Args) Number(k int) (float64, error) {
	n, ok := a.Values[k].(NumberValue)
	if !ok {
		return 0, a.mismatch(k, "a Number")
	}
	return n.Val, nil
}

// Int retrieves an integral Number argument.
func (a Args) Int(k int) (int, error) {
	f, err := a.Number(k)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, a.mismatch(k, "an integer")
	}
	return int(f), nil
}

// String retrieves a String argument.
func (a Args) String(k int) (string, error) {
	s, ok := a.Values[k].(StringValue)
	if !ok {
		return "", a.mismatch(k, "a String")
	}
	return s.Val, nil
}

// Bool retrieves a Boolean argument.
func (a Args) Bool(k int) (bool, error) {
	b, ok := a.Values[k].(BoolValue)
	if !ok {
		return false, a.mismatch(k, "a Boolean")
	}
	return b.Val, nil
}

// Complex retrieves a Number or Complex argument.
func (a Args) Complex(k int) (complex128, error) {
	switch v := a.Values[k].(type) {
	case NumberValue:
		return complex(v.Val, 0), nil
	case ComplexValue:
		return v.Val, nil
	}
	return 0, a.mismatch(k, "a Number or Complex")
}

// Vector retrieves the elements of a Vector, or of a rank-1 tensor.
func (a Args) Vector(k int) ([]Value, error) {
	switch v := a.Values[k].(type) {
	case VectorValue:
		return v.Elements, nil
	case TensorValue, ComplexTensorValue:
		elems, err := spreadElements(v)
		if err != nil {
			return nil, a.mismatch(k, "a Vector")
		}
		return elems, nil
	}
	return nil, a.mismatch(k, "a Vector")
}

// Floats retrieves a numeric vector.
func (a Args) Floats(k int) ([]float64, error) {
	fs, ok := toFloats(a.Values[k])
	if !ok {
		return nil, a.mismatch(k, "a numeric Vector")
	}
	return fs, nil
}

// Ints retrieves a vector of integers.
func (a Args) Ints(k int) ([]int, error) {
	fs, err := a.Floats(k)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for j, f := range fs {
		if f != math.Trunc(f) {
			return nil, a.mismatch(k, "a Vector of integers")
		}
		out[j] = int(f)
	}
	return out, nil
}

// Matrix retrieves a rank-2 real tensor, or a vector of equal-length
// numeric rows, as rows.
func (a Args) Matrix(k int) ([][]float64, error) {
	rows, ok := toMatrix(a.Values[k])
	if !ok {
		return nil, a.mismatch(k, "a Matrix")
	}
	return rows, nil
}

// Record retrieves a Record argument.
func (a Args) Record(k int) (RecordValue, error) {
	r, ok := a.Values[k].(RecordValue)
	if !ok {
		return RecordValue{}, a.mismatch(k, "a Record")
	}
	return r, nil
}

// Func retrieves a function argument.
func (a Args) Func(k int) (Value, error) {
	if !IsFunction(a.Values[k]) {
		return nil, a.mismatch(k, "a Function")
	}
	return a.Values[k], nil
}

func toFloats(v Value) ([]float64, bool) {
	switch x := v.(type) {
	case VectorValue:
		out := make([]float64, len(x.Elements))
		for j, e := range x.Elements {
			n, ok := Deref(e).(NumberValue)
			if !ok {
				return nil, false
			}
			out[j] = n.Val
		}
		return out, true
	case TensorValue:
		if x.Rank() != 1 {
			return nil, false
		}
		return slices.Clone(x.Data), true
	}
	return nil, false
}

func toMatrix(v Value) ([][]float64, bool) {
	switch x := v.(type) {
	case TensorValue:
		if x.Rank() != 2 {
			return nil, false
		}
		rows := make([][]float64, x.Shape[0])
		for r := range rows {
			rows[r] = slices.Clone(x.Data[r*x.Shape[1] : (r+1)*x.Shape[1]])
		}
		return rows, true
	case VectorValue:
		rows := make([][]float64, len(x.Elements))
		for r, e := range x.Elements {
			row, ok := toFloats(Deref(e))
			if !ok || (r > 0 && len(row) != len(rows[0])) {
				return nil, false
			}
			rows[r] = row
		}
		return rows, true
	}
	return nil, false
}

// matrixValue builds a rank-2 tensor from rows.
func matrixValue(rows [][]float64) TensorValue {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	return TensorValue{Shape: []int{len(rows), cols}, Data: data}
}
