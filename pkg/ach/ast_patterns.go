package ach

import (
	"context"
	"fmt"
)

// Match tries each arm in order. The first arm whose pattern matches and
// whose guard holds is evaluated with the pattern's bindings in scope.
type Match struct {
	Value Node
	Arms  []MatchArm
	Loc   *SourceLocation
}

// MatchArm is `pattern [if guard] => body`.
type MatchArm struct {
	Pattern Pattern
	Guard   Node
	Body    Node
}

var _ Node = (*Match)(nil)

func (m *Match) GetSourceLocation() *SourceLocation { return m.Loc }

func (m *Match) Walk(fn func(Node) bool) {
	if !fn(m) {
		return
	}
	m.Value.Walk(fn)
	for _, arm := range m.Arms {
		walkAll(fn, arm.Guard, arm.Body)
	}
}

func (m *Match) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, m, func() (Value, error) {
		v, err := EvalNode(ctx, i, m.Value)
		if err != nil {
			return nil, err
		}
		v = Deref(v)

		for _, arm := range m.Arms {
			bindings := map[string]Value{}
			matched, err := arm.Pattern.match(i, v, bindings)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}

			outer := i.env
			i.env = NewEnv(outer)
			for name, b := range bindings {
				i.env.Define(name, b)
			}
			result, ok, err := m.evalArm(ctx, i, arm)
			i.env = outer
			if err != nil {
				return nil, err
			}
			if ok {
				return result, nil
			}
		}
		return nil, runtimeErrorf("no pattern matched the value: %s", quoted(v))
	})
}

func (m *Match) evalArm(ctx context.Context, i *Interpreter, arm MatchArm) (Value, bool, error) {
	if arm.Guard != nil {
		g, err := EvalNode(ctx, i, arm.Guard)
		if err != nil {
			return nil, false, err
		}
		ok, err := truthy(g)
		if err != nil {
			return nil, false, typeErrorf("Match guard must be a Boolean or Number, got %s", typeString(InferType(Deref(g))))
		}
		if !ok {
			return nil, false, nil
		}
	}
	v, err := EvalNode(ctx, i, arm.Body)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Pattern is the left-hand side of a match arm.
type Pattern interface {
	fmt.Stringer
	match(i *Interpreter, v Value, bindings map[string]Value) (bool, error)
}

// WildcardPattern is `_`.
type WildcardPattern struct{}

func (WildcardPattern) String() string { return "_" }

func (WildcardPattern) match(*Interpreter, Value, map[string]Value) (bool, error) {
	return true, nil
}

// VariablePattern binds the value to Name.
type VariablePattern struct {
	Name string
}

func (p VariablePattern) String() string { return p.Name }

func (p VariablePattern) match(_ *Interpreter, v Value, bindings map[string]Value) (bool, error) {
	bindings[p.Name] = v
	return true, nil
}

// LiteralPattern matches an equal value. Numbers compare within a
// relative machine epsilon.
type LiteralPattern struct {
	Value Value
}

func (p LiteralPattern) String() string { return quoted(p.Value) }

func (p LiteralPattern) match(_ *Interpreter, v Value, _ map[string]Value) (bool, error) {
	if want, ok := p.Value.(NumberValue); ok {
		got, ok := v.(NumberValue)
		return ok && numbersClose(want.Val, got.Val), nil
	}
	return Equal(p.Value, v), nil
}

// TypePattern matches values of a named type, optionally binding them.
type TypePattern struct {
	Name string
	Bind string
}

func (p TypePattern) String() string {
	if p.Bind != "" {
		return p.Bind + ": " + p.Name
	}
	return p.Name
}

func (p TypePattern) match(i *Interpreter, v Value, bindings map[string]Value) (bool, error) {
	var t Type
	switch p.Name {
	case "Tensor":
		t = TensorType{}
	case "Record":
		t = RecordType{}
	case "Null", "null":
		t = NullType
	default:
		if _, ok := i.checker.Alias(p.Name); ok {
			t = TypeRef{Name: p.Name}
		} else {
			t = SimpleType(p.Name)
		}
	}
	ok, err := i.checker.matches(v, t)
	if err != nil || !ok {
		return false, err
	}
	if p.Bind != "" {
		bindings[p.Bind] = v
	}
	return true, nil
}

// FieldPattern matches one field. A nil Pattern binds the field under its
// own name.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

// RecordPattern matches records (and error values) that have at least the
// listed fields.
type RecordPattern struct {
	Fields []FieldPattern
}

func (p RecordPattern) String() string {
	s := "{"
	for k, f := range p.Fields {
		if k > 0 {
			s += ", "
		}
		s += f.Name
		if f.Pattern != nil {
			s += ": " + f.Pattern.String()
		}
	}
	return s + "}"
}

func (p RecordPattern) match(i *Interpreter, v Value, bindings map[string]Value) (bool, error) {
	var fields map[string]Value
	switch r := v.(type) {
	case RecordValue:
		fields = r.Fields
	case *ErrorValue:
		fields = r.Fields()
	default:
		return false, nil
	}
	for _, f := range p.Fields {
		fv, ok := fields[f.Name]
		if !ok {
			return false, nil
		}
		fv = Deref(fv)
		if f.Pattern == nil {
			bindings[f.Name] = fv
			continue
		}
		ok, err := f.Pattern.match(i, fv, bindings)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// VectorPattern matches a vector element-wise. At most one RestPattern,
// in any position, collects the elements between the fixed prefix and
// suffix.
type VectorPattern struct {
	Elements []Pattern
}

func (p VectorPattern) String() string {
	s := "["
	for k, e := range p.Elements {
		if k > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}

func (p VectorPattern) match(i *Interpreter, v Value, bindings map[string]Value) (bool, error) {
	restAt := -1
	for k, ep := range p.Elements {
		if _, ok := ep.(RestPattern); ok {
			if restAt >= 0 {
				return false, typeErrorf("Only one rest pattern is allowed in a vector pattern")
			}
			restAt = k
		}
	}

	var elems []Value
	switch x := v.(type) {
	case VectorValue:
		elems = x.Elements
	case TensorValue:
		if x.Rank() != 1 {
			return false, nil
		}
		elems = numbers(x.Data).Elements
	default:
		return false, nil
	}

	prefix, suffix := p.Elements, []Pattern(nil)
	if restAt >= 0 {
		prefix, suffix = p.Elements[:restAt], p.Elements[restAt+1:]
		if len(elems) < len(prefix)+len(suffix) {
			return false, nil
		}
	} else if len(elems) != len(prefix) {
		return false, nil
	}

	for k, ep := range prefix {
		ok, err := ep.match(i, Deref(elems[k]), bindings)
		if err != nil || !ok {
			return false, err
		}
	}
	tail := len(elems) - len(suffix)
	for k, ep := range suffix {
		ok, err := ep.match(i, Deref(elems[tail+k]), bindings)
		if err != nil || !ok {
			return false, err
		}
	}
	if restAt >= 0 {
		if name := p.Elements[restAt].(RestPattern).Name; name != "" {
			bindings[name] = VectorValue{Elements: append([]Value(nil), elems[len(prefix):tail]...)}
		}
	}
	return true, nil
}

// RestPattern is `...name` inside a vector pattern.
type RestPattern struct {
	Name string
}

func (p RestPattern) String() string { return "..." + p.Name }

func (p RestPattern) match(*Interpreter, Value, map[string]Value) (bool, error) {
	return false, typeErrorf("Rest pattern is only valid inside a vector pattern")
}
