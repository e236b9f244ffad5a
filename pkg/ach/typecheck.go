package ach

import (
	"github.com/pkg/errors"
)

// TypeChecker checks values against annotations, resolving user aliases.
type TypeChecker struct {
	aliases map[string]Type
}

func NewTypeChecker() *TypeChecker {
	return &TypeChecker{aliases: map[string]Type{}}
}

// DefineAlias registers (or replaces) a type alias.
func (c *TypeChecker) DefineAlias(name string, t Type) {
	c.aliases[name] = t
}

// Alias returns the definition of a type alias.
func (c *TypeChecker) Alias(name string) (Type, bool) {
	t, ok := c.aliases[name]
	return t, ok
}

// Resolve follows alias references until a concrete type is reached.
func (c *TypeChecker) Resolve(t Type) (Type, error) {
	seen := map[string]bool{}
	for {
		ref, ok := t.(TypeRef)
		if !ok {
			return t, nil
		}
		if seen[ref.Name] {
			return nil, errors.Errorf("circular type alias %q", ref.Name)
		}
		seen[ref.Name] = true
		next, ok := c.aliases[ref.Name]
		if !ok {
			return nil, errors.Errorf("unknown type %q", ref.Name)
		}
		t = next
	}
}

// CheckType checks v against t with no aliases defined.
func CheckType(v Value, t Type) error {
	return NewTypeChecker().Check(v, t)
}

// Check returns nil when v satisfies t, and a TypeError otherwise.
func (c *TypeChecker) Check(v Value, t Type) error {
	ok, err := c.matches(Deref(v), t)
	if err != nil {
		return Raise(KindTypeError, "%s", err)
	}
	if !ok {
		return typeErrorf("Type mismatch: expected %s, got %s", typeString(t), typeString(InferType(Deref(v))))
	}
	return nil
}

func (c *TypeChecker) matches(v Value, t Type) (bool, error) {
	if t == nil {
		return true, nil
	}
	switch t := t.(type) {
	case SimpleType:
		return matchesSimple(v, t), nil

	case TensorType:
		var elem Type
		var shape []int
		switch tv := v.(type) {
		case TensorValue:
			elem, shape = NumberType, tv.Shape
		case ComplexTensorValue:
			elem, shape = ComplexType, tv.Shape
		default:
			return false, nil
		}
		if t.Elem != nil {
			want, err := c.Resolve(t.Elem)
			if err != nil {
				return false, err
			}
			if want != AnyType && want != elem {
				return false, nil
			}
		}
		return shapeMatches(t.Shape, shape), nil

	case RecordType:
		var fields map[string]Value
		switch rv := v.(type) {
		case RecordValue:
			fields = rv.Fields
		case *ErrorValue:
			fields = rv.Fields()
		default:
			return false, nil
		}
		for name, want := range t.Fields {
			got, ok := fields[name]
			if !ok {
				return false, nil
			}
			_, isMut := got.(*MutableRef)
			if isMut != want.Mutable {
				return false, nil
			}
			ok, err := c.matches(Deref(got), want.Type)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case FunctionType:
		switch fn := v.(type) {
		case *Closure:
			if len(t.Params) == 0 {
				return true, nil
			}
			if len(fn.Params) != len(t.Params) {
				return false, nil
			}
			for i, p := range fn.Params {
				if p.Type == nil || t.Params[i] == nil {
					continue
				}
				ok, err := c.IsAssignableFrom(p.Type, t.Params[i])
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		case BuiltinFunction:
			if len(t.Params) == 0 {
				return true, nil
			}
			def, ok := LookupBuiltin(fn.Name)
			return ok && def.accepts(len(t.Params)), nil
		default:
			return false, nil
		}

	case UnionType:
		for _, member := range t.Types {
			ok, err := c.matches(v, member)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case TypeRef:
		resolved, err := c.Resolve(t)
		if err != nil {
			return false, errors.Wrapf(err, "checking against %s", t.Name)
		}
		return c.matches(v, resolved)
	}
	return false, errors.Errorf("unsupported type annotation %T", t)
}

func matchesSimple(v Value, t SimpleType) bool {
	switch t {
	case AnyType:
		return true
	case NullType:
		_, ok := v.(NullValue)
		return ok
	case AnyFunctionType:
		return IsFunction(v)
	}
	return InferType(v) == Type(t)
}

func shapeMatches(want, got []int) bool {
	if want == nil {
		return true
	}
	if len(want) != len(got) {
		return false
	}
	for i, d := range want {
		if d != WildcardDim && d != got[i] {
			return false
		}
	}
	return true
}

// IsAssignableFrom reports whether a value of type source can be used
// where target is expected. Records are structural, functions are
// contravariant in their parameters and covariant in their result, and
// Any is assignable both ways.
func (c *TypeChecker) IsAssignableFrom(target, source Type) (bool, error) {
	if target == nil || source == nil {
		return true, nil
	}
	if tr, ok := target.(TypeRef); ok {
		if sr, ok := source.(TypeRef); ok && tr.Name == sr.Name {
			return true, nil
		}
	}
	var err error
	if target, err = c.Resolve(target); err != nil {
		return false, err
	}
	if source, err = c.Resolve(source); err != nil {
		return false, err
	}
	if target == AnyType || source == AnyType {
		return true, nil
	}

	if su, ok := source.(UnionType); ok {
		for _, member := range su.Types {
			ok, err := c.IsAssignableFrom(target, member)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if tu, ok := target.(UnionType); ok {
		for _, member := range tu.Types {
			ok, err := c.IsAssignableFrom(member, source)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	switch t := target.(type) {
	case SimpleType:
		if t == AnyFunctionType {
			switch source.(type) {
			case FunctionType:
				return true, nil
			}
		}
		s, ok := source.(SimpleType)
		return ok && s == t, nil

	case TensorType:
		s, ok := source.(TensorType)
		if !ok {
			return false, nil
		}
		if ok, err := c.IsAssignableFrom(t.Elem, s.Elem); err != nil || !ok {
			return false, err
		}
		if t.Shape == nil {
			return true, nil
		}
		if s.Shape == nil || len(s.Shape) != len(t.Shape) {
			return false, nil
		}
		for i, d := range t.Shape {
			if d != WildcardDim && d != s.Shape[i] {
				return false, nil
			}
		}
		return true, nil

	case RecordType:
		s, ok := source.(RecordType)
		if !ok {
			return false, nil
		}
		for name, want := range t.Fields {
			got, ok := s.Fields[name]
			if !ok || got.Mutable != want.Mutable {
				return false, nil
			}
			if ok, err := c.IsAssignableFrom(want.Type, got.Type); err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case FunctionType:
		s, ok := source.(FunctionType)
		if !ok {
			return false, nil
		}
		if len(t.Params) != len(s.Params) {
			return false, nil
		}
		for i := range t.Params {
			if ok, err := c.IsAssignableFrom(s.Params[i], t.Params[i]); err != nil || !ok {
				return false, err
			}
		}
		return c.IsAssignableFrom(t.Return, s.Return)
	}
	return false, nil
}
