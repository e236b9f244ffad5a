package ach

import (
	"context"
)

// VarDecl is `let name[: Type] = value`.
type VarDecl struct {
	Name  string
	Type  Type
	Value Node
	Loc   *SourceLocation
}

var _ Node = (*VarDecl)(nil)

func (d *VarDecl) GetSourceLocation() *SourceLocation { return d.Loc }

func (d *VarDecl) Walk(fn func(Node) bool) {
	if !fn(d) {
		return
	}
	d.Value.Walk(fn)
}

func (d *VarDecl) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, d, func() (Value, error) {
		v, err := EvalNode(ctx, i, d.Value)
		if err != nil {
			return nil, err
		}
		v = Deref(v)
		if d.Type != nil {
			if err := i.checker.Check(v, d.Type); err != nil {
				return nil, typeErrorf("Type error in declaration of '%s': %s", d.Name, errorMessage(err))
			}
		}
		i.env.Define(d.Name, v)
		return v, nil
	})
}

// MutDecl is `mut name[: Type] = value`.
type MutDecl struct {
	Name  string
	Type  Type
	Value Node
	Loc   *SourceLocation
}

var _ Node = (*MutDecl)(nil)

func (d *MutDecl) GetSourceLocation() *SourceLocation { return d.Loc }

func (d *MutDecl) Walk(fn func(Node) bool) {
	if !fn(d) {
		return
	}
	d.Value.Walk(fn)
}

func (d *MutDecl) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, d, func() (Value, error) {
		v, err := EvalNode(ctx, i, d.Value)
		if err != nil {
			return nil, err
		}
		v = Deref(v)
		if d.Type != nil {
			if err := i.checker.Check(v, d.Type); err != nil {
				return nil, typeErrorf("Type error in declaration of '%s': %s", d.Name, errorMessage(err))
			}
		}
		i.env.DefineMutableTyped(d.Name, v, d.Type)
		return v, nil
	})
}

// VarRef reads a name. Lookup falls back from the environment to imported
// builtins, constants and finally the global builtin registry.
type VarRef struct {
	Name string
	Loc  *SourceLocation
}

var _ Node = (*VarRef)(nil)

func (r *VarRef) GetSourceLocation() *SourceLocation { return r.Loc }
func (r *VarRef) Walk(fn func(Node) bool)           { fn(r) }

func (r *VarRef) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, r, func() (Value, error) {
		return i.Resolve(r.Name)
	})
}

// Assignment is `target = value` where target is a variable, a record
// field or an indexed element.
type Assignment struct {
	Target Node
	Value  Node
	Loc    *SourceLocation
}

var _ Node = (*Assignment)(nil)

func (a *Assignment) GetSourceLocation() *SourceLocation { return a.Loc }

func (a *Assignment) Walk(fn func(Node) bool) {
	if !fn(a) {
		return
	}
	a.Target.Walk(fn)
	a.Value.Walk(fn)
}

func (a *Assignment) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, a, func() (Value, error) {
		v, err := EvalNode(ctx, i, a.Value)
		if err != nil {
			return nil, err
		}
		v = Deref(v)
		if err := i.assign(ctx, a.Target, v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (i *Interpreter) assign(ctx context.Context, target Node, v Value) error {
	switch t := target.(type) {
	case *VarRef:
		if declared, ok := i.env.DeclaredType(t.Name); ok && i.env.IsMutable(t.Name) {
			if err := i.checker.Check(v, declared); err != nil {
				return typeErrorf("Type error in assignment to '%s': %s", t.Name, errorMessage(err))
			}
		}
		return i.env.Assign(t.Name, v)

	case *FieldAccess:
		recv, err := EvalNode(ctx, i, t.Receiver)
		if err != nil {
			return err
		}
		rec, ok := Deref(recv).(RecordValue)
		if !ok {
			return typeErrorf("Cannot assign field '%s' on %s", t.Field, typeString(InferType(Deref(recv))))
		}
		field, ok := rec.Fields[t.Field]
		if !ok {
			return runtimeErrorf("Field '%s' not found in record", t.Field)
		}
		ref, ok := field.(*MutableRef)
		if !ok {
			return Raise(KindImmutableAssign, "Cannot assign to immutable field '%s'", t.Field)
		}
		ref.Val = v
		return nil

	case *IndexAccess:
		cur, err := EvalNode(ctx, i, t.Receiver)
		if err != nil {
			return err
		}
		args, err := i.evalIndexArgs(ctx, t.Indices)
		if err != nil {
			return err
		}
		updated, err := setIndex(Deref(cur), args, v)
		if err != nil {
			return err
		}
		return i.assign(ctx, t.Receiver, updated)
	}
	return typeErrorf("Invalid assignment target")
}

// SelfRef is `self`, the record a method was called on.
type SelfRef struct {
	Loc *SourceLocation
}

var _ Node = (*SelfRef)(nil)

func (s *SelfRef) GetSourceLocation() *SourceLocation { return s.Loc }
func (s *SelfRef) Walk(fn func(Node) bool)           { fn(s) }

func (s *SelfRef) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	v, ok := i.env.Lookup("self")
	if !ok {
		return nil, runtimeErrorf("'self' can only be used inside methods")
	}
	return Deref(v), nil
}

// RecRef is `rec`, the function currently being applied.
type RecRef struct {
	Loc *SourceLocation
}

var _ Node = (*RecRef)(nil)

func (r *RecRef) GetSourceLocation() *SourceLocation { return r.Loc }
func (r *RecRef) Walk(fn func(Node) bool)           { fn(r) }

func (r *RecRef) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return i.currentFunction()
}

// TypeAlias is `type Name = T`.
type TypeAlias struct {
	Name string
	Type Type
	Loc  *SourceLocation
}

var _ Node = (*TypeAlias)(nil)

func (t *TypeAlias) GetSourceLocation() *SourceLocation { return t.Loc }
func (t *TypeAlias) Walk(fn func(Node) bool)           { fn(t) }

func (t *TypeAlias) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	prev, had := i.checker.Alias(t.Name)
	i.checker.DefineAlias(t.Name, t.Type)
	if _, err := i.checker.Resolve(TypeRef{Name: t.Name}); err != nil {
		if had {
			i.checker.DefineAlias(t.Name, prev)
		} else {
			delete(i.checker.aliases, t.Name)
		}
		return nil, Raise(KindTypeError, "%s", err)
	}
	return NullValue{}, nil
}
