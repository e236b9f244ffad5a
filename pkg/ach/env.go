package ach

import (
	"maps"
	"slices"
)

// Env is one frame of the lexical scope chain. Frames are shared by
// pointer, so a closure holding a frame keeps the whole chain above it
// alive and sees later writes through mut cells.
type Env struct {
	vars    map[string]Value
	mutable map[string]bool
	types   map[string]Type
	parent  *Env
}

// NewEnv creates a frame whose lookups fall back to parent.
func NewEnv(parent *Env) *Env {
	return &Env{
		vars:    map[string]Value{},
		mutable: map[string]bool{},
		parent:  parent,
	}
}

func (e *Env) Parent() *Env { return e.parent }

// Define binds name in this frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
	delete(e.mutable, name)
	delete(e.types, name)
}

// DefineMutable binds name to a fresh cell holding v.
func (e *Env) DefineMutable(name string, v Value) {
	e.DefineMutableTyped(name, v, nil)
}

// DefineMutableTyped is DefineMutable with a declared type that later
// assignments are checked against.
func (e *Env) DefineMutableTyped(name string, v Value, t Type) {
	e.vars[name] = &MutableRef{Val: Deref(v)}
	e.mutable[name] = true
	if t != nil {
		if e.types == nil {
			e.types = map[string]Type{}
		}
		e.types[name] = t
	} else {
		delete(e.types, name)
	}
}

// Lookup returns the raw binding, without dereferencing cells.
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Get returns the value bound to name.
func (e *Env) Get(name string) (Value, error) {
	v, ok := e.Lookup(name)
	if !ok {
		return nil, undefinedf("Undefined variable: '%s'", name)
	}
	return Deref(v), nil
}

func (e *Env) Has(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// owner returns the innermost frame binding name.
func (e *Env) owner(name string) *Env {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			return f
		}
	}
	return nil
}

// IsMutable reports whether the innermost binding of name is mutable.
func (e *Env) IsMutable(name string) bool {
	f := e.owner(name)
	return f != nil && f.mutable[name]
}

// DeclaredType returns the annotation recorded for a mut binding.
func (e *Env) DeclaredType(name string) (Type, bool) {
	f := e.owner(name)
	if f == nil || f.types == nil {
		return nil, false
	}
	t, ok := f.types[name]
	return t, ok
}

// Assign writes through the cell of the innermost binding of name.
func (e *Env) Assign(name string, v Value) error {
	f := e.owner(name)
	if f == nil {
		return undefinedf("Undefined variable: '%s'", name)
	}
	if !f.mutable[name] {
		return Raise(KindImmutableAssign, "Cannot assign to immutable variable '%s'", name)
	}
	ref, ok := f.vars[name].(*MutableRef)
	if !ok {
		ref = &MutableRef{}
		f.vars[name] = ref
	}
	ref.Val = Deref(v)
	return nil
}

// Push returns a new child frame.
func (e *Env) Push() *Env {
	return NewEnv(e)
}

// Pop returns the parent frame. The root frame cannot be popped.
func (e *Env) Pop() (*Env, error) {
	if e.parent == nil {
		return nil, runtimeErrorf("cannot pop the root scope")
	}
	return e.parent, nil
}

// Snapshot flattens the chain into a single map. Inner bindings win and
// cells are dereferenced.
func (e *Env) Snapshot() map[string]Value {
	var frames []*Env
	for f := e; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	out := map[string]Value{}
	for _, f := range slices.Backward(frames) {
		for name, v := range f.vars {
			out[name] = Deref(v)
		}
	}
	return out
}

// Names returns every visible name in sorted order.
func (e *Env) Names() []string {
	return slices.Sorted(maps.Keys(e.Snapshot()))
}

// Local returns the bindings of this frame alone.
func (e *Env) Local() map[string]Value {
	return maps.Clone(e.vars)
}

// Root returns the outermost frame of the chain.
func (e *Env) Root() *Env {
	f := e
	for f.parent != nil {
		f = f.parent
	}
	return f
}

// Clear removes every binding from this frame. Ancestors are untouched.
func (e *Env) Clear() {
	clear(e.vars)
	clear(e.mutable)
	clear(e.types)
}
