package ach

import (
	"context"
)

// If is `if (cond) then else`. A missing else yields null.
type If struct {
	Cond Node
	Then Node
	Else Node
	Loc  *SourceLocation
}

var _ Node = (*If)(nil)

func (n *If) GetSourceLocation() *SourceLocation { return n.Loc }

func (n *If) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	walkAll(fn, n.Cond, n.Then, n.Else)
}

func (n *If) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, n, func() (Value, error) {
		cond, err := EvalNode(ctx, i, n.Cond)
		if err != nil {
			return nil, err
		}
		ok, err := truthy(cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return EvalNode(ctx, i, n.Then)
		}
		if n.Else == nil {
			return NullValue{}, nil
		}
		return EvalNode(ctx, i, n.Else)
	})
}

// While repeats body while cond holds. Its value is the last body value,
// or null if the body never ran.
type While struct {
	Cond Node
	Body Node
	Loc  *SourceLocation
}

var _ Node = (*While)(nil)

func (w *While) GetSourceLocation() *SourceLocation { return w.Loc }

func (w *While) Walk(fn func(Node) bool) {
	if !fn(w) {
		return
	}
	walkAll(fn, w.Cond, w.Body)
}

func (w *While) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, w, func() (Value, error) {
		var last Value = NullValue{}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cond, err := EvalNode(ctx, i, w.Cond)
			if err != nil {
				return nil, err
			}
			ok, err := truthy(cond)
			if err != nil {
				return nil, err
			}
			if !ok {
				return last, nil
			}
			v, err := EvalNode(ctx, i, w.Body)
			if err != nil {
				return nil, err
			}
			switch v.(type) {
			case EarlyReturn, GeneratorYield:
				return v, nil
			}
			last = v
		}
	})
}

// PiecewiseCase is one `cond: value` branch.
type PiecewiseCase struct {
	Cond  Node
	Value Node
}

// Piecewise picks the value of the first case whose condition holds.
type Piecewise struct {
	Cases   []PiecewiseCase
	Default Node
	Loc     *SourceLocation
}

var _ Node = (*Piecewise)(nil)

func (p *Piecewise) GetSourceLocation() *SourceLocation { return p.Loc }

func (p *Piecewise) Walk(fn func(Node) bool) {
	if !fn(p) {
		return
	}
	for _, c := range p.Cases {
		walkAll(fn, c.Cond, c.Value)
	}
	walkAll(fn, p.Default)
}

func (p *Piecewise) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, p, func() (Value, error) {
		for _, c := range p.Cases {
			cond, err := EvalNode(ctx, i, c.Cond)
			if err != nil {
				return nil, err
			}
			ok, err := truthy(cond)
			if err != nil {
				return nil, err
			}
			if ok {
				return EvalNode(ctx, i, c.Value)
			}
		}
		if p.Default == nil {
			return nil, runtimeErrorf("piecewise: no condition matched and no default given")
		}
		return EvalNode(ctx, i, p.Default)
	})
}

// ForIn iterates a generator, or any record with a next() method that
// returns {value, done}.
type ForIn struct {
	Var      string
	Iterable Node
	Body     Node
	Loc      *SourceLocation
}

var _ Node = (*ForIn)(nil)

func (f *ForIn) GetSourceLocation() *SourceLocation { return f.Loc }

func (f *ForIn) Walk(fn func(Node) bool) {
	if !fn(f) {
		return
	}
	walkAll(fn, f.Iterable, f.Body)
}

func (f *ForIn) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, f, func() (Value, error) {
		it, err := EvalNode(ctx, i, f.Iterable)
		if err != nil {
			return nil, err
		}
		next, err := i.iteratorNext(Deref(it))
		if err != nil {
			return nil, err
		}

		var last Value = NullValue{}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			step, err := next(ctx)
			if err != nil {
				return nil, err
			}
			value, done, err := iterStep(step)
			if err != nil {
				return nil, err
			}
			if done {
				return last, nil
			}

			i.PushScope()
			i.env.Define(f.Var, value)
			v, err := EvalNode(ctx, i, f.Body)
			if perr := i.PopScope(); perr != nil && err == nil {
				err = perr
			}
			if err != nil {
				return nil, err
			}
			switch v.(type) {
			case EarlyReturn, GeneratorYield:
				return v, nil
			}
			last = v
		}
	})
}

func (i *Interpreter) iteratorNext(it Value) (func(context.Context) (Value, error), error) {
	switch it := it.(type) {
	case *Generator:
		return func(ctx context.Context) (Value, error) {
			return it.Resume(ctx, i)
		}, nil
	case RecordValue:
		fn, ok := it.Get("next")
		if !ok || !IsFunction(fn) {
			return nil, typeErrorf("for-in needs a generator or a record with a next() method")
		}
		return func(ctx context.Context) (Value, error) {
			return i.call(ctx, fn, nil, it)
		}, nil
	}
	return nil, typeErrorf("Cannot iterate over %s", typeString(InferType(it)))
}

// iterStep reads a {value, done} record.
func iterStep(step Value) (Value, bool, error) {
	rec, ok := Deref(step).(RecordValue)
	if !ok {
		return nil, false, typeErrorf("Iterator next() must return {value, done}, got %s", typeString(InferType(Deref(step))))
	}
	doneV, ok := rec.Get("done")
	if !ok {
		return nil, false, typeErrorf("Iterator result has no 'done' field")
	}
	done, err := truthy(doneV)
	if err != nil {
		return nil, false, err
	}
	value, ok := rec.Get("value")
	if !ok {
		value = NullValue{}
	}
	return value, done, nil
}

// Sequence evaluates statements in the current scope and yields the last
// value.
type Sequence struct {
	Stmts []Node
	Loc   *SourceLocation
}

var _ Node = (*Sequence)(nil)

func (s *Sequence) GetSourceLocation() *SourceLocation { return s.Loc }

func (s *Sequence) Walk(fn func(Node) bool) {
	if !fn(s) {
		return
	}
	walkAll(fn, s.Stmts...)
}

func (s *Sequence) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return evalStmts(ctx, i, s.Stmts)
}

func evalStmts(ctx context.Context, i *Interpreter, stmts []Node) (Value, error) {
	var last Value = NullValue{}
	for _, stmt := range stmts {
		v, err := EvalNode(ctx, i, stmt)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case EarlyReturn, GeneratorYield:
			return v, nil
		}
		last = v
	}
	return last, nil
}

// DoBlock is `do { ... }`: a sequence in its own scope.
type DoBlock struct {
	Stmts []Node
	Loc   *SourceLocation
}

var _ Node = (*DoBlock)(nil)

func (d *DoBlock) GetSourceLocation() *SourceLocation { return d.Loc }

func (d *DoBlock) Walk(fn func(Node) bool) {
	if !fn(d) {
		return
	}
	walkAll(fn, d.Stmts...)
}

func (d *DoBlock) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	outer := i.env
	i.env = NewEnv(outer)
	defer func() { i.env = outer }()
	return evalStmts(ctx, i, d.Stmts)
}

// Return is `return value`. It unwinds to the nearest function boundary.
type Return struct {
	Value Node
	Loc   *SourceLocation
}

var _ Node = (*Return)(nil)

func (r *Return) GetSourceLocation() *SourceLocation { return r.Loc }

func (r *Return) Walk(fn func(Node) bool) {
	if !fn(r) {
		return
	}
	walkAll(fn, r.Value)
}

func (r *Return) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	if r.Value == nil {
		return EarlyReturn{Val: NullValue{}}, nil
	}
	v, err := EvalNode(ctx, i, r.Value)
	if err != nil {
		return nil, err
	}
	if ret, ok := v.(EarlyReturn); ok {
		return ret, nil
	}
	return EarlyReturn{Val: v}, nil
}
