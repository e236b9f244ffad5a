package ach

import (
	"context"
)

// Lambda is a function literal. It closes over the environment it is
// evaluated in.
type Lambda struct {
	Params     []Param
	ReturnType Type
	Body       Node
	Loc        *SourceLocation
}

var _ Node = (*Lambda)(nil)

func (l *Lambda) GetSourceLocation() *SourceLocation { return l.Loc }

func (l *Lambda) Walk(fn func(Node) bool) {
	if !fn(l) {
		return
	}
	l.Body.Walk(fn)
}

func (l *Lambda) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return &Closure{
		Params:     l.Params,
		ReturnType: l.ReturnType,
		Body:       l.Body,
		Env:        i.env,
	}, nil
}

// FunctionCall is a call by name, `name(args)`.
type FunctionCall struct {
	Name string
	Args []Node
	Loc  *SourceLocation
}

var _ Node = (*FunctionCall)(nil)

func (f *FunctionCall) GetSourceLocation() *SourceLocation { return f.Loc }

func (f *FunctionCall) Walk(fn func(Node) bool) {
	if !fn(f) {
		return
	}
	walkAll(fn, f.Args...)
}

func (f *FunctionCall) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, f, func() (Value, error) {
		if f.Name == "rec" {
			return i.callRec(ctx, f.Args)
		}

		if fn, ok := i.env.Lookup(f.Name); ok {
			args, err := i.evalArgs(ctx, f.Args)
			if err != nil {
				return nil, err
			}
			return i.call(ctx, fn, args, i.currentSelf())
		}

		name := f.Name
		if target, ok := i.imports[name]; ok {
			name = target
		}
		if _, ok := LookupBuiltin(name); !ok {
			return nil, undefinedf("Undefined function: '%s'", f.Name)
		}
		args, err := i.evalArgs(ctx, f.Args)
		if err != nil {
			return nil, err
		}
		return i.callBuiltin(ctx, name, args)
	})
}

// callRec handles rec(args). In a tail-recursive body the call becomes a
// TailCall for the trampoline; elsewhere it recurses directly.
func (i *Interpreter) callRec(ctx context.Context, argNodes []Node) (Value, error) {
	fn, err := i.currentFunction()
	if err != nil {
		return nil, err
	}
	args, err := i.evalArgs(ctx, argNodes)
	if err != nil {
		return nil, err
	}
	if i.tcoMode {
		return TailCall{Args: args}, nil
	}
	return i.call(ctx, fn, args, i.currentSelf())
}

func (i *Interpreter) evalArgs(ctx context.Context, nodes []Node) ([]Value, error) {
	args := make([]Value, len(nodes))
	for k, n := range nodes {
		v, err := EvalNode(ctx, i, n)
		if err != nil {
			return nil, err
		}
		args[k] = Deref(v)
	}
	return args, nil
}

// CallExpr applies an arbitrary expression. A field access callee is a
// method call: the receiver record is bound to self for the duration of
// the call, and generators answer next().
type CallExpr struct {
	Callee Node
	Args   []Node
	Loc    *SourceLocation
}

var _ Node = (*CallExpr)(nil)

func (c *CallExpr) GetSourceLocation() *SourceLocation { return c.Loc }

func (c *CallExpr) Walk(fn func(Node) bool) {
	if !fn(c) {
		return
	}
	c.Callee.Walk(fn)
	walkAll(fn, c.Args...)
}

func (c *CallExpr) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, c, func() (Value, error) {
		switch callee := c.Callee.(type) {
		case *RecRef:
			return i.callRec(ctx, c.Args)
		case *FieldAccess:
			return c.callMethod(ctx, i, callee)
		}

		fn, err := EvalNode(ctx, i, c.Callee)
		if err != nil {
			return nil, err
		}
		args, err := i.evalArgs(ctx, c.Args)
		if err != nil {
			return nil, err
		}
		return i.call(ctx, fn, args, nil)
	})
}

func (c *CallExpr) callMethod(ctx context.Context, i *Interpreter, callee *FieldAccess) (Value, error) {
	recv, err := EvalNode(ctx, i, callee.Receiver)
	if err != nil {
		return nil, err
	}
	recv = Deref(recv)

	if g, ok := recv.(*Generator); ok {
		if callee.Field != "next" {
			return nil, runtimeErrorf("Generators only support .next(), not '%s'", callee.Field)
		}
		if len(c.Args) > 0 {
			return nil, typeErrorf("next() takes no arguments, got %d", len(c.Args))
		}
		return g.Resume(ctx, i)
	}

	var self Value
	var fn Value
	if rec, ok := recv.(RecordValue); ok {
		field, ok := rec.Get(callee.Field)
		if !ok {
			return nil, runtimeErrorf("Field '%s' not found in record", callee.Field)
		}
		fn, self = field, rec
	} else {
		fn, err = SelectField(recv, callee.Field)
		if err != nil {
			return nil, err
		}
	}

	args, err := i.evalArgs(ctx, c.Args)
	if err != nil {
		return nil, err
	}
	return i.call(ctx, fn, args, self)
}
