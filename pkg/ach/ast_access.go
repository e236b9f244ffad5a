package ach

import (
	"context"
)

// FieldAccess is `receiver.field`.
type FieldAccess struct {
	Receiver Node
	Field    string
	Loc      *SourceLocation
}

var _ Node = (*FieldAccess)(nil)

func (f *FieldAccess) GetSourceLocation() *SourceLocation { return f.Loc }

func (f *FieldAccess) Walk(fn func(Node) bool) {
	if !fn(f) {
		return
	}
	f.Receiver.Walk(fn)
}

func (f *FieldAccess) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, f, func() (Value, error) {
		recv, err := EvalNode(ctx, i, f.Receiver)
		if err != nil {
			return nil, err
		}
		return SelectField(Deref(recv), f.Field)
	})
}

// SelectField reads a field of a record, edge or error.
func SelectField(recv Value, field string) (Value, error) {
	switch r := recv.(type) {
	case RecordValue:
		v, ok := r.Get(field)
		if !ok {
			return nil, runtimeErrorf("Field '%s' not found in record", field)
		}
		return v, nil
	case EdgeValue:
		switch field {
		case "from":
			return StringValue{Val: r.From}, nil
		case "to":
			return StringValue{Val: r.To}, nil
		case "directed":
			return BoolValue{Val: r.Directed}, nil
		}
		v, ok := r.Props[field]
		if !ok {
			return nil, runtimeErrorf("Edge %s has no property '%s'", r, field)
		}
		return v, nil
	case *ErrorValue:
		switch field {
		case "message", "kind", "source":
			return r.Fields()[field], nil
		}
		return nil, runtimeErrorf("Error has no field '%s'; expected message, kind or source", field)
	case *Generator:
		if field == "next" {
			return nil, runtimeErrorf("Generator method 'next' must be called, as in g.next()")
		}
		return nil, runtimeErrorf("Generators only support .next(), not '%s'", field)
	}
	return nil, typeErrorf("Cannot access field '%s' on %s", field, typeString(InferType(recv)))
}

// IndexArg is one index in `x[...]`: a single expression, or a range with
// optional bounds.
type IndexArg struct {
	Single Node
	Range  bool
	Start  Node
	End    Node
}

// IndexAccess is `receiver[args]`.
type IndexAccess struct {
	Receiver Node
	Indices  []IndexArg
	Loc      *SourceLocation
}

var _ Node = (*IndexAccess)(nil)

func (x *IndexAccess) GetSourceLocation() *SourceLocation { return x.Loc }

func (x *IndexAccess) Walk(fn func(Node) bool) {
	if !fn(x) {
		return
	}
	x.Receiver.Walk(fn)
	for _, arg := range x.Indices {
		walkAll(fn, arg.Single, arg.Start, arg.End)
	}
}

func (x *IndexAccess) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, x, func() (Value, error) {
		recv, err := EvalNode(ctx, i, x.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := i.evalIndexArgs(ctx, x.Indices)
		if err != nil {
			return nil, err
		}
		return Index(Deref(recv), args)
	})
}

func (i *Interpreter) evalIndexArgs(ctx context.Context, indices []IndexArg) ([]IndexSpec, error) {
	args := make([]IndexSpec, len(indices))
	eval := func(n Node) (*int, error) {
		if n == nil {
			return nil, nil
		}
		v, err := EvalNode(ctx, i, n)
		if err != nil {
			return nil, err
		}
		idx, err := indexNumber(Deref(v))
		if err != nil {
			return nil, err
		}
		return &idx, nil
	}
	for k, arg := range indices {
		if !arg.Range {
			idx, err := eval(arg.Single)
			if err != nil {
				return nil, err
			}
			if idx == nil {
				return nil, typeErrorf("Missing index expression")
			}
			args[k] = IndexSpec{At: *idx}
			continue
		}
		start, err := eval(arg.Start)
		if err != nil {
			return nil, err
		}
		end, err := eval(arg.End)
		if err != nil {
			return nil, err
		}
		args[k] = IndexSpec{Range: true, Start: start, End: end}
	}
	return args, nil
}
