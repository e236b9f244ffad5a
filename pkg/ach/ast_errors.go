package ach

import (
	"context"
	"errors"
)

// TryCatch is `try { ... } catch (e) { ... }`. Any evaluation error,
// raised or internal, is converted to an Error value and bound to Param.
type TryCatch struct {
	Try   Node
	Param string
	Catch Node
	Loc   *SourceLocation
}

var _ Node = (*TryCatch)(nil)

func (t *TryCatch) GetSourceLocation() *SourceLocation { return t.Loc }

func (t *TryCatch) Walk(fn func(Node) bool) {
	if !fn(t) {
		return
	}
	walkAll(fn, t.Try, t.Catch)
}

func (t *TryCatch) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, t, func() (Value, error) {
		saved := i.save()
		val, err := EvalNode(ctx, i, t.Try)
		if err == nil {
			return val, nil
		}
		i.restore(saved)

		// Cancellation is not a language-level error.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		errVal := ToErrorValue(err)
		outer := i.env
		i.env = NewEnv(outer)
		defer func() { i.env = outer }()
		if t.Param != "" {
			i.env.Define(t.Param, errVal)
		}
		return EvalNode(ctx, i, t.Catch)
	})
}

// Throw is `throw value`. Strings become the message of an Error without
// a kind; records supply message, kind and source; errors are rethrown as
// they are.
type Throw struct {
	Value Node
	Loc   *SourceLocation
}

var _ Node = (*Throw)(nil)

func (t *Throw) GetSourceLocation() *SourceLocation { return t.Loc }

func (t *Throw) Walk(fn func(Node) bool) {
	if !fn(t) {
		return
	}
	t.Value.Walk(fn)
}

func (t *Throw) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, t, func() (Value, error) {
		v, err := EvalNode(ctx, i, t.Value)
		if err != nil {
			return nil, err
		}
		return nil, &RaisedError{Value: ThrownError(Deref(v))}
	})
}

// ThrownError converts a thrown value into an Error value.
func ThrownError(v Value) *ErrorValue {
	switch x := v.(type) {
	case *ErrorValue:
		return x
	case StringValue:
		return &ErrorValue{Message: x.Val}
	case RecordValue:
		e := &ErrorValue{Message: "Unknown error"}
		if msg, ok := x.Get("message"); ok {
			if s, ok := msg.(StringValue); ok {
				e.Message = s.Val
			} else {
				e.Message = msg.String()
			}
		}
		if kind, ok := x.Get("kind"); ok {
			if s, ok := kind.(StringValue); ok {
				e.Kind = s.Val
			}
		}
		if src, ok := x.Get("source"); ok {
			if _, isNull := src.(NullValue); !isNull {
				e.Source = src
			}
		}
		return e
	}
	return &ErrorValue{Message: v.String()}
}
