package ach

import (
	"context"
)

// BinaryOp is `left op right`. && and || short-circuit.
type BinaryOp struct {
	Op    Operator
	Left  Node
	Right Node
	Loc   *SourceLocation
}

var _ Node = (*BinaryOp)(nil)

func (b *BinaryOp) GetSourceLocation() *SourceLocation { return b.Loc }

func (b *BinaryOp) Walk(fn func(Node) bool) {
	if !fn(b) {
		return
	}
	b.Left.Walk(fn)
	b.Right.Walk(fn)
}

func (b *BinaryOp) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, b, func() (Value, error) {
		left, err := EvalNode(ctx, i, b.Left)
		if err != nil {
			return nil, err
		}

		if b.Op == OpAnd || b.Op == OpOr {
			lt, err := truthy(left)
			if err != nil {
				return nil, err
			}
			if b.Op == OpAnd && !lt {
				return BoolValue{Val: false}, nil
			}
			if b.Op == OpOr && lt {
				return BoolValue{Val: true}, nil
			}
			right, err := EvalNode(ctx, i, b.Right)
			if err != nil {
				return nil, err
			}
			rt, err := truthy(right)
			if err != nil {
				return nil, err
			}
			return BoolValue{Val: rt}, nil
		}

		right, err := EvalNode(ctx, i, b.Right)
		if err != nil {
			return nil, err
		}
		return ApplyOperator(b.Op, left, right)
	})
}

// UnaryOp is `-x` or `!x`.
type UnaryOp struct {
	Op      Operator
	Operand Node
	Loc     *SourceLocation
}

var _ Node = (*UnaryOp)(nil)

func (u *UnaryOp) GetSourceLocation() *SourceLocation { return u.Loc }

func (u *UnaryOp) Walk(fn func(Node) bool) {
	if !fn(u) {
		return
	}
	u.Operand.Walk(fn)
}

func (u *UnaryOp) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, u, func() (Value, error) {
		v, err := EvalNode(ctx, i, u.Operand)
		if err != nil {
			return nil, err
		}
		switch u.Op {
		case OpSub:
			return Negate(v)
		case OpNot:
			t, err := truthy(v)
			if err != nil {
				return nil, err
			}
			return BoolValue{Val: !t}, nil
		}
		return nil, typeErrorf("Unknown unary operator '%s'", u.Op)
	})
}
