package ach

import (
	"context"
	"fmt"
)

// Generator is a resumable statement sequence. All copies of a
// *Generator share one state, so advancing through any handle advances
// them all.
type Generator struct {
	state *generatorState
}

// generatorState is the suspended body: the environment it runs in, the
// top-level statements and the index of the next one to run.
type generatorState struct {
	env   *Env
	stmts []Node
	pos   int
	done  bool
	ret   Value
}

func (g *Generator) Type() Type { return GeneratorType }

func (g *Generator) String() string {
	if g.state.done {
		return "<generator (done)>"
	}
	return fmt.Sprintf("<generator %d/%d>", g.state.pos, len(g.state.stmts))
}

// Done reports whether the generator has finished.
func (g *Generator) Done() bool { return g.state.done }

// Resume runs the generator up to its next yield and returns a
// {value, done} record. A yield nested inside a statement suspends that
// whole statement: the next resume continues with the statement after it.
func (g *Generator) Resume(ctx context.Context, i *Interpreter) (Value, error) {
	st := g.state
	if st.done {
		ret := st.ret
		if ret == nil {
			ret = NullValue{}
		}
		return iterResult(ret, true), nil
	}

	saved := i.save()
	i.env = st.env
	i.inGenerator = true
	i.tcoMode = false
	defer func() {
		st.env = i.env
		i.restore(saved)
	}()

	for st.pos < len(st.stmts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := EvalNode(ctx, i, st.stmts[st.pos])
		st.pos++
		if err != nil {
			st.done = true
			return nil, err
		}
		switch s := v.(type) {
		case GeneratorYield:
			return iterResult(s.Val, false), nil
		case EarlyReturn:
			st.done = true
			st.ret = s.Val
			return iterResult(s.Val, true), nil
		}
	}
	st.done = true
	return iterResult(NullValue{}, true), nil
}

func iterResult(v Value, done bool) RecordValue {
	return NewRecord(map[string]Value{
		"value": v,
		"done":  BoolValue{Val: done},
	})
}

// GenerateBlock is `generate { ... }`. It evaluates to a fresh generator
// whose scope is a child of the current one.
type GenerateBlock struct {
	Stmts []Node
	Loc   *SourceLocation
}

var _ Node = (*GenerateBlock)(nil)

func (b *GenerateBlock) GetSourceLocation() *SourceLocation { return b.Loc }

func (b *GenerateBlock) Walk(fn func(Node) bool) {
	if !fn(b) {
		return
	}
	walkAll(fn, b.Stmts...)
}

func (b *GenerateBlock) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return &Generator{
		state: &generatorState{
			env:   NewEnv(i.env),
			stmts: b.Stmts,
		},
	}, nil
}

// Yield is `yield value`.
type Yield struct {
	Value Node
	Loc   *SourceLocation
}

var _ Node = (*Yield)(nil)

func (y *Yield) GetSourceLocation() *SourceLocation { return y.Loc }

func (y *Yield) Walk(fn func(Node) bool) {
	if !fn(y) {
		return
	}
	walkAll(fn, y.Value)
}

func (y *Yield) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, y, func() (Value, error) {
		if !i.inGenerator {
			return nil, runtimeErrorf("yield can only be used inside generate blocks")
		}
		if y.Value == nil {
			return GeneratorYield{Val: NullValue{}}, nil
		}
		v, err := EvalNode(ctx, i, y.Value)
		if err != nil {
			return nil, err
		}
		return GeneratorYield{Val: Deref(v)}, nil
	})
}
