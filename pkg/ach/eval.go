package ach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vito/achronyme/pkg/ioctx"
)

// Interpreter evaluates Achronyme programs. It owns the environment, the
// type aliases, the imported builtin names and the exports of the module
// being evaluated. An Interpreter is not safe for concurrent use.
type Interpreter struct {
	env     *Env
	checker *TypeChecker
	imports map[string]string
	exports map[string]Value

	// tcoMode is set while a tail-recursive body runs in the trampoline;
	// rec(...) then yields a TailCall instead of recursing.
	tcoMode     bool
	inGenerator bool

	tailCache map[Node]bool
	modules   *moduleCache
	parser    Parser
	config    *Config
	dir       string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithParser sets the parser used for imports of source files and for
// EvalSource.
func WithParser(p Parser) Option {
	return func(i *Interpreter) { i.parser = p }
}

// WithConfig sets limits and persistence defaults.
func WithConfig(cfg *Config) Option {
	return func(i *Interpreter) { i.config = cfg }
}

// WithDir sets the directory relative imports resolve against.
func WithDir(dir string) Option {
	return func(i *Interpreter) { i.dir = dir }
}

func NewInterpreter(opts ...Option) *Interpreter {
	i := &Interpreter{
		env:       NewEnv(nil),
		checker:   NewTypeChecker(),
		imports:   map[string]string{},
		exports:   map[string]Value{},
		tailCache: map[Node]bool{},
		modules:   newModuleCache(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.config == nil {
		i.config = DefaultConfig()
	}
	if i.dir == "" {
		i.dir, _ = os.Getwd()
	}
	return i
}

// child returns an interpreter for evaluating another module. It shares
// the module cache, parser and config but nothing else.
func (i *Interpreter) child(dir string) *Interpreter {
	return &Interpreter{
		env:       NewEnv(nil),
		checker:   NewTypeChecker(),
		imports:   map[string]string{},
		exports:   map[string]Value{},
		tailCache: map[Node]bool{},
		modules:   i.modules,
		parser:    i.parser,
		config:    i.config,
		dir:       dir,
	}
}

func (i *Interpreter) Env() *Env                 { return i.env }
func (i *Interpreter) Config() *Config           { return i.config }
func (i *Interpreter) Checker() *TypeChecker     { return i.checker }
func (i *Interpreter) Exports() map[string]Value { return i.exports }

// PushScope opens a nested scope.
func (i *Interpreter) PushScope() {
	i.env = i.env.Push()
}

// PopScope closes the innermost scope.
func (i *Interpreter) PopScope() error {
	parent, err := i.env.Pop()
	if err != nil {
		return err
	}
	i.env = parent
	return nil
}

type interpState struct {
	env         *Env
	tcoMode     bool
	inGenerator bool
}

func (i *Interpreter) save() interpState {
	return interpState{env: i.env, tcoMode: i.tcoMode, inGenerator: i.inGenerator}
}

func (i *Interpreter) restore(s interpState) {
	i.env, i.tcoMode, i.inGenerator = s.env, s.tcoMode, s.inGenerator
}

// Eval evaluates one top-level statement. On error the interpreter is
// returned to the state it had before the statement, so a session can
// continue with the next one.
func (i *Interpreter) Eval(ctx context.Context, node Node) (Value, error) {
	saved := i.save()
	v, err := EvalNode(ctx, i, node)
	if err != nil {
		i.restore(saved)
		ioctx.LoggerFromContext(ctx).Debug("statement failed",
			"kind", ErrorKind(err),
			"node", debugAttr{node})
		return nil, err
	}
	switch s := v.(type) {
	case EarlyReturn:
		return s.Val, nil
	case TailCall:
		i.restore(saved)
		return nil, runtimeErrorf("'rec' can only be used inside functions")
	}
	return v, nil
}

// EvalProgram evaluates statements in order and returns the last value.
func (i *Interpreter) EvalProgram(ctx context.Context, nodes []Node) (Value, error) {
	var last Value = NullValue{}
	for _, node := range nodes {
		v, err := i.Eval(ctx, node)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// EvalSource parses and evaluates src with the configured parser.
func (i *Interpreter) EvalSource(ctx context.Context, filename string, src []byte) (Value, error) {
	if i.parser == nil {
		return nil, errors.New("no parser configured")
	}
	nodes, err := i.parser.Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	ctx = WithEvalContext(ctx, &EvalContext{Filename: filename, Source: string(src)})
	return i.EvalProgram(ctx, nodes)
}

// EvalFile reads, parses and evaluates a source file.
func (i *Interpreter) EvalFile(ctx context.Context, path string) (Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return i.EvalSource(ctx, filepath.Base(path), src)
}

// EvalNode evaluates any AST node, attaching source locations to errors
// that do not carry one yet.
func EvalNode(ctx context.Context, i *Interpreter, node Node) (Value, error) {
	val, err := node.Eval(ctx, i)
	if err != nil {
		// Let user-level raise errors propagate unwrapped so
		// TryCatch can intercept them cleanly.
		var raised *RaisedError
		if errors.As(err, &raised) {
			return nil, err
		}
		return nil, CreateEvalError(ctx, err, node)
	}
	if val == nil {
		return nil, fmt.Errorf("Evaluator(%T) returned nil", node)
	}
	return val, nil
}

// Resolve looks a name up in the environment, then among imported
// builtins, constants, and finally the builtin registry.
func (i *Interpreter) Resolve(name string) (Value, error) {
	if v, ok := i.env.Lookup(name); ok {
		return Deref(v), nil
	}
	if target, ok := i.imports[name]; ok {
		return BuiltinFunction{Name: target}, nil
	}
	if c, ok := constants[name]; ok {
		return c, nil
	}
	if _, ok := LookupBuiltin(name); ok {
		return BuiltinFunction{Name: name}, nil
	}
	return nil, undefinedf("Undefined variable: '%s'", name)
}

func (i *Interpreter) currentFunction() (Value, error) {
	v, ok := i.env.Lookup("rec")
	if !ok {
		return nil, runtimeErrorf("'rec' can only be used inside functions")
	}
	return v, nil
}

func (i *Interpreter) currentSelf() Value {
	v, ok := i.env.Lookup("self")
	if !ok {
		return nil
	}
	return Deref(v)
}

// Apply calls fn with args.
func (i *Interpreter) Apply(ctx context.Context, fn Value, args ...Value) (Value, error) {
	return i.call(ctx, fn, args, nil)
}

func (i *Interpreter) call(ctx context.Context, fn Value, args []Value, self Value) (Value, error) {
	switch f := Deref(fn).(type) {
	case *Closure:
		return i.applyClosure(ctx, f, args, self)
	case BuiltinFunction:
		return i.callBuiltin(ctx, f.Name, args)
	}
	return nil, typeErrorf("Cannot call %s", typeString(InferType(Deref(fn))))
}

func (i *Interpreter) applyClosure(ctx context.Context, c *Closure, args []Value, self Value) (Value, error) {
	if len(args) != len(c.Params) {
		return nil, typeErrorf("Lambda expects %d arguments, got %d", len(c.Params), len(args))
	}
	if err := i.checkArgs(c, args); err != nil {
		return nil, err
	}

	var result Value
	var err error
	if i.isTailRecursive(c.Body) {
		result, err = i.applyTCO(ctx, c, args, self)
	} else {
		result, err = i.applyRegular(ctx, c, args, self)
	}
	if err != nil {
		return nil, err
	}

	if c.ReturnType != nil {
		if err := i.checker.Check(result, c.ReturnType); err != nil {
			return nil, typeErrorf("Type error in return value: %s", errorMessage(err))
		}
	}
	return result, nil
}

func (i *Interpreter) checkArgs(c *Closure, args []Value) error {
	for k, p := range c.Params {
		if p.Type == nil {
			continue
		}
		if err := i.checker.Check(Deref(args[k]), p.Type); err != nil {
			return typeErrorf("Type error in argument '%s': %s", p.Name, errorMessage(err))
		}
	}
	return nil
}

func (i *Interpreter) isTailRecursive(body Node) bool {
	if tail, ok := i.tailCache[body]; ok {
		return tail
	}
	tail := IsTailRecursive(body)
	i.tailCache[body] = tail
	return tail
}

// callFrame is the frame a call runs in: the closure's captured
// environment extended with rec and, for method calls, self.
func callFrame(c *Closure, self Value) *Env {
	frame := NewEnv(c.Env)
	frame.Define("rec", c)
	if self != nil {
		frame.Define("self", self)
	}
	return frame
}

func (i *Interpreter) applyRegular(ctx context.Context, c *Closure, args []Value, self Value) (Value, error) {
	saved := i.save()
	defer i.restore(saved)
	i.tcoMode = false
	i.inGenerator = false

	frame := callFrame(c, self)
	for k, p := range c.Params {
		frame.Define(p.Name, Deref(args[k]))
	}
	i.env = frame

	v, err := EvalNode(ctx, i, c.Body)
	if err != nil {
		return nil, err
	}
	if r, ok := v.(EarlyReturn); ok {
		return r.Val, nil
	}
	return v, nil
}

// applyTCO runs a tail-recursive body as a loop. Each rec(...) in tail
// position comes back as a TailCall carrying the next arguments.
func (i *Interpreter) applyTCO(ctx context.Context, c *Closure, args []Value, self Value) (Value, error) {
	saved := i.save()
	defer i.restore(saved)
	i.tcoMode = true
	i.inGenerator = false

	frame := callFrame(c, self)
	limit := i.config.Limits.TCOIterations
	for iter := 0; ; iter++ {
		if limit > 0 && iter >= limit {
			return nil, Raise(KindMaxIterations, "Tail recursion exceeded %d iterations", limit)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		i.env = NewEnv(frame)
		for k, p := range c.Params {
			i.env.Define(p.Name, Deref(args[k]))
		}

		v, err := EvalNode(ctx, i, c.Body)
		if err != nil {
			return nil, err
		}
		if r, ok := v.(EarlyReturn); ok {
			v = r.Val
		}
		tc, ok := v.(TailCall)
		if !ok {
			return v, nil
		}
		if len(tc.Args) != len(c.Params) {
			return nil, typeErrorf("Tail call arity mismatch: expected %d arguments, got %d", len(c.Params), len(tc.Args))
		}
		if err := i.checkArgs(c, tc.Args); err != nil {
			return nil, err
		}
		args = tc.Args
	}
}
