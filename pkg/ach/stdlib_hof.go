package ach

import (
	"context"
)

func registerHOFs() {
	Builtin("map").
		Doc("applies f elementwise; several vectors are zipped up to the shortest").
		Params("f", "vector").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := args.Func(0)
			if err != nil {
				return nil, err
			}
			var cols [][]Value
			n := -1
			for k := 1; k < args.Len(); k++ {
				elems, err := args.Vector(k)
				if err != nil {
					return nil, err
				}
				if n < 0 || len(elems) < n {
					n = len(elems)
				}
				cols = append(cols, elems)
			}
			if c, ok := f.(*Closure); ok && len(c.Params) != len(cols) {
				return nil, typeErrorf("map: function takes %d arguments but %d vectors were given", len(c.Params), len(cols))
			}
			out := make([]Value, n)
			for j := range n {
				row := make([]Value, len(cols))
				for k, col := range cols {
					row[k] = col[j]
				}
				v, err := i.Apply(ctx, f, row...)
				if err != nil {
					return nil, err
				}
				out[j] = v
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("filter").
		Doc("elements for which the predicate holds").
		Params("predicate", "vector").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			pred, err := args.Func(0)
			if err != nil {
				return nil, err
			}
			elems, err := args.Vector(1)
			if err != nil {
				return nil, err
			}
			out := []Value{}
			for _, e := range elems {
				ok, err := i.test(ctx, pred, e)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, e)
				}
			}
			return VectorValue{Elements: out}, nil
		})

	Builtin("reduce").
		Doc("folds the vector from the left, starting at init").
		Params("f", "init", "vector").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			f, err := args.Func(0)
			if err != nil {
				return nil, err
			}
			elems, err := args.Vector(2)
			if err != nil {
				return nil, err
			}
			acc := args.Get(1)
			for _, e := range elems {
				if acc, err = i.Apply(ctx, f, acc, e); err != nil {
					return nil, err
				}
			}
			return acc, nil
		})

	Builtin("pipe").
		Doc("threads a value through the functions in order").
		Params("value").
		Variadic().
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			v := args.Get(0)
			for k := 1; k < args.Len(); k++ {
				f, err := args.Func(k)
				if err != nil {
					return nil, err
				}
				if v, err = i.Apply(ctx, f, v); err != nil {
					return nil, err
				}
			}
			return v, nil
		})

	Builtin("any").
		Doc("whether the predicate holds for some element").
		Params("vector", "predicate").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			idx, err := i.search(ctx, args)
			if err != nil {
				return nil, err
			}
			return BoolValue{Val: idx >= 0}, nil
		})

	Builtin("all").
		Doc("whether the predicate holds for every element").
		Params("vector", "predicate").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			elems, err := args.Vector(0)
			if err != nil {
				return nil, err
			}
			pred, err := args.Func(1)
			if err != nil {
				return nil, err
			}
			for _, e := range elems {
				ok, err := i.test(ctx, pred, e)
				if err != nil || !ok {
					return BoolValue{Val: false}, err
				}
			}
			return BoolValue{Val: true}, nil
		})

	Builtin("find").
		Doc("first element for which the predicate holds").
		Params("vector", "predicate").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			idx, err := i.search(ctx, args)
			if err != nil {
				return nil, err
			}
			if idx < 0 {
				return nil, runtimeErrorf("find: element not found")
			}
			elems, _ := args.Vector(0)
			return elems[idx], nil
		})
}

// test applies a predicate and reads its result as a condition.
func (i *Interpreter) test(ctx context.Context, pred Value, v Value) (bool, error) {
	r, err := i.Apply(ctx, pred, v)
	if err != nil {
		return false, err
	}
	return truthy(Deref(r))
}

// search returns the index of the first element of args[0] satisfying
// the predicate args[1], or -1.
func (i *Interpreter) search(ctx context.Context, args Args) (int, error) {
	elems, err := args.Vector(0)
	if err != nil {
		return -1, err
	}
	pred, err := args.Func(1)
	if err != nil {
		return -1, err
	}
	for k, e := range elems {
		ok, err := i.test(ctx, pred, e)
		if err != nil {
			return -1, err
		}
		if ok {
			return k, nil
		}
	}
	return -1, nil
}
