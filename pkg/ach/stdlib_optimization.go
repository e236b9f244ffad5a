package ach

import (
	"context"

	"github.com/vito/achronyme/pkg/ioctx"
	"github.com/vito/achronyme/pkg/lp"
)

type lpSolver func(context.Context, lp.Problem, lp.Options) (*lp.Solution, error)

func registerOptimization() {
	solver := func(name, doc string, solve lpSolver) {
		Builtin(name).
			Module("optimization").
			Doc(doc).
			Params("c", "A", "b", "sense").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				sol, err := i.solveLP(ctx, args, solve)
				if err != nil {
					return nil, err
				}
				return numbers(sol.X), nil
			})
	}
	solver("simplex", "optimal x of an LP with the standard tableau simplex", lp.Simplex)
	solver("linprog", "optimal x, picking two-phase simplex when b has negative entries", lp.Solve)
	solver("dual_simplex", "optimal x by the dual simplex method", lp.DualSimplex)
	solver("two_phase_simplex", "optimal x by the two-phase simplex method", lp.TwoPhase)
	solver("revised_simplex", "optimal x by the revised simplex method", lp.RevisedSimplex)

	Builtin("objective_value").
		Module("optimization").
		Doc("cᵀx").
		Params("c", "x").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			c, err := args.Floats(0)
			if err != nil {
				return nil, err
			}
			x, err := args.Floats(1)
			if err != nil {
				return nil, err
			}
			return numberResult(lp.ObjectiveValue(c, x))
		})

	Builtin("shadow_price").
		Module("optimization").
		Doc("marginal objective value of each constraint at the optimum").
		Params("c", "A", "b", "sense").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			sol, err := i.solveLP(ctx, args, lp.Solve)
			if err != nil {
				return nil, err
			}
			prices, err := lp.ShadowPrices(sol)
			if err != nil {
				return nil, err
			}
			return numbers(prices), nil
		})

	Builtin("sensitivity_c").
		Module("optimization").
		Doc("range [lo, hi] over which c[index] keeps the optimal basis").
		Params("c", "A", "b", "index").
		Optional("sense").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			return i.sensitivity(ctx, args, func(sol *lp.Solution, p lp.Problem, k int) (lp.Range, error) {
				return lp.CostRange(sol, p.C, k)
			})
		})

	Builtin("sensitivity_b").
		Module("optimization").
		Doc("range [lo, hi] over which b[index] keeps the optimal basis").
		Params("c", "A", "b", "index").
		Optional("sense").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			return i.sensitivity(ctx, args, func(sol *lp.Solution, p lp.Problem, k int) (lp.Range, error) {
				return lp.RHSRange(sol, p.B, k)
			})
		})

	integer := func(name, doc string, solve func(context.Context, lp.Problem, []int, lp.Options) (*lp.Solution, error)) {
		Builtin(name).
			Module("optimization").
			Doc(doc).
			Params("c", "A", "b", "sense", "vars").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				p, err := problemArgs(args)
				if err != nil {
					return nil, err
				}
				vars, err := args.Ints(4)
				if err != nil {
					return nil, err
				}
				sol, err := solve(ctx, p, vars, i.config.LPOptions())
				if err != nil {
					return nil, err
				}
				ioctx.LoggerFromContext(ctx).Debug("integer program solved",
					"builtin", name,
					"objective", sol.Objective,
					"nodes", sol.Iterations)
				return solutionRecord(sol), nil
			})
	}
	integer("intlinprog", "Branch-and-Bound over the listed integer variables (0-based), as {x, objective}", lp.BranchAndBound)
	integer("binary_linprog", "Branch-and-Bound with the listed variables restricted to 0 or 1, as {x, objective}", lp.Binary)
}

func problemArgs(args Args) (lp.Problem, error) {
	c, err := args.Floats(0)
	if err != nil {
		return lp.Problem{}, err
	}
	a, err := args.Matrix(1)
	if err != nil {
		return lp.Problem{}, err
	}
	b, err := args.Floats(2)
	if err != nil {
		return lp.Problem{}, err
	}
	sense := lp.Maximize
	if args.Has(3) {
		s, err := args.Int(3)
		if err != nil {
			return lp.Problem{}, err
		}
		sense = lp.Sense(s)
	}
	return lp.Problem{C: c, A: a, B: b, Sense: sense}, nil
}

func (i *Interpreter) solveLP(ctx context.Context, args Args, solve lpSolver) (*lp.Solution, error) {
	p, err := problemArgs(args)
	if err != nil {
		return nil, err
	}
	sol, err := solve(ctx, p, i.config.LPOptions())
	if err != nil {
		return nil, err
	}
	ioctx.LoggerFromContext(ctx).Debug("lp solved",
		"sense", p.Sense,
		"objective", sol.Objective,
		"iterations", sol.Iterations)
	return sol, nil
}

// sensitivity solves the problem (sense in argument 5, maximize if absent)
// and evaluates a range at the index in argument 4.
func (i *Interpreter) sensitivity(ctx context.Context, args Args, rng func(*lp.Solution, lp.Problem, int) (lp.Range, error)) (Value, error) {
	idx, err := args.Int(3)
	if err != nil {
		return nil, err
	}
	problem := Args{def: args.def, Values: args.Values[:3]}
	if args.Has(4) {
		problem.Values = append(problem.Values[:3:3], args.Get(4))
	}
	p, err := problemArgs(problem)
	if err != nil {
		return nil, err
	}
	sol, err := lp.Solve(ctx, p, i.config.LPOptions())
	if err != nil {
		return nil, err
	}
	r, err := rng(sol, p, idx)
	if err != nil {
		return nil, err
	}
	return numbers([]float64{r.Lower, r.Upper}), nil
}

func solutionRecord(sol *lp.Solution) RecordValue {
	return NewRecord(map[string]Value{
		"x":         numbers(sol.X),
		"objective": NumberValue{Val: sol.Objective},
	})
}
