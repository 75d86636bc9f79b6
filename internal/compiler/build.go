package compiler

import (
	"slices"

	"github.com/roach88/waterline/internal/frontend"
	"github.com/roach88/waterline/internal/ir"
)

// BuildProgram validates spec and records it as a frozen program.
// Validation problems are returned together as ValidationErrors.
func BuildProgram(spec *ProgramSpec) (*ir.Program, error) {
	if spec == nil {
		return nil, ir.NewValidationError("program spec is nil")
	}
	if errs := ValidateSpec(spec); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	terms := make(map[string]TermSpec, len(spec.Terms))
	for _, term := range spec.Terms {
		terms[term.Name] = term
	}

	// Literals and const terms take the default input scale, or the largest
	// input scale when no default is set.
	constScale := spec.InputScale
	if constScale == 0 {
		for _, in := range spec.Inputs {
			constScale = max(constScale, in.Scale)
		}
	}

	return frontend.NewProgram(spec.Name, spec.VecSize, func(s *frontend.Scope) error {
		if constScale > 0 {
			if err := s.SetInputScales(constScale); err != nil {
				return err
			}
		}
		if spec.OutputRange > 0 {
			if err := s.SetOutputRanges(spec.OutputRange); err != nil {
				return err
			}
		}

		exprs := make(map[string]frontend.Expr, len(spec.Inputs)+len(spec.Terms))
		for _, in := range spec.Inputs {
			x, err := s.Input(in.Name, in.Encrypted)
			if err != nil {
				return err
			}
			if in.Scale > 0 {
				if err := s.SetInputScale(in.Name, in.Scale); err != nil {
					return err
				}
			}
			exprs[in.Name] = x
		}

		for _, name := range termOrder(spec.Terms) {
			x, err := buildTerm(s, terms[name], exprs)
			if err != nil {
				return err
			}
			exprs[name] = x
		}

		for _, out := range spec.Outputs {
			if err := s.Output(out.Name, exprs[out.Term]); err != nil {
				return err
			}
			if out.Range > 0 {
				if err := s.SetOutputRange(out.Name, out.Range); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// buildTerm records one term. Its references are already in exprs.
func buildTerm(s *frontend.Scope, term TermSpec, exprs map[string]frontend.Expr) (frontend.Expr, error) {
	if term.Op == SpecOpConst {
		return s.Const(term.Value)
	}

	args := make([]any, len(term.Args))
	for i, arg := range term.Args {
		if arg.IsRef {
			args[i] = exprs[arg.Ref]
		} else {
			args[i] = arg.Literal
		}
	}

	// Validation guarantees at least one reference.
	first := slices.IndexFunc(term.Args, func(a ArgSpec) bool { return a.IsRef })
	x := args[first].(frontend.Expr)

	switch term.Op {
	case SpecOpAdd, SpecOpMul:
		var err error
		for i, arg := range args {
			if i == first {
				continue
			}
			if term.Op == SpecOpAdd {
				x, err = x.Add(arg)
			} else {
				x, err = x.Mul(arg)
			}
			if err != nil {
				return frontend.Expr{}, err
			}
		}
		return x, nil
	case SpecOpSub:
		if first == 1 {
			return x.SubFrom(args[0])
		}
		return x.Sub(args[1])
	case SpecOpNeg:
		return x.Neg()
	case SpecOpPow:
		return x.Pow(term.Exponent)
	case SpecOpRotL:
		return x.RotateLeft(term.By)
	case SpecOpRotR:
		return x.RotateRight(term.By)
	case SpecOpSum:
		return frontend.HorizontalSum(x)
	}
	return frontend.Expr{}, ir.NewValidationError("unknown op %q in term %q", term.Op, term.Name)
}
