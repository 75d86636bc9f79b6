// Package compiler turns a recorded program into one the encryption runtime
// can execute, and selects the encryption parameters it needs.
//
// Compile works on a copy of the input program. The copy is rewritten by a
// fixed sequence of passes (type deduction, constant folding, reduction
// balancing, rescaling, encode insertion, relinearization, mod switching and
// lowering), then checked, then measured for its modulus chain, rotation keys
// and ring degree. Each pass is a small rewriter driven by a forward or
// backward traversal.
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/waterline/internal/ir"
)

// Result bundles the outputs of a compilation.
type Result struct {
	Program    *ir.Program
	Parameters ir.Parameters
	Signature  ir.Signature
}

// Compile compiles program under cfg. The input program is not modified; the
// returned program is compacted and frozen.
func Compile(program *ir.Program, cfg Config) (*ir.Program, ir.Parameters, ir.Signature, error) {
	if program == nil {
		return nil, ir.Parameters{}, ir.Signature{}, ir.NewValidationError("nil program")
	}
	if err := checkSecurityLevel(cfg); err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}

	p := program.Clone()
	slog.Info("compiling program", "name", p.Name(), "vec_size", p.VecSize(), "rescaler", cfg.Rescaler)

	if err := checkSourceScales(p); err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}
	if err := transform(p, cfg); err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}
	if err := validate(p, cfg); err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}
	params, err := selectParameters(p, cfg)
	if err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}
	if err := assignLevels(p, params.DataPrimes()); err != nil {
		return nil, ir.Parameters{}, ir.Signature{}, err
	}

	out := p.Compact()
	out.Freeze()
	sig := extractSignature(out)

	slog.Info("selected encryption parameters",
		"name", out.Name(),
		"prime_bits", params.PrimeBits,
		"total_bits", params.TotalBits(),
		"poly_modulus_degree", params.PolyModulusDegree,
		"slots", params.PolyModulusDegree/2,
		"rotations", params.Rotations)
	return out, params, sig, nil
}

// CompileResult is Compile returning a Result.
func CompileResult(program *ir.Program, cfg Config) (Result, error) {
	p, params, sig, err := Compile(program, cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{Program: p, Parameters: params, Signature: sig}, nil
}

func checkSourceScales(p *ir.Program) error {
	for _, src := range p.Sources() {
		if src.Scale > 0 {
			continue
		}
		if src.Op == ir.OpInput {
			return ir.NewValidationError("the scale for input %q was not set", src.Name).WithTerm(src.ID)
		}
		return ir.NewValidationError("the scale for a constant was not set").WithTerm(src.ID)
	}
	return nil
}

type pass struct {
	name     string
	backward bool
	fn       rewriter
}

func runPasses(p *ir.Program, passes []pass) error {
	tr := newTraversal(p)
	for _, ps := range passes {
		slog.Debug("running pass", "pass", ps.name, "terms", p.Len())
		run := tr.forward
		if ps.backward {
			run = tr.backward
		}
		if err := run(ps.fn); err != nil {
			return fmt.Errorf("%s: %w", ps.name, err)
		}
	}
	return nil
}

func transform(p *ir.Program, cfg Config) error {
	passes := []pass{
		{name: "type deduction", fn: deduceTypes},
		{name: "constant folding", fn: foldConstants},
	}
	if cfg.BalanceReductions {
		passes = append(passes,
			pass{name: "reduction combining", fn: combineReductions},
			pass{name: "reduction expansion", fn: newLogExpander().rewrite},
		)
	}
	if err := runPasses(p, passes); err != nil {
		return err
	}

	rs, err := newRescaler(p, cfg.Rescaler)
	if err != nil {
		return err
	}
	ms := newModSwitcher()
	passes = []pass{
		{name: string(cfg.Rescaler) + " rescaling", fn: rs.rewrite},
		{name: "type deduction", fn: deduceTypes},
		{name: "encode insertion", fn: insertEncodes},
		{name: "type deduction", fn: deduceTypes},
		{name: "relinearization", fn: newRelinearizer(cfg.LazyRelinearize).rewrite},
		{name: "type deduction", fn: deduceTypes},
		{name: "mod switching", backward: true, fn: ms.rewrite},
	}
	if err := runPasses(p, passes); err != nil {
		return err
	}
	ms.finish(p)

	return runPasses(p, []pass{
		{name: "type deduction", fn: deduceTypes},
		{name: "lowering", fn: lowerSubtractions},
	})
}

func validate(p *ir.Program, cfg Config) error {
	if err := runPasses(p, []pass{{name: "levels check", fn: newLevelsChecker().rewrite}}); err != nil {
		return err
	}
	if err := runPasses(p, []pass{{name: "parameter check", fn: newParameterChecker().rewrite}}); err != nil {
		if ir.IsInconsistentError(err) {
			return fmt.Errorf("%s: %w", rescalerAdvice(cfg.Rescaler), err)
		}
		return err
	}
	return runPasses(p, []pass{{name: "scales check", fn: newScalesChecker().rewrite}})
}

func rescalerAdvice(r Rescaler) string {
	switch r {
	case RescalerMinimum:
		return "the minimum rescaler does not handle every program; use another rescaler"
	case RescalerAlways:
		return "the always rescaler only works when all inputs and constants share one scale"
	}
	return "the rescaler produced inconsistent parameters"
}

func selectParameters(p *ir.Program, cfg Config) (ir.Parameters, error) {
	sel := newPrimeSelector()
	if err := runPasses(p, []pass{{name: "parameter selection", fn: sel.rewrite}}); err != nil {
		return ir.Parameters{}, err
	}
	primes, err := sel.primeBits(p)
	if err != nil {
		return ir.Parameters{}, err
	}
	if cfg.MaxChainLength > 0 && len(primes) > cfg.MaxChainLength {
		return ir.Parameters{}, ir.NewDepthOverflowError(
			"program needs %d primes but max_chain_length is %d", len(primes), cfg.MaxChainLength)
	}

	params := ir.Parameters{
		PrimeBits:     primes,
		Rotations:     rotationKeys(p),
		SecurityLevel: cfg.SecurityLevel,
		QuantumSafe:   cfg.QuantumSafe,
	}
	if params.PolyModulusDegree, err = selectPolyDegree(cfg, params.TotalBits(), p.VecSize()); err != nil {
		return ir.Parameters{}, err
	}
	return params, nil
}
