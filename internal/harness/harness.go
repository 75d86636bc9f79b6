package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/waterline/internal/compiler"
	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
	"github.com/roach88/waterline/internal/runtime"
	"github.com/roach88/waterline/internal/store"
	"github.com/roach88/waterline/internal/testutil"
)

// Harness runs one scenario against a fresh registry.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunIDGenerator
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the CUE program and compile it under the scenario config
//  2. Record the compilation in a fresh in-memory registry
//  3. Compare compiled and source programs under the reference evaluator
//  4. If requested, encrypt, execute, decrypt and compare again
//  5. Check the selected parameters against the expectations
//
// Failed checks are reported in Result.Errors. Errors that prevent the
// scenario from running at all (bad program, bad config) are returned.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for the encrypted execution.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := compiler.LoadSpecFile(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	source, err := compiler.BuildProgram(spec)
	if err != nil {
		return nil, fmt.Errorf("build program: %w", err)
	}
	cfg, err := compiler.ParseConfig(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	compiled, params, sig, err := compiler.Compile(source, cfg)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.Name),
	}

	c, err := st.RecordCompilation(ctx, source, compiled, params, sig, cfg.ToMap())
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Program = compiled
	result.Parameters = params
	result.Signature = sig
	result.CompilationID = c.ID

	inputs := eval.Valuation(scenario.Inputs)
	if len(inputs) == 0 {
		inputs = testutil.Inputs(source.InputNames(), source.VecSize())
	}
	want, err := eval.Evaluate(source, inputs)
	if err != nil {
		return nil, fmt.Errorf("evaluate source: %w", err)
	}

	got, err := eval.Evaluate(compiled, inputs)
	if err != nil {
		return nil, fmt.Errorf("evaluate compiled: %w", err)
	}
	if result.Reference, err = h.compare(ctx, c.ID, store.ModeReference, got, want, scenario.tolerance()); err != nil {
		return nil, err
	}

	if scenario.Encrypted {
		got, err := runEncrypted(ctx, compiled, params, sig, inputs)
		if err != nil {
			return nil, fmt.Errorf("encrypted run: %w", err)
		}
		cmp, err := h.compare(ctx, c.ID, store.ModeEncrypted, got, want, scenario.encryptedTolerance())
		if err != nil {
			return nil, err
		}
		result.Encrypted = &cmp
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	if result.Runs, err = st.ListRuns(ctx, c.ID); err != nil {
		return nil, err
	}

	slog.Debug("scenario finished",
		"name", scenario.Name,
		"pass", result.Pass,
		"reference_mse", result.Reference.MSE)
	return result, nil
}

// compare measures got against want and records the run.
func (h *Harness) compare(ctx context.Context, compilationID string, mode store.RunMode, got, want eval.Valuation, tol float64) (eval.Comparison, error) {
	cmp, err := eval.Compare(got, want, tol)
	if err != nil {
		return eval.Comparison{}, fmt.Errorf("%s comparison: %w", mode, err)
	}
	_, _, err = h.store.WriteRun(ctx, store.Run{
		ID:            h.runIDs.Generate(),
		CompilationID: compilationID,
		Mode:          mode,
		MSE:           cmp.MSE,
		Tolerance:     tol,
		Within:        cmp.Within,
	})
	if err != nil {
		return eval.Comparison{}, err
	}
	return cmp, nil
}

func runEncrypted(ctx context.Context, p *ir.Program, params ir.Parameters, sig ir.Signature, inputs eval.Valuation) (eval.Valuation, error) {
	pub, sec, err := runtime.GenerateKeys(params)
	if err != nil {
		return nil, err
	}
	enc, err := pub.Encrypt(inputs, sig)
	if err != nil {
		return nil, err
	}
	out, err := pub.Execute(ctx, p, enc)
	if err != nil {
		return nil, err
	}
	return sec.Decrypt(out, sig)
}
