package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/runtime"
	"github.com/roach88/waterline/internal/store"
)

// DefaultRunTolerance is the MSE an encrypted run may reach before it
// counts as failed.
const DefaultRunTolerance = 1e-4

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	configFlags
	Inputs    string
	Tolerance float64
	Database  string
	Output    string // values artifact for the decrypted outputs
	KeysDir   string // directory for the key contexts and encrypted inputs

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunSummary is the run command's result.
type RunSummary struct {
	Name          string         `json:"name"`
	CompilationID string         `json:"compilation_id"`
	RunID         string         `json:"run_id,omitempty"`
	Seq           int64          `json:"seq,omitempty"`
	MSE           float64        `json:"mse"`
	WorstKey      string         `json:"worst_key"`
	MaxAbsErr     float64        `json:"max_abs_err"`
	Tolerance     float64        `json:"tolerance"`
	Within        bool           `json:"within"`
	Outputs       eval.Valuation `json:"outputs"`
	Written       []string       `json:"written,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Compile and execute a program under encryption",
		Long: `Compile a CUE program, generate keys for the selected parameters,
encrypt the inputs, execute, decrypt and compare the outputs with the
reference evaluation.

The run fails (exit code 1) when the mean squared error exceeds the
tolerance. With --db the compilation and the run are recorded.

Example:
  waterline run ./square.cue --inputs inputs.yaml
  waterline run ./square.cue --inputs inputs.yaml --db runs.db --tolerance 1e-3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypted(opts, args[0], cmd)
		},
	}

	opts.configFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "YAML file mapping input names to values (required)")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", DefaultRunTolerance, "maximum mean squared error")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite registry to record the run in")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the decrypted outputs as a values artifact")
	cmd.Flags().StringVar(&opts.KeysDir, "keys-dir", "", "directory to write key contexts and encrypted inputs to")
	_ = cmd.MarkFlagRequired("inputs")

	return cmd
}

func runEncrypted(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Tolerance < 0 {
		return formatter.Fail(ExitCommandError,
			&LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("tolerance must not be negative, got %g", opts.Tolerance)})
	}
	inputs, err := LoadInputs(opts.Inputs)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	cp, err := compileProgram(path, &opts.configFlags, formatter)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), err)
	}
	want, err := eval.Evaluate(cp.Load.Program, inputs)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	// Interrupts cancel execution between terms.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	got, written, err := execute(ctx, cp, inputs, opts.KeysDir)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	cmp, err := eval.Compare(got, want, opts.Tolerance)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	summary := RunSummary{
		Name:          cp.Result.Program.Name(),
		CompilationID: cp.CompilationID,
		MSE:           cmp.MSE,
		WorstKey:      cmp.WorstKey,
		MaxAbsErr:     cmp.MaxAbsErr,
		Tolerance:     cmp.Tolerance,
		Within:        cmp.Within,
		Outputs:       got,
		Written:       written,
	}

	if opts.Output != "" {
		data, err := artifact.SaveValues(got)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
		}
		summary.Written = append(summary.Written, opts.Output)
	}

	if opts.Database != "" {
		run, err := recordRun(ctx, opts, cp, cmp)
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		summary.RunID, summary.Seq = run.ID, run.Seq
	}

	return reportRun(formatter, summary)
}

// execute generates keys, encrypts inputs, runs the compiled program and
// decrypts its outputs. When keysDir is set the contexts and the encrypted
// inputs are saved there.
func execute(ctx context.Context, cp *compiledProgram, inputs eval.Valuation, keysDir string) (eval.Valuation, []string, error) {
	result := cp.Result
	pub, sec, err := runtime.GenerateKeys(result.Parameters)
	if err != nil {
		return nil, nil, err
	}
	enc, err := pub.Encrypt(inputs, result.Signature)
	if err != nil {
		return nil, nil, err
	}

	var written []string
	if keysDir != "" {
		if written, err = saveKeys(keysDir, pub, sec, enc); err != nil {
			return nil, nil, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()}
		}
	}

	out, err := pub.Execute(ctx, result.Program, enc)
	if err != nil {
		return nil, nil, err
	}
	got, err := sec.Decrypt(out, result.Signature)
	if err != nil {
		return nil, nil, err
	}
	return got, written, nil
}

func saveKeys(dir string, pub *runtime.PublicContext, sec *runtime.SecretContext, enc *runtime.Encrypted) ([]string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating keys directory: %w", err)
	}
	pubData, err := runtime.SavePublicContext(pub)
	if err != nil {
		return nil, err
	}
	secData, err := runtime.SaveSecretContext(sec)
	if err != nil {
		return nil, err
	}
	encData, err := runtime.SaveEncrypted(enc)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{"public_context.json", pubData, 0644},
		{"secret_context.json", secData, 0600},
		{"encrypted_inputs.json", encData, 0644},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, f.perm); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// recordRun stores the compilation and the run in the registry.
func recordRun(ctx context.Context, opts *RunOptions, cp *compiledProgram, cmp eval.Comparison) (store.Run, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return store.Run{}, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	c, err := st.RecordCompilation(ctx, cp.Load.Program,
		cp.Result.Program, cp.Result.Parameters, cp.Result.Signature, cp.Config.ToMap())
	if err != nil {
		return store.Run{}, err
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = store.UUIDv7Generator{}
	}
	run, _, err := st.WriteRun(ctx, store.Run{
		ID:            runIDs.Generate(),
		CompilationID: c.ID,
		Mode:          store.ModeEncrypted,
		MSE:           cmp.MSE,
		Tolerance:     cmp.Tolerance,
		Within:        cmp.Within,
	})
	if err != nil {
		return store.Run{}, err
	}
	slog.Debug("recorded run", "run_id", run.ID, "seq", run.Seq, "compilation_id", c.ID)
	return run, nil
}

func reportRun(formatter *OutputFormatter, summary RunSummary) error {
	message := fmt.Sprintf("mse %g exceeds tolerance %g (worst output %s)",
		summary.MSE, summary.Tolerance, summary.WorstKey)

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if !summary.Within {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTolerance, Message: message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		mark := "✓"
		if !summary.Within {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s Ran %s under encryption\n\n", mark, summary.Name)
		fmt.Fprintf(w, "  mse:         %g (tolerance %g)\n", summary.MSE, summary.Tolerance)
		fmt.Fprintf(w, "  max abs err: %g\n", summary.MaxAbsErr)
		if summary.RunID != "" {
			fmt.Fprintf(w, "  run:         %s (seq %d)\n", summary.RunID, summary.Seq)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Outputs:")
		printValues(w, summary.Outputs)
		for _, path := range summary.Written {
			fmt.Fprintf(w, "Wrote %s\n", path)
		}
	}

	if !summary.Within {
		return NewExitError(ExitFailure, message)
	}
	return nil
}
