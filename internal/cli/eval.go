package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/eval"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Inputs string // YAML inputs file
	Output string // values artifact to write
}

// EvalSummary is the eval command's result.
type EvalSummary struct {
	Name    string         `json:"name"`
	Outputs eval.Valuation `json:"outputs"`
	Written string         `json:"written,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <program>",
		Short: "Evaluate a program in the clear",
		Long: `Evaluate a CUE program with the reference evaluator.

No encryption is involved: this is the exact result that compiled and
encrypted runs are measured against.

Example:
  waterline eval ./square.cue --inputs inputs.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "YAML file mapping input names to values (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the outputs as a values artifact")
	_ = cmd.MarkFlagRequired("inputs")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	inputs, err := LoadInputs(opts.Inputs)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	load, err := LoadProgram(path)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), err)
	}

	outputs, err := eval.Evaluate(load.Program, inputs)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	summary := EvalSummary{Name: load.Program.Name(), Outputs: outputs}

	if opts.Output != "" {
		data, err := artifact.SaveValues(outputs)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
		}
		summary.Written = opts.Output
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Evaluated %s\n\n", summary.Name)
	printValues(formatter.Writer, outputs)
	if summary.Written != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote %s\n", summary.Written)
	}
	return nil
}

// printValues prints one line per name in sorted order.
func printValues(w io.Writer, values eval.Valuation) {
	for _, name := range sortedNames(values) {
		fmt.Fprintf(w, "  %s: %v\n", name, values[name])
	}
}
