package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/compiler"
	"github.com/roach88/waterline/internal/ir"
	"github.com/roach88/waterline/internal/store"
)

// configFlags are the compiler option flags shared by compile and run.
type configFlags struct {
	ConfigPath string   // YAML options file
	Set        []string // key=value overrides
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "YAML file of compiler options")
	cmd.Flags().StringArrayVar(&f.Set, "set", nil, "override a compiler option (key=value, repeatable)")
}

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	configFlags
	Output   string // directory for the artifacts
	Database string // registry to record the compilation in
	Dump     bool   // print the compiled program
}

// CompileSummary is the compile command's result.
type CompileSummary struct {
	Name          string            `json:"name"`
	ProgramID     string            `json:"program_id"`
	CompilationID string            `json:"compilation_id"`
	Config        map[string]string `json:"config"`
	Parameters    ir.Object         `json:"parameters"`
	Signature     ir.Object         `json:"signature"`
	Written       []string          `json:"written,omitempty"`
	Recorded      bool              `json:"recorded"`
	Dump          string            `json:"dump,omitempty"`
}

// compiledProgram is a loaded program together with its compilation.
type compiledProgram struct {
	Load          *LoadResult
	Config        compiler.Config
	Result        compiler.Result
	ProgramID     string
	CompilationID string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Compile a CUE program and select encryption parameters",
		Long: `Compile a CUE program for CKKS.

The program is a CUE file, or a directory holding one CUE package, with a
top-level program field. The compiler rewrites it for encrypted execution
and prints the selected parameters and the input/output signature.

Examples:
  waterline compile ./square.cue
  waterline compile ./programs/square --set rescaler=always
  waterline compile ./square.cue --config opts.yaml -o ./build --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.configFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "directory to write program, parameters and signature artifacts to")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite registry to record the compilation in")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the compiled program")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cp, err := compileProgram(path, &opts.configFlags, formatter)
	if err != nil {
		return formatter.Fail(exitCodeFor(err), err)
	}

	summary := CompileSummary{
		Name:          cp.Result.Program.Name(),
		ProgramID:     cp.ProgramID,
		CompilationID: cp.CompilationID,
		Config:        cp.Config.ToMap(),
		Parameters:    cp.Result.Parameters.ToValue(),
		Signature:     cp.Result.Signature.ToValue(),
	}
	if opts.Dump {
		summary.Dump = cp.Result.Program.Dump()
	}

	if opts.Output != "" {
		if summary.Written, err = writeArtifacts(opts.Output, cp.Result); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
		}
	}

	if opts.Database != "" {
		if err := recordCompilation(cmd.Context(), opts.Database, cp); err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		summary.Recorded = true
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	printCompileSummary(formatter.Writer, cp, summary)
	return nil
}

// compileProgram loads the program at path and compiles it under the
// options named by flags.
func compileProgram(path string, flags *configFlags, formatter *OutputFormatter) (*compiledProgram, error) {
	cfg, err := LoadConfig(flags.ConfigPath, flags.Set)
	if err != nil {
		return nil, err
	}

	load, err := LoadProgram(path)
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Loaded %s from %d CUE file(s)", load.Spec.Name, load.FileCount)

	result, err := compiler.CompileResult(load.Program, cfg)
	if err != nil {
		return nil, err
	}

	programID, err := ir.ProgramID(load.Program)
	if err != nil {
		return nil, err
	}
	compilationID, err := ir.CompilationID(programID, cfg.ToMap())
	if err != nil {
		return nil, err
	}
	return &compiledProgram{
		Load:          load,
		Config:        cfg,
		Result:        result,
		ProgramID:     programID,
		CompilationID: compilationID,
	}, nil
}

// recordCompilation stores cp in the registry at dbPath.
func recordCompilation(ctx context.Context, dbPath string, cp *compiledProgram) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = st.RecordCompilation(ctx, cp.Load.Program,
		cp.Result.Program, cp.Result.Parameters, cp.Result.Signature, cp.Config.ToMap())
	return err
}

// writeArtifacts saves the compiled program, parameters and signature
// under dir and returns the paths written.
func writeArtifacts(dir string, result compiler.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	program, err := artifact.SaveProgram(result.Program)
	if err != nil {
		return nil, err
	}
	params, err := artifact.SaveParameters(result.Parameters)
	if err != nil {
		return nil, err
	}
	sig, err := artifact.SaveSignature(result.Signature)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"program.json", program},
		{"parameters.json", params},
		{"signature.json", sig},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func printCompileSummary(w io.Writer, cp *compiledProgram, summary CompileSummary) {
	params, sig := cp.Result.Parameters, cp.Result.Signature

	fmt.Fprintf(w, "✓ Compiled %s (vec_size %d)\n\n", summary.Name, sig.VecSize)
	fmt.Fprintln(w, "Parameters:")
	fmt.Fprintf(w, "  poly_modulus_degree: %d\n", params.PolyModulusDegree)
	fmt.Fprintf(w, "  prime_bits:          %v (%d bits)\n", params.PrimeBits, params.TotalBits())
	fmt.Fprintf(w, "  rotations:           %v\n", params.Rotations)
	fmt.Fprintf(w, "  security_level:      %d\n", params.SecurityLevel)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Signature:")
	for _, name := range sig.InputNames() {
		in := sig.Inputs[name]
		fmt.Fprintf(w, "  input  %s: %s, scale %d, level %d\n", name, in.Type, in.Scale, in.Level)
	}
	for _, name := range sig.OutputNames() {
		out := sig.Outputs[name]
		fmt.Fprintf(w, "  output %s: scale %d, range %d\n", name, out.Scale, out.Range)
	}
	fmt.Fprintln(w)

	if summary.Dump != "" {
		fmt.Fprintln(w, "Program:")
		fmt.Fprintln(w, summary.Dump)
	}
	for _, path := range summary.Written {
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
	if summary.Recorded {
		fmt.Fprintf(w, "Recorded compilation %s\n", summary.CompilationID)
	}
}
