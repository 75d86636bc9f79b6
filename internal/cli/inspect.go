package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/ir"
	"github.com/roach88/waterline/internal/runtime"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Dump bool
}

// ArtifactSummary describes a saved artifact.
type ArtifactSummary struct {
	Path          string         `json:"path"`
	Kind          artifact.Kind  `json:"kind"`
	FormatVersion int            `json:"format_version"`
	ContentID     string         `json:"content_id"`
	Fields        map[string]any `json:"fields"`
	Dump          string         `json:"dump,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Describe a saved artifact",
		Long: `Print the kind, format version, content ID and a summary of a
saved artifact: a program, parameters, signature, values, encrypted
bundle or key context.

Example:
  waterline inspect ./build/parameters.json
  waterline inspect ./build/program.json --dump`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the program terms (program artifacts only)")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError,
			&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading artifact: %v", err)})
	}
	summary, err := InspectArtifact(data, opts.Dump)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	summary.Path = path

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "%s: %s artifact (format version %d)\n", path, summary.Kind, summary.FormatVersion)
	fmt.Fprintf(w, "  content_id: %s\n", summary.ContentID)
	for _, key := range sortedNames(summary.Fields) {
		fmt.Fprintf(w, "  %s: %v\n", key, summary.Fields[key])
	}
	if summary.Dump != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, summary.Dump)
	}
	return nil
}

// InspectArtifact decodes data fully for its kind and summarizes it.
func InspectArtifact(data []byte, dump bool) (*ArtifactSummary, error) {
	env, err := artifact.Open(data)
	if err != nil {
		return nil, err
	}
	summary := &ArtifactSummary{
		Kind:          env.Kind,
		FormatVersion: env.FormatVersion,
		ContentID:     artifact.ContentID(env.Kind, data),
	}

	switch env.Kind {
	case artifact.KindProgram:
		p, err := artifact.LoadProgram(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = map[string]any{
			"name":     p.Name(),
			"vec_size": p.VecSize(),
			"terms":    p.Len(),
			"inputs":   p.InputNames(),
			"outputs":  p.OutputNames(),
		}
		if dump {
			summary.Dump = p.Dump()
		}
	case artifact.KindParameters:
		params, err := artifact.LoadParameters(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = parameterFields(params)
	case artifact.KindSignature:
		sig, err := artifact.LoadSignature(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = map[string]any{
			"vec_size": sig.VecSize,
			"inputs":   sig.InputNames(),
			"outputs":  sig.OutputNames(),
		}
	case artifact.KindValues:
		values, err := artifact.LoadValues(data)
		if err != nil {
			return nil, err
		}
		lengths := make(map[string]int, len(values))
		for name, v := range values {
			lengths[name] = len(v)
		}
		summary.Fields = map[string]any{"lengths": lengths}
	case artifact.KindEncrypted:
		enc, err := runtime.LoadEncrypted(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = map[string]any{
			"vec_size":    enc.VecSize,
			"names":       enc.Names(),
			"ciphertexts": len(enc.Ciphertexts),
		}
	case artifact.KindPublicContext:
		pub, err := runtime.LoadPublicContext(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = parameterFields(pub.Parameters())
		summary.Fields["slots"] = pub.Slots()
	case artifact.KindSecretContext:
		sec, err := runtime.LoadSecretContext(data)
		if err != nil {
			return nil, err
		}
		summary.Fields = parameterFields(sec.Parameters())
	}
	return summary, nil
}

func parameterFields(params ir.Parameters) map[string]any {
	return map[string]any{
		"prime_bits":          params.PrimeBits,
		"total_bits":          params.TotalBits(),
		"rotations":           params.Rotations,
		"poly_modulus_degree": params.PolyModulusDegree,
		"security_level":      params.SecurityLevel,
		"quantum_safe":        params.QuantumSafe,
	}
}
