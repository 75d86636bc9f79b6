package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/waterline/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Compilation string
}

// HistorySummary is the history command's result.
type HistorySummary struct {
	Compilation *CompilationInfo `json:"compilation,omitempty"`
	Runs        []store.Run      `json:"runs"`
}

// CompilationInfo describes the compilation the runs were filtered by.
type CompilationInfo struct {
	ID                string            `json:"id"`
	ProgramID         string            `json:"program_id"`
	ProgramName       string            `json:"program_name"`
	Config            map[string]string `json:"config"`
	PrimeBits         []int             `json:"prime_bits"`
	PolyModulusDegree int               `json:"poly_modulus_degree"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the runs recorded in a registry, in the order they were written.

Example:
  waterline history --db runs.db
  waterline history --db runs.db --compilation <id> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite registry (required)")
	cmd.Flags().StringVar(&opts.Compilation, "compilation", "", "only list runs of this compilation")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// Opening would create an empty registry.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError,
			&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", opts.Database)})
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer st.Close()

	summary := HistorySummary{}
	if opts.Compilation != "" {
		c, err := st.ReadCompilation(ctx, opts.Compilation)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError,
				&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("compilation not found: %s", opts.Compilation)})
		}
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		p, err := st.ReadProgram(ctx, c.ProgramID)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		summary.Compilation = &CompilationInfo{
			ID:                c.ID,
			ProgramID:         c.ProgramID,
			ProgramName:       p.Name,
			Config:            c.Config,
			PrimeBits:         c.PrimeBits,
			PolyModulusDegree: c.PolyModulusDegree,
		}
	}

	if summary.Runs, err = st.ListRuns(ctx, opts.Compilation); err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	if c := summary.Compilation; c != nil {
		fmt.Fprintf(w, "Compilation %s\n", c.ID)
		fmt.Fprintf(w, "  program:    %s (%s)\n", c.ProgramName, c.ProgramID)
		fmt.Fprintf(w, "  prime_bits: %v, poly_modulus_degree %d\n\n", c.PrimeBits, c.PolyModulusDegree)
	}
	if len(summary.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tMODE\tMSE\tTOLERANCE\tWITHIN")
	for _, r := range summary.Runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\t%t\n", r.Seq, r.ID, r.Mode, r.MSE, r.Tolerance, r.Within)
	}
	return tw.Flush()
}
