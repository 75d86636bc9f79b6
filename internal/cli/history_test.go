package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/store"
)

func seedRuns(t *testing.T, db string) string {
	t.Helper()
	out, err := runCLI(t, "--format", "json", "compile", squareProgram, "--db", db)
	require.NoError(t, err)
	var data compileData
	decode(t, out, &data)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	for i, id := range []string{"run-b", "run-a"} {
		_, _, err := st.WriteRun(context.Background(), store.Run{
			ID:            id,
			CompilationID: data.CompilationID,
			Mode:          store.ModeReference,
			MSE:           float64(i) * 1e-9,
			Tolerance:     1e-6,
			Within:        true,
		})
		require.NoError(t, err)
	}
	return data.CompilationID
}

func TestHistoryText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRuns(t, db)

	out, err := runCLI(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "run-b")
	assert.Less(t, strings.Index(out, "run-b"), strings.Index(out, "run-a"), "runs are listed in seq order")
}

func TestHistoryJSONFiltered(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	compilationID := seedRuns(t, db)

	out, err := runCLI(t, "--format", "json", "history", "--db", db, "--compilation", compilationID)
	require.NoError(t, err)

	var history HistorySummary
	decode(t, out, &history)
	require.NotNil(t, history.Compilation)
	assert.Equal(t, "square", history.Compilation.ProgramName)
	assert.Equal(t, []int{60, 20, 60, 60}, history.Compilation.PrimeBits)
	require.Len(t, history.Runs, 2)
	assert.Equal(t, int64(1), history.Runs[0].Seq)
	assert.Equal(t, "run-b", history.Runs[0].ID)
}

func TestHistoryErrors(t *testing.T) {
	t.Run("missing database", func(t *testing.T) {
		_, err := runCLI(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown compilation", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "runs.db")
		seedRuns(t, db)
		out, err := runCLI(t, "history", "--db", db, "--compilation", "nope")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "compilation not found")
	})
}
