package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/eval"
)

func TestEvalJSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "eval", squareProgram, "--inputs", "testdata/inputs.yaml")
	require.NoError(t, err)

	var data EvalSummary
	resp := decode(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "square", data.Name)
	assert.Equal(t, []float64{1, 4, 9, 16, 0.25, 1, 4, 0}, data.Outputs["y"])
}

func TestEvalText(t *testing.T) {
	out, err := runCLI(t, "eval", squareProgram, "--inputs", "testdata/inputs.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Evaluated square")
	assert.Contains(t, out, "y: [1 4 9 16 0.25 1 4 0]")
}

func TestEvalWritesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	_, err := runCLI(t, "eval", squareProgram, "--inputs", "testdata/inputs.yaml", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	values, err := artifact.LoadValues(data)
	require.NoError(t, err)
	assert.Equal(t, eval.Valuation{"y": {1, 4, 9, 16, 0.25, 1, 4, 0}}, values)
}

func TestEvalErrors(t *testing.T) {
	t.Run("inputs required", func(t *testing.T) {
		_, err := runCLI(t, "eval", squareProgram)
		require.Error(t, err)
	})

	t.Run("missing inputs file", func(t *testing.T) {
		_, err := runCLI(t, "eval", squareProgram, "--inputs", "testdata/nope.yaml")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("wrong input name", func(t *testing.T) {
		inputs := writeFile(t, t.TempDir(), "in.yaml", "z: [1, 2, 3, 4, 5, 6, 7, 8]\n")
		out, err := runCLI(t, "--format", "json", "eval", squareProgram, "--inputs", inputs)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		resp := decode(t, out, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION", resp.Error.Code)
	})
}
