package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
)

func TestInspectArtifact(t *testing.T) {
	params := ir.Parameters{PrimeBits: []int{60, 20, 60, 60}, Rotations: []int{1}, PolyModulusDegree: 8192, SecurityLevel: 128}
	data, err := artifact.SaveParameters(params)
	require.NoError(t, err)

	summary, err := InspectArtifact(data, false)
	require.NoError(t, err)
	assert.Equal(t, artifact.KindParameters, summary.Kind)
	assert.Equal(t, ir.FormatVersion, summary.FormatVersion)
	assert.Equal(t, artifact.ContentID(artifact.KindParameters, data), summary.ContentID)
	assert.Equal(t, 200, summary.Fields["total_bits"])
	assert.Equal(t, []int{1}, summary.Fields["rotations"])

	values, err := artifact.SaveValues(eval.Valuation{"a": {1, 2}, "b": {3}})
	require.NoError(t, err)
	summary, err = InspectArtifact(values, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, summary.Fields["lengths"])
}

func TestInspectCompiledProgram(t *testing.T) {
	outDir := t.TempDir()
	_, err := runCLI(t, "compile", squareProgram, "-o", outDir)
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", filepath.Join(outDir, "program.json"), "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "program artifact (format version 1)")
	assert.Contains(t, out, "name: square")
	assert.Contains(t, out, "vec_size: 8")

	out, err = runCLI(t, "--format", "json", "inspect", filepath.Join(outDir, "signature.json"))
	require.NoError(t, err)
	var summary ArtifactSummary
	resp := decode(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, artifact.KindSignature, summary.Kind)
	assert.Equal(t, []any{"x"}, summary.Fields["inputs"])
}

func TestInspectErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := runCLI(t, "inspect", "/nonexistent/artifact.json")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("not an artifact", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "x.json", `{"hello":"world"}`)
		out, err := runCLI(t, "--format", "json", "inspect", path)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		resp := decode(t, out, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION", resp.Error.Code)
	})
}
