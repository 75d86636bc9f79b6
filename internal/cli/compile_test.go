package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/artifact"
)

type compileData struct {
	Name          string `json:"name"`
	ProgramID     string `json:"program_id"`
	CompilationID string `json:"compilation_id"`
	Parameters    struct {
		PrimeBits         []int `json:"prime_bits"`
		PolyModulusDegree int   `json:"poly_modulus_degree"`
	} `json:"parameters"`
	Written  []string `json:"written"`
	Recorded bool     `json:"recorded"`
}

func TestCompileText(t *testing.T) {
	out, err := runCLI(t, "compile", squareProgram)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled square (vec_size 8)")
	assert.Contains(t, out, "[60 20 60 60] (200 bits)")
	assert.Contains(t, out, "poly_modulus_degree: 8192")
	assert.Contains(t, out, "input  x: cipher, scale 60, level 0")
	assert.Contains(t, out, "output y: scale 60, range 20")
}

func TestCompileJSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "compile", squareProgram)
	require.NoError(t, err)

	var data compileData
	resp := decode(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "square", data.Name)
	assert.Equal(t, []int{60, 20, 60, 60}, data.Parameters.PrimeBits)
	assert.Equal(t, 8192, data.Parameters.PolyModulusDegree)
	assert.Len(t, data.ProgramID, 64)
	assert.Len(t, data.CompilationID, 64)
	assert.False(t, data.Recorded)
}

func TestCompileConfigChangesCompilationID(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "compile", squareProgram)
	require.NoError(t, err)
	var base compileData
	decode(t, out, &base)

	out, err = runCLI(t, "--format", "json", "compile", squareProgram, "--config", "testdata/options.yaml")
	require.NoError(t, err)
	var configured compileData
	decode(t, out, &configured)

	assert.Equal(t, base.ProgramID, configured.ProgramID)
	assert.NotEqual(t, base.CompilationID, configured.CompilationID)
}

func TestCompileWritesArtifacts(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "build")

	out, err := runCLI(t, "--format", "json", "compile", squareProgram, "-o", outDir)
	require.NoError(t, err)
	var data compileData
	decode(t, out, &data)
	require.Len(t, data.Written, 3)

	programData, err := os.ReadFile(filepath.Join(outDir, "program.json"))
	require.NoError(t, err)
	p, err := artifact.LoadProgram(programData)
	require.NoError(t, err)
	assert.Equal(t, "square", p.Name())

	paramsData, err := os.ReadFile(filepath.Join(outDir, "parameters.json"))
	require.NoError(t, err)
	params, err := artifact.LoadParameters(paramsData)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 20, 60, 60}, params.PrimeBits)

	sigData, err := os.ReadFile(filepath.Join(outDir, "signature.json"))
	require.NoError(t, err)
	sig, err := artifact.LoadSignature(sigData)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, sig.OutputNames())
}

func TestCompileRecordsCompilation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCLI(t, "--format", "json", "compile", squareProgram, "--db", db)
	require.NoError(t, err)
	var data compileData
	decode(t, out, &data)
	assert.True(t, data.Recorded)

	out, err = runCLI(t, "history", "--db", db, "--compilation", data.CompilationID)
	require.NoError(t, err)
	assert.Contains(t, out, "Compilation "+data.CompilationID)
	assert.Contains(t, out, "program:    square")
	assert.Contains(t, out, "No runs recorded.")
}

func TestCompileDump(t *testing.T) {
	out, err := runCLI(t, "compile", squareProgram, "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "Program:")
}

func TestCompileNonExistentPath(t *testing.T) {
	out, err := runCLI(t, "compile", "/nonexistent/program.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, err := runCLI(t, "compile", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files found")
}

func TestCompileInvalidProgram(t *testing.T) {
	path := writeFile(t, t.TempDir(), "six.cue", `program: {
	name:         "six"
	vec_size:     6
	input_scale:  30
	output_range: 10
	inputs: x: {encrypted: true}
	outputs: y: "x"
}
`)
	out, err := runCLI(t, "--format", "json", "compile", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
}

func TestCompileBadOption(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "compile", squareProgram, "--set", "rescaler=sometimes")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "sometimes")
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "compile", squareProgram)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
