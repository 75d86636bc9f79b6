package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir writes scenarios for the square program into a fresh directory.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	program, err := filepath.Abs(squareProgram)
	require.NoError(t, err)

	dir := t.TempDir()
	for name, expect := range scenarios {
		writeFile(t, dir, name+".yaml", fmt.Sprintf(`name: %s
description: squares eight values
program: %s
expect:
%s
`, name, program, expect))
	}
	return dir
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"square": "  prime_bits: [60, 20, 60, 60]\n  poly_degree: 8192",
	})

	out, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ square")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "square.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"prime_bits":[60,20,60,60]`)

	out, err = runCLI(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"square": "  poly_degree: 8192"})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "square.golden", `{"name":"square"}`)

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "do not match golden file")
}

func TestTestCommand_FailedExpectationJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"square":  "  poly_degree: 8192",
		"squares": "  poly_degree: 4096",
	})

	out, err := runCLI(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"square":  "  poly_degree: 8192",
		"squares": "  poly_degree: 4096",
	})

	out, err := runCLI(t, "test", dir, "--filter", "square")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := runCLI(t, "test", "/nonexistent/scenarios")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("no scenarios", func(t *testing.T) {
		out, err := runCLI(t, "test", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found.")
	})

	t.Run("invalid scenario", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.yaml", "name: bad\n")
		out, err := runCLI(t, "test", dir)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "failed to load scenario")
	})
}
