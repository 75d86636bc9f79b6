package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/compiler"
	"github.com/roach88/waterline/internal/ir"
)

func TestParseConfigYAML(t *testing.T) {
	options, err := ParseConfigYAML([]byte("rescaler: minimum\nlazy_relinearize: false\nmax_chain_length: 6\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"rescaler":         "minimum",
		"lazy_relinearize": "false",
		"max_chain_length": "6",
	}, options)

	options, err = ParseConfigYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, options)

	_, err = ParseConfigYAML([]byte("rescalar: minimum\n"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr, "unknown fields are rejected")
	assert.Equal(t, ErrCodeBadInput, loadErr.Code)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		require.NoError(t, err)
		assert.Equal(t, compiler.DefaultConfig(), cfg)
	})

	t.Run("file", func(t *testing.T) {
		cfg, err := LoadConfig("testdata/options.yaml", nil)
		require.NoError(t, err)
		assert.Equal(t, compiler.RescalerAlways, cfg.Rescaler)
		assert.False(t, cfg.WarnVecSize)
		assert.True(t, cfg.LazyRelinearize)
	})

	t.Run("overrides win over file", func(t *testing.T) {
		cfg, err := LoadConfig("testdata/options.yaml", []string{"rescaler=eager_waterline", "quantum_safe=true"})
		require.NoError(t, err)
		assert.Equal(t, compiler.RescalerEagerWaterline, cfg.Rescaler)
		assert.True(t, cfg.QuantumSafe)
	})

	t.Run("malformed override", func(t *testing.T) {
		_, err := LoadConfig("", []string{"rescaler"})
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, ErrCodeBadInput, loadErr.Code)
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := LoadConfig("", []string{"depth=3"})
		assert.True(t, ir.IsValidationError(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig("testdata/nope.yaml", nil)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, ErrCodeNotFound, loadErr.Code)
	})
}

func TestLoadInputs(t *testing.T) {
	inputs, err := LoadInputs("testdata/inputs.yaml")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 0.5, -1, -2, 0}, inputs["x"])

	_, err = LoadInputs(writeFile(t, t.TempDir(), "empty.yaml", ""))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadInput, loadErr.Code)

	_, err = LoadInputs(writeFile(t, t.TempDir(), "bad.yaml", "x: one\n"))
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadInput, loadErr.Code)
}
