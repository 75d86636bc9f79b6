package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)

	h1 := HashWithDomain(DomainProgram, data)
	h2 := HashWithDomain(DomainParameters, data)

	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.NotEqual(t, h1, h2, "different domains must produce different hashes")
	assert.Equal(t, h1, HashWithDomain(DomainProgram, data))
}

func TestProgramIDIgnoresRewriteHistory(t *testing.T) {
	build := func(withGarbage bool) *Program {
		p, err := NewProgram("sq", 8)
		require.NoError(t, err)
		x, err := p.NewInput("x", TypeCipher)
		require.NoError(t, err)
		if withGarbage {
			p.NewOp(OpNegate, x)
		}
		y := p.NewOp(OpMul, x, x)
		_, err = p.NewOutput("y", y)
		require.NoError(t, err)
		return p
	}

	assert.Equal(t, MustProgramID(build(false)), MustProgramID(build(true)))
}

func TestProgramIDChangesWithStructure(t *testing.T) {
	p1, err := NewProgram("p", 8)
	require.NoError(t, err)
	x, err := p1.NewInput("x", TypeCipher)
	require.NoError(t, err)
	_, err = p1.NewOutput("y", p1.NewOp(OpAdd, x, x))
	require.NoError(t, err)

	p2, err := NewProgram("p", 8)
	require.NoError(t, err)
	x, err = p2.NewInput("x", TypeCipher)
	require.NoError(t, err)
	_, err = p2.NewOutput("y", p2.NewOp(OpMul, x, x))
	require.NoError(t, err)

	assert.NotEqual(t, MustProgramID(p1), MustProgramID(p2))
}

func TestCompilationIDDependsOnConfig(t *testing.T) {
	a, err := CompilationID("abc", map[string]string{"rescaler": "always"})
	require.NoError(t, err)
	b, err := CompilationID("abc", map[string]string{"rescaler": "lazy_waterline"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
