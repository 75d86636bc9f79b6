package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(name string) ArgSpec { return ArgSpec{Ref: name, IsRef: true} }

func lit(v float64) ArgSpec { return ArgSpec{Literal: v} }

// TestAnalyzeTermCycles_Empty tests that no terms produce no cycles.
func TestAnalyzeTermCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeTermCycles(nil))
	assert.Empty(t, AnalyzeTermCycles([]TermSpec{}))
}

// TestAnalyzeTermCycles_DAG tests that an acyclic term graph produces no cycles.
func TestAnalyzeTermCycles_DAG(t *testing.T) {
	terms := []TermSpec{
		{Name: "sq", Op: SpecOpMul, Args: []ArgSpec{ref("x"), ref("x")}},
		{Name: "poly", Op: SpecOpAdd, Args: []ArgSpec{ref("sq"), ref("x"), lit(1)}},
		{Name: "out", Op: SpecOpNeg, Args: []ArgSpec{ref("poly")}},
	}
	assert.Empty(t, AnalyzeTermCycles(terms), "DAG should produce no cycles")
}

// TestAnalyzeTermCycles_SelfLoop tests detection of a term referencing itself.
func TestAnalyzeTermCycles_SelfLoop(t *testing.T) {
	terms := []TermSpec{
		{Name: "acc", Op: SpecOpAdd, Args: []ArgSpec{ref("acc"), ref("x")}},
	}

	cycles := AnalyzeTermCycles(terms)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"acc", "acc"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "references itself")
}

// TestAnalyzeTermCycles_TwoNode tests a mutual reference a ↔ b.
func TestAnalyzeTermCycles_TwoNode(t *testing.T) {
	terms := []TermSpec{
		{Name: "b", Op: SpecOpNeg, Args: []ArgSpec{ref("a")}},
		{Name: "a", Op: SpecOpMul, Args: []ArgSpec{ref("b"), ref("x")}},
	}

	cycles := AnalyzeTermCycles(terms)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].Path)
	assert.Equal(t, "terms reference each other in a cycle: a → b → a", cycles[0].Message)
}

// TestAnalyzeTermCycles_ThreeNode tests a longer cycle with an acyclic tail.
func TestAnalyzeTermCycles_ThreeNode(t *testing.T) {
	terms := []TermSpec{
		{Name: "a", Op: SpecOpAdd, Args: []ArgSpec{ref("c"), ref("x")}},
		{Name: "b", Op: SpecOpNeg, Args: []ArgSpec{ref("a")}},
		{Name: "c", Op: SpecOpRotL, Args: []ArgSpec{ref("b")}, By: 1},
		{Name: "tail", Op: SpecOpSum, Args: []ArgSpec{ref("c")}},
	}

	cycles := AnalyzeTermCycles(terms)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "c", "b", "a"}, cycles[0].Path)
}

// TestAnalyzeTermCycles_Deterministic tests that repeated runs agree.
func TestAnalyzeTermCycles_Deterministic(t *testing.T) {
	terms := []TermSpec{
		{Name: "p", Op: SpecOpNeg, Args: []ArgSpec{ref("q")}},
		{Name: "q", Op: SpecOpNeg, Args: []ArgSpec{ref("p")}},
		{Name: "m", Op: SpecOpNeg, Args: []ArgSpec{ref("m")}},
	}

	first := AnalyzeTermCycles(terms)
	require.Len(t, first, 2)
	assert.Equal(t, "m", first[0].Path[0])
	assert.Equal(t, "p", first[1].Path[0])
	for range 10 {
		assert.Equal(t, first, AnalyzeTermCycles(terms))
	}
}

// TestTermOrder tests that every term follows the terms it references.
func TestTermOrder(t *testing.T) {
	terms := []TermSpec{
		{Name: "z", Op: SpecOpNeg, Args: []ArgSpec{ref("y")}},
		{Name: "y", Op: SpecOpMul, Args: []ArgSpec{ref("w"), ref("x")}},
		{Name: "w", Op: SpecOpAdd, Args: []ArgSpec{ref("x"), lit(2)}},
		{Name: "k", Op: SpecOpConst, Value: []float64{1}},
	}

	order := termOrder(terms)
	require.Len(t, order, 4)
	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["w"], pos["y"])
	assert.Less(t, pos["y"], pos["z"])
}
