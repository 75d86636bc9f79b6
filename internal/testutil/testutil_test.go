package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedRunIDGenerator("scenario")

	assert.Equal(t, "scenario-0001", gen.Generate())
	assert.Equal(t, "scenario-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "scenario-0001", gen.Generate())
}

func TestFixedRunIDGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-0001", NewFixedRunIDGenerator("").Generate())
}

func TestFixedRunIDGenerator_Concurrent(t *testing.T) {
	gen := NewFixedRunIDGenerator("c")
	const goroutines = 50

	var wg sync.WaitGroup
	ids := make(chan string, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestRamp(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2, 2.5}, Ramp(4, 1, 0.5))
	assert.Empty(t, Ramp(0, 1, 1))
}

func TestInputs(t *testing.T) {
	in := Inputs([]string{"a", "b"}, 4)

	assert.Equal(t, []float64{-1.25, -1, -0.75, -0.5}, in["a"])
	assert.Equal(t, []float64{-0.5, -0.25, 0, 0.25}, in["b"])
	assert.Equal(t, in, Inputs([]string{"a", "b"}, 4))
}
