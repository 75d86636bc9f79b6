package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestUnmarshalValueRejectsFloatsAndNull(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare float", `1.5`},
		{"exponent", `1e3`},
		{"nested float", `{"a":[1,2.0]}`},
		{"null", `null`},
		{"nested null", `{"a":null}`},
		{"trailing data", `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalValue([]byte(tt.input))
			require.Error(t, err)
		})
	}
}

func TestFloatRoundTrip(t *testing.T) {
	values := []float64{0, -0.5, 1.0 / 3, math.Pi, 1e300, -4.9e-324}
	obj := Object{"v": Floats(values)}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)

	decoded, err := UnmarshalObject(data)
	require.NoError(t, err)

	got, err := decoded.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestObjectAccessorErrors(t *testing.T) {
	obj := Object{"s": Str("x"), "n": Int(1), "f": Str("nope"), "inf": Str("+Inf")}

	_, err := obj.Str("missing")
	assert.ErrorContains(t, err, `missing field "missing"`)

	_, err = obj.Int("s")
	assert.ErrorContains(t, err, "expected integer")

	_, err = obj.Float("f")
	assert.ErrorContains(t, err, "invalid decimal")

	_, err = obj.Float("inf")
	assert.ErrorContains(t, err, "non-finite")

	n, err := obj.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
