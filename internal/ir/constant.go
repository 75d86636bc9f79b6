package ir

import (
	"math"
	"slices"
)

// Constant is the value of a constant term: either one value replicated across
// every slot (uniform) or a dense list that is repeated to fill the vector.
// Constants are immutable and may be shared between cloned programs.
type Constant struct {
	values []float64
}

// Uniform returns a constant with v in every slot.
func Uniform(v float64) *Constant {
	return &Constant{values: []float64{v}}
}

// Dense returns a constant holding values. The list must be non-empty and finite.
func Dense(values []float64) (*Constant, error) {
	if len(values) == 0 {
		return nil, NewDomainError("constant must have at least one value")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, NewDomainError("constant value %d is not finite: %v", i, v)
		}
	}
	return &Constant{values: slices.Clone(values)}, nil
}

// IsUniform reports whether every slot holds the same value.
func (c *Constant) IsUniform() bool {
	return len(c.values) == 1
}

// Len is the number of stored values (1 for uniform constants).
func (c *Constant) Len() int {
	return len(c.values)
}

// Values returns a copy of the stored values.
func (c *Constant) Values() []float64 {
	return slices.Clone(c.values)
}

// Expand returns the constant repeated to exactly n slots.
// The stored length must divide n.
func (c *Constant) Expand(n int) ([]float64, error) {
	if n <= 0 || n%len(c.values) != 0 {
		return nil, NewDomainError("constant of length %d does not divide vector width %d", len(c.values), n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = c.values[i%len(c.values)]
	}
	return out, nil
}

// Equal reports whether two constants store the same values.
func (c *Constant) Equal(other *Constant) bool {
	if c == nil || other == nil {
		return c == other
	}
	return slices.Equal(c.values, other.values)
}
