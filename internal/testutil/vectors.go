package testutil

import "github.com/roach88/waterline/internal/eval"

// Ramp returns n values start, start+step, start+2*step, ...
func Ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Inputs returns a deterministic valuation with one vector of width n per
// name. Values cycle through [-1.25, 1.25] in steps of 0.25, offset per name
// so that no two inputs are equal.
func Inputs(names []string, n int) eval.Valuation {
	out := make(eval.Valuation, len(names))
	for k, name := range names {
		v := make([]float64, n)
		for i := range v {
			v[i] = float64((i+3*k)%11-5) / 4
		}
		out[name] = v
	}
	return out
}
