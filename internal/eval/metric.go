package eval

import (
	"maps"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/roach88/waterline/internal/ir"
)

// MSE returns the mean over keys of each key's mean squared error.
// Both valuations must have the same keys and equal vector lengths per key.
func MSE(a, b Valuation) (float64, error) {
	perKey, err := perKeyMSE(a, b)
	if err != nil {
		return 0, err
	}
	if len(perKey) == 0 {
		return 0, nil
	}
	total := make([]float64, 0, len(perKey))
	for _, name := range slices.Sorted(maps.Keys(perKey)) {
		total = append(total, perKey[name])
	}
	return stats.Mean(total)
}

// Comparison summarizes how far one valuation is from another.
type Comparison struct {
	MSE       float64
	WorstKey  string
	WorstMSE  float64
	MaxAbsErr float64
	Tolerance float64
	Within    bool
}

// Compare computes the MSE between got and want and checks it against tol.
func Compare(got, want Valuation, tol float64) (Comparison, error) {
	perKey, err := perKeyMSE(got, want)
	if err != nil {
		return Comparison{}, err
	}
	c := Comparison{Tolerance: tol}
	if len(perKey) > 0 {
		keys := slices.Sorted(maps.Keys(perKey))
		total := make([]float64, 0, len(keys))
		for _, k := range keys {
			total = append(total, perKey[k])
			if perKey[k] > c.WorstMSE || c.WorstKey == "" {
				c.WorstKey, c.WorstMSE = k, perKey[k]
			}
			for i := range got[k] {
				c.MaxAbsErr = math.Max(c.MaxAbsErr, math.Abs(got[k][i]-want[k][i]))
			}
		}
		if c.MSE, err = stats.Mean(total); err != nil {
			return Comparison{}, err
		}
	}
	c.Within = c.MSE <= tol
	return c, nil
}

func perKeyMSE(a, b Valuation) (map[string]float64, error) {
	if len(a) != len(b) {
		return nil, ir.NewValidationError("valuations have different keys: %v vs %v",
			slices.Sorted(maps.Keys(a)), slices.Sorted(maps.Keys(b)))
	}
	out := make(map[string]float64, len(a))
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return nil, ir.NewValidationError("key %q missing from second valuation", k)
		}
		if len(av) != len(bv) {
			return nil, ir.NewValidationError("key %q has %d values vs %d", k, len(av), len(bv))
		}
		if len(av) == 0 {
			out[k] = 0
			continue
		}
		sq := make(stats.Float64Data, len(av))
		for i := range av {
			d := av[i] - bv[i]
			sq[i] = d * d
		}
		m, err := sq.Mean()
		if err != nil {
			return nil, err
		}
		out[k] = m
	}
	return out, nil
}
