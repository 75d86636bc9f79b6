package compiler

import (
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// minPrimeBits is the smallest prime emitted for the output budget.
const minPrimeBits = 20

// primeSelector computes the modulus chain for a compiled program.
//
// As a forward pass it records, for every ciphertext term, the divisors of the
// rescales on the longest path reaching it. Modulus switches are ignored: the
// longest path never needs one. Inputs start with an empty list:
//
//	in1:{}   in2:{}  in3:{}
//	   \        \    /
//	    \        mul:{}
//	     \        |
//	      \    rescale:{40}
//	       \      |
//	        add:{40}
//	          |
//	       out:{40}
type primeSelector struct {
	divisors map[ir.TermID][]int
}

func newPrimeSelector() *primeSelector {
	return &primeSelector{divisors: make(map[ir.TermID][]int)}
}

func (s *primeSelector) rewrite(p *ir.Program, t *ir.Term) error {
	if t.Type == ir.TypeRaw || t.Op == ir.OpEncode || t.IsSource() {
		return nil
	}
	var longest []int
	for _, id := range t.Operands() {
		if d := s.divisors[id]; len(d) > len(longest) {
			longest = d
		}
	}
	longest = slices.Clone(longest)
	if t.Op == ir.OpRescale {
		if t.Divisor <= 0 {
			return ir.NewInconsistentError(t.ID, "rescale has no divisor")
		}
		longest = append(longest, t.Divisor)
	}
	s.divisors[t.ID] = longest
	return nil
}

// primeBits returns the chain: output primes first, then the rescale primes
// in the order they are consumed from the end, then the special prime.
//
// The output primes hold the largest output value (scale plus range). The
// budget is raised if some inner ciphertext, before the rescales still ahead
// of it have divided it down, would not fit in the budget plus those primes.
func (s *primeSelector) primeBits(p *ir.Program) ([]int, error) {
	budget, maxLen, maxPrime := 0, 0, 0
	var longestOut []int
	for _, name := range p.OutputNames() {
		out, _ := p.Output(name)
		budget = max(budget, out.Range+out.Scale)
		d := s.divisors[out.ID]
		if len(d) > maxLen || longestOut == nil {
			maxLen, longestOut = len(d), d
		}
		for _, b := range d {
			maxPrime = max(maxPrime, b)
		}
	}
	if budget <= 0 {
		return nil, ir.NewValidationError("program %q has no output with a scale and range", p.Name())
	}
	budget = max(budget, s.innerHeadroom(p))

	var primes []int
	if budget > fixedRescale {
		maxPrime = fixedRescale
		for budget >= fixedRescale {
			primes = append(primes, fixedRescale)
			budget -= fixedRescale
		}
		if budget > 0 {
			primes = append(primes, max(minPrimeBits, budget))
		}
	} else {
		maxPrime = max(maxPrime, budget)
		primes = append(primes, maxPrime)
	}

	for i := len(longestOut) - 1; i >= 0; i-- {
		primes = append(primes, longestOut[i])
	}
	return append(primes, maxPrime), nil
}

// innerHeadroom returns the output budget needed so that every ciphertext
// term, widened by the range of the outputs it flows into, fits in the primes
// available to it.
func (s *primeSelector) innerHeadroom(p *ir.Program) int {
	order := p.TopoOrder()
	below := make(map[ir.TermID]int, len(order))
	reach := make(map[ir.TermID]int, len(order))
	need := 0
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		if t.Op == ir.OpOutput {
			below[t.ID], reach[t.ID] = 0, t.Range
			continue
		}
		first := true
		for _, id := range t.Uses() {
			u := p.Term(id)
			b := below[id]
			if u.Op == ir.OpRescale {
				b += u.Divisor
			}
			if first || b < below[t.ID] {
				below[t.ID] = b
			}
			reach[t.ID] = max(reach[t.ID], reach[id])
			first = false
		}
		if t.Type == ir.TypeCipher {
			need = max(need, t.Scale+reach[t.ID]-below[t.ID])
		}
	}
	return need
}
