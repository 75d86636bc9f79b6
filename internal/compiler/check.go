package compiler

import "github.com/roach88/waterline/internal/ir"

// The checkers re-derive levels, prime requirements and scales from scratch
// on the transformed program and fail on the first term that breaks a rule.
// They run as forward passes and do not modify the graph.

// levelsChecker verifies that all ciphertext operands of a term have been
// reduced by the same number of primes.
type levelsChecker struct {
	consumed map[ir.TermID]int
}

func newLevelsChecker() *levelsChecker {
	return &levelsChecker{consumed: make(map[ir.TermID]int)}
}

func (c *levelsChecker) rewrite(p *ir.Program, t *ir.Term) error {
	if t.IsSource() {
		c.consumed[t.ID] = t.EncodeLevel
		return nil
	}
	level, seen := 0, false
	for _, id := range t.Operands() {
		if p.Term(id).Type != ir.TypeCipher {
			continue
		}
		if !seen {
			level, seen = c.consumed[id], true
			continue
		}
		if c.consumed[id] != level {
			return ir.NewInconsistentError(t.ID,
				"%s operands are at different levels (%d and %d primes consumed)", t.Op, level, c.consumed[id])
		}
	}
	if t.Op == ir.OpRescale || t.Op == ir.OpModSwitch {
		level++
	}
	c.consumed[t.ID] = level
	return nil
}

// parameterChecker verifies that the primes each term divides by agree
// between operands. A ModSwitch contributes a placeholder that any concrete
// prime may fill.
type parameterChecker struct {
	primes map[ir.TermID][]int
}

func newParameterChecker() *parameterChecker {
	return &parameterChecker{primes: make(map[ir.TermID][]int)}
}

func (c *parameterChecker) rewrite(p *ir.Program, t *ir.Term) error {
	if t.Type == ir.TypeRaw || t.Op == ir.OpEncode {
		return nil
	}
	if t.IsSource() {
		c.primes[t.ID] = make([]int, t.EncodeLevel)
		return nil
	}

	var primes []int
	for _, id := range t.Operands() {
		op := c.primes[id]
		if len(op) == 0 {
			continue
		}
		if primes == nil {
			primes = append([]int(nil), op...)
			continue
		}
		if len(op) != len(primes) {
			return ir.NewInconsistentError(t.ID, "operands require different numbers of primes (%d and %d)", len(primes), len(op))
		}
		for i := range primes {
			switch {
			case primes[i] == 0:
				primes[i] = op[i]
			case op[i] != 0 && op[i] != primes[i]:
				return ir.NewInconsistentError(t.ID, "operands require different primes at position %d (%d and %d bits)", i, primes[i], op[i])
			}
		}
	}
	switch t.Op {
	case ir.OpModSwitch:
		primes = append(primes, 0)
	case ir.OpRescale:
		primes = append(primes, t.Divisor)
	}
	c.primes[t.ID] = primes
	return nil
}

// scalesChecker verifies scale arithmetic: products add scales, rescales
// subtract their divisor and additions need equal scales. No ciphertext or
// plaintext term may end up at scale zero.
type scalesChecker struct {
	scale map[ir.TermID]int
}

func newScalesChecker() *scalesChecker {
	return &scalesChecker{scale: make(map[ir.TermID]int)}
}

func (c *scalesChecker) rewrite(p *ir.Program, t *ir.Term) error {
	if t.Type == ir.TypeRaw {
		return nil
	}
	var s int
	switch {
	case t.Op == ir.OpInput || t.Op == ir.OpEncode:
		s = t.Scale
		if s <= 0 && t.Op == ir.OpInput {
			return ir.NewValidationError("input %q has no scale", t.Name).WithTerm(t.ID)
		}
	case t.Op == ir.OpMul:
		for _, id := range t.Operands() {
			s += c.scale[id]
		}
	case t.Op == ir.OpRescale:
		s = c.scale[t.Operand(0)] - t.Divisor
	case t.Op.IsAdditive():
		for _, id := range t.Operands() {
			os := c.scale[id]
			if s == 0 {
				s = os
			} else if os != s {
				return ir.NewInconsistentError(t.ID, "%s operands have different scales (%d and %d bits)", t.Op, s, os)
			}
		}
	default:
		s = c.scale[t.Operand(0)]
	}
	if s <= 0 {
		return ir.NewInconsistentError(t.ID, "%s results in a scale of %d bits", t.Op, s)
	}
	if s != t.Scale {
		return ir.NewInconsistentError(t.ID, "%s has scale %d bits but its operands give %d", t.Op, t.Scale, s)
	}
	c.scale[t.ID] = s
	return nil
}
