package compiler

import (
	"maps"
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// rotationKeys returns the rotation amounts applied to non-Raw values,
// ascending. Right rotations are negative.
func rotationKeys(p *ir.Program) []int {
	keys := make(map[int]bool)
	for _, t := range p.Terms() {
		if !t.Op.IsRotation() || t.Type == ir.TypeRaw {
			continue
		}
		if t.Op == ir.OpRotateRight {
			keys[-t.Rotation] = true
		} else {
			keys[t.Rotation] = true
		}
	}
	return slices.Sorted(maps.Keys(keys))
}

// extractSignature describes how to encode each input and what scale and
// range each output carries.
func extractSignature(p *ir.Program) ir.Signature {
	sig := ir.Signature{
		VecSize: p.VecSize(),
		Inputs:  make(map[string]ir.EncodingInfo),
		Outputs: make(map[string]ir.OutputInfo),
	}
	for _, name := range p.InputNames() {
		in, _ := p.Input(name)
		sig.Inputs[name] = ir.EncodingInfo{Type: in.Type, Scale: in.Scale, Level: in.EncodeLevel}
	}
	for _, name := range p.OutputNames() {
		out, _ := p.Output(name)
		sig.Outputs[name] = ir.OutputInfo{Scale: out.Scale, Range: out.Range}
	}
	return sig
}

// assignLevels sets Term.Level to the data primes left to each non-Raw term.
// Sources and encodes start with their encode level dropped; each Rescale and
// ModSwitch drops one more. A ciphertext must keep at least one prime.
func assignLevels(p *ir.Program, dataPrimes int) error {
	consumed := make(map[ir.TermID]int)
	for _, t := range p.TopoOrder() {
		if t.Type == ir.TypeRaw {
			continue
		}
		c := 0
		switch {
		case t.IsSource() || t.Op == ir.OpEncode:
			c = t.EncodeLevel
		default:
			for _, id := range t.Operands() {
				if p.Term(id).Type != ir.TypeRaw {
					c = max(c, consumed[id])
				}
			}
			if t.Op == ir.OpRescale || t.Op == ir.OpModSwitch {
				c++
			}
		}
		consumed[t.ID] = c
		t.Level = dataPrimes - c
		if t.Type == ir.TypeCipher && t.Level < 1 {
			return ir.NewDepthOverflowError("%s needs %d primes but the chain has %d", t.Op, c+1, dataPrimes).WithTerm(t.ID)
		}
	}
	return nil
}
