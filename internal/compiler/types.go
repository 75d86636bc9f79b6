package compiler

import "github.com/roach88/waterline/internal/ir"

// deduceTypes assigns Term.Type. A term with any Cipher operand is Cipher,
// Encode produces Plain, everything else is Raw. Inputs keep their declared
// type.
func deduceTypes(p *ir.Program, t *ir.Term) error {
	switch {
	case t.NumOperands() > 0:
		if t.Op == ir.OpEncode {
			t.Type = ir.TypePlain
			return nil
		}
		t.Type = ir.TypeRaw
		if anyCipher(p, t.Operands()) {
			t.Type = ir.TypeCipher
		}
	case t.Op == ir.OpConstant:
		t.Type = ir.TypeRaw
	case t.Type == ir.TypeUndef:
		return ir.NewInconsistentError(t.ID, "input %q has no type", t.Name)
	}
	return nil
}

func anyCipher(p *ir.Program, ids []ir.TermID) bool {
	for _, id := range ids {
		if p.Term(id).Type == ir.TypeCipher {
			return true
		}
	}
	return false
}

func allCipher(p *ir.Program, ids []ir.TermID) bool {
	for _, id := range ids {
		if p.Term(id).Type != ir.TypeCipher {
			return false
		}
	}
	return true
}
