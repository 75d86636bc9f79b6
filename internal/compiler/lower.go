package compiler

import "github.com/roach88/waterline/internal/ir"

// lowerSubtractions rewrites plaintext-minus-ciphertext as an addition of the
// negated ciphertext. The runtime only subtracts with a ciphertext on the left.
func lowerSubtractions(p *ir.Program, t *ir.Term) error {
	if t.Op != ir.OpSub || t.NumOperands() != 2 {
		return nil
	}
	left, right := p.Term(t.Operand(0)), p.Term(t.Operand(1))
	if left.Type == ir.TypeCipher || right.Type != ir.TypeCipher {
		return nil
	}
	neg := p.Term(p.NewOp(ir.OpNegate, right.ID))
	neg.Type, neg.Scale = right.Type, right.Scale
	add := p.Term(p.NewOp(ir.OpAdd, left.ID, neg.ID))
	add.Type, add.Scale = t.Type, t.Scale
	p.ReplaceUsesWith(t.ID, add.ID)
	return nil
}
