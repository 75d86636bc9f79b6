package compiler

import "github.com/roach88/waterline/internal/ir"

// insertEncodes wraps the Raw operand of a binary Cipher/Raw operation in an
// Encode. Additions encode at the ciphertext's scale so the operands line up;
// other ops encode at the raw value's own scale.
func insertEncodes(p *ir.Program, t *ir.Term) error {
	if t.NumOperands() != 2 {
		return nil
	}
	left, right := p.Term(t.Operand(0)), p.Term(t.Operand(1))
	if left.Type == ir.TypeCipher && right.Type == ir.TypeRaw {
		wrapEncode(p, t, left, right)
	}
	// Re-read: the first rewrite may have replaced the left operand.
	left, right = p.Term(t.Operand(0)), p.Term(t.Operand(1))
	if right.Type == ir.TypeCipher && left.Type == ir.TypeRaw {
		wrapEncode(p, t, right, left)
	}
	return nil
}

func wrapEncode(p *ir.Program, user, cipher, raw *ir.Term) {
	enc := p.Term(p.NewOp(ir.OpEncode, raw.ID))
	enc.Type = ir.TypePlain
	if user.Op.IsAdditive() {
		enc.Scale = cipher.Scale
	} else {
		enc.Scale = raw.Scale
	}
	p.ReplaceOperand(user.ID, raw.ID, enc.ID)
}
