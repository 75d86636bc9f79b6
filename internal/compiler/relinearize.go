package compiler

import "github.com/roach88/waterline/internal/ir"

// relinearizer inserts Relinearize after ciphertext-ciphertext products.
//
// In lazy mode the relinearization is deferred through a chain of single uses
// for as long as no use is another encrypted product, a rotation or an
// output, since those need a two-component ciphertext.
type relinearizer struct {
	lazy    bool
	pending map[ir.TermID]bool
}

func newRelinearizer(lazy bool) *relinearizer {
	return &relinearizer{lazy: lazy, pending: make(map[ir.TermID]bool)}
}

func isEncryptedMul(p *ir.Program, t *ir.Term) bool {
	return t.Op == ir.OpMul && allCipher(p, t.Operands())
}

func (r *relinearizer) rewrite(p *ir.Program, t *ir.Term) error {
	if t.NumOperands() == 0 {
		return nil
	}
	if !r.lazy {
		if isEncryptedMul(p, t) {
			r.insert(p, t)
		}
		return nil
	}

	if isEncryptedMul(p, t) {
		r.pending[t.ID] = true
	} else if !r.pending[t.ID] {
		return nil
	}

	uses := t.Uses()
	if len(uses) == 0 {
		return nil
	}
	for _, id := range uses {
		u := p.Term(id)
		if isEncryptedMul(p, u) || u.Op.IsRotation() || u.Op == ir.OpOutput || id != uses[0] {
			r.insert(p, t)
			return nil
		}
	}
	for _, id := range uses {
		r.pending[id] = true
	}
	return nil
}

func (r *relinearizer) insert(p *ir.Program, t *ir.Term) {
	rl := p.Term(p.NewOp(ir.OpRelinearize, t.ID))
	rl.Type = t.Type
	rl.Scale = t.Scale
	p.ReplaceOtherUsesWith(t.ID, rl.ID)
}
