package compiler

import (
	"maps"
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// combineReductions flattens chains of the same reduction op. An internal Add
// or Mul whose only use is the same op is spliced into that use:
//
//	a * (b * (c * d))  =>  a * b * c * d
//
// Run as a forward pass this reaches a fixed point in one traversal.
func combineReductions(p *ir.Program, t *ir.Term) error {
	if !t.IsInternal() || !t.Op.IsReduction() {
		return nil
	}
	uses := t.Uses()
	if len(uses) != 1 {
		return nil
	}
	use := p.Term(uses[0])
	if use.Op != t.Op {
		return nil
	}
	for p.EraseOperand(use.ID, t.ID) {
		for _, id := range t.Operands() {
			p.AddOperand(use.ID, id)
		}
	}
	return nil
}

// logExpander splits n-ary reductions into balanced binary trees.
//
// Operands are ordered by the scale they would have without any rescaling:
// plaintexts first, then ciphertexts by increasing scale. Terms at similar
// scales tend to end up at the same level, so pairing neighbours keeps the
// scale growth down. Adjacent operands are paired round by round until two
// remain, giving a tree of height ceil(log2 n).
type logExpander struct {
	scale map[ir.TermID]int
}

func newLogExpander() *logExpander {
	return &logExpander{scale: make(map[ir.TermID]int)}
}

func (e *logExpander) rewrite(p *ir.Program, t *ir.Term) error {
	if t.Op == ir.OpRescale || t.Op == ir.OpModSwitch {
		return ir.NewInconsistentError(t.ID,
			"reduction balancing estimates levels from scales and must run before rescaling, found %s", t.Op)
	}

	operands := t.Operands()
	switch {
	case len(operands) == 0:
		e.scale[t.ID] = t.Scale
	case t.Op == ir.OpMul:
		sum := 0
		for _, id := range operands {
			sum += e.scale[id]
		}
		e.scale[t.ID] = sum
	default:
		m := 0
		for _, id := range operands {
			m = max(m, e.scale[id])
		}
		e.scale[t.ID] = m
	}

	if !t.Op.IsReduction() || len(operands) <= 2 {
		return nil
	}

	buckets := make(map[int][]ir.TermID)
	for _, id := range operands {
		order := 0
		switch p.Term(id).Type {
		case ir.TypePlain, ir.TypeRaw:
			order = 1
		case ir.TypeCipher:
			order = 2 + e.scale[id]
		}
		buckets[order] = append(buckets[order], id)
	}
	sorted := make([]ir.TermID, 0, len(operands))
	for _, order := range slices.Sorted(maps.Keys(buckets)) {
		sorted = append(sorted, buckets[order]...)
	}

	for len(sorted) > 2 {
		next := make([]ir.TermID, 0, (len(sorted)+1)/2)
		i := 0
		for ; i+1 < len(sorted); i += 2 {
			pair := p.Term(p.NewOp(t.Op, sorted[i], sorted[i+1]))
			if err := deduceTypes(p, pair); err != nil {
				return err
			}
			next = append(next, pair.ID)
		}
		if i < len(sorted) {
			next = append(next, sorted[i])
		}
		sorted = next
	}
	p.SetOperands(t.ID, sorted...)
	return nil
}
