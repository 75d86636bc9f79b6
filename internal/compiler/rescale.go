package compiler

import (
	"log/slog"
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// fixedRescale is the bit size of the primes the waterline policies divide by.
const fixedRescale = 60

// rescaler inserts Rescale terms so that ciphertext scales stay bounded.
//
// The waterline is the largest source scale. Products are rescaled by fixed
// 60-bit primes while they sit at least 60 bits above the waterline; the
// policies differ in when that happens. All policies assign Term.Scale to
// every term they visit and must run as a forward pass.
type rescaler struct {
	policy   Rescaler
	minScale int
	pending  map[ir.TermID]bool
}

func newRescaler(p *ir.Program, policy Rescaler) (*rescaler, error) {
	r := &rescaler{policy: policy, pending: make(map[ir.TermID]bool)}
	for _, src := range p.Sources() {
		r.minScale = max(r.minScale, src.Scale)
	}
	if r.minScale == 0 {
		return nil, ir.NewValidationError("program %q has no source with a scale", p.Name())
	}
	return r, nil
}

func (r *rescaler) rewrite(p *ir.Program, t *ir.Term) error {
	if t.NumOperands() == 0 {
		return nil
	}
	if t.Type == ir.TypeRaw {
		r.rawScale(p, t)
		return nil
	}
	if t.Op == ir.OpRescale {
		return nil
	}

	switch r.policy {
	case RescalerAlways:
		return r.always(p, t)
	case RescalerEagerWaterline:
		return r.eager(p, t)
	case RescalerLazyWaterline:
		return r.lazy(p, t)
	case RescalerMinimum:
		return r.minimum(p, t)
	}
	return ir.NewInconsistentError(t.ID, "unhandled rescaler %q", r.policy)
}

func (r *rescaler) always(p *ir.Program, t *ir.Term) error {
	if t.Op != ir.OpMul {
		t.Scale = p.Term(t.Operand(0)).Scale
		return nil
	}
	t.Scale = r.productScale(p, t)
	if by := t.Scale - r.minScale; by > 0 {
		r.insertRescale(p, t, by)
	}
	return nil
}

func (r *rescaler) eager(p *ir.Program, t *ir.Term) error {
	if t.Op != ir.OpMul {
		r.copyScale(p, t)
		return nil
	}
	t.Scale = r.productScale(p, t)
	r.rescaleToWaterline(p, t)
	return nil
}

func (r *rescaler) lazy(p *ir.Program, t *ir.Term) error {
	if t.Op == ir.OpMul {
		t.Scale = r.productScale(p, t)
		if t.Scale < fixedRescale+r.minScale {
			return nil
		}
		r.pending[t.ID] = true
	} else {
		r.copyScale(p, t)
		if !r.pending[t.ID] {
			return nil
		}
	}

	uses := t.Uses()
	if len(uses) == 0 {
		return nil
	}
	mustInsert := false
	for _, id := range uses {
		u := p.Term(id)
		if u.Op == ir.OpMul || u.Op == ir.OpOutput || id != uses[0] {
			mustInsert = true
			break
		}
	}
	if mustInsert {
		r.pending[t.ID] = false
		r.rescaleToWaterline(p, t)
		return nil
	}
	for _, id := range uses {
		r.pending[id] = true
	}
	return nil
}

func (r *rescaler) minimum(p *ir.Program, t *ir.Term) error {
	if t.Op != ir.OpMul {
		r.copyScale(p, t)
		return nil
	}
	if t.NumOperands() != 2 {
		return ir.NewInconsistentError(t.ID, "minimum rescaler expects binary multiplications, got %d operands", t.NumOperands())
	}
	a, b := p.Term(t.Operand(0)), p.Term(t.Operand(1))
	product := a.Scale + b.Scale
	t.Scale = product

	by := min(min(a.Scale, b.Scale)-r.minScale, fixedRescale)
	if 2*by >= fixedRescale {
		r.insertRescaleBetween(p, a, t, by)
		if a.ID != b.ID {
			r.insertRescaleBetween(p, b, t, by)
		}
		t.Scale = product - 2*by
		return nil
	}
	r.rescaleToWaterline(p, t)
	return nil
}

// copyScale gives a non-multiplicative op the scale of its first operand.
// Additions are scaled to their largest operand: any lower ciphertext operand
// is multiplied by a constant 1 encoded at the difference.
func (r *rescaler) copyScale(p *ir.Program, t *ir.Term) {
	t.Scale = p.Term(t.Operand(0)).Scale
	if !t.Op.IsAdditive() {
		return
	}
	target := t.Scale
	for _, id := range t.Operands() {
		target = max(target, p.Term(id).Scale)
	}
	t.Scale = target

	operands := t.Operands()
	slices.Sort(operands)
	for _, id := range slices.Compact(operands) {
		o := p.Term(id)
		if o.Scale >= target || o.Type == ir.TypeRaw {
			continue
		}
		slog.Debug("matching addition operand scale",
			"term", t.ID, "operand", id, "from", o.Scale, "to", target)
		one := p.NewConstant(ir.Uniform(1))
		p.Term(one).Scale = target - o.Scale
		mul := p.Term(p.NewOp(ir.OpMul, id, one))
		mul.Type = o.Type
		mul.Scale = target
		p.ReplaceOperand(t.ID, id, mul.ID)
	}
}

func (r *rescaler) rawScale(p *ir.Program, t *ir.Term) {
	s := 0
	for _, id := range t.Operands() {
		s = max(s, p.Term(id).Scale)
	}
	t.Scale = s
}

func (r *rescaler) productScale(p *ir.Program, t *ir.Term) int {
	s := 0
	for _, id := range t.Operands() {
		s += p.Term(id).Scale
	}
	return s
}

// rescaleToWaterline chains fixed rescales after t while its scale is at least
// one fixed rescale above the waterline.
func (r *rescaler) rescaleToWaterline(p *ir.Program, t *ir.Term) {
	tail := t
	for tail.Scale >= fixedRescale+r.minScale {
		tail = r.insertRescale(p, tail, fixedRescale)
	}
}

// insertRescale places a Rescale after t and moves t's other uses onto it.
func (r *rescaler) insertRescale(p *ir.Program, t *ir.Term, by int) *ir.Term {
	rs := p.Term(p.NewRescale(t.ID, by))
	rs.Type = t.Type
	rs.Scale = t.Scale - by
	p.ReplaceOtherUsesWith(t.ID, rs.ID)
	return rs
}

// insertRescaleBetween rescales operand only on its edge into user.
func (r *rescaler) insertRescaleBetween(p *ir.Program, operand, user *ir.Term, by int) {
	rs := p.Term(p.NewRescale(operand.ID, by))
	rs.Type = operand.Type
	rs.Scale = operand.Scale - by
	p.ReplaceOperand(user.ID, operand.ID, rs.ID)
}
