package compiler

import (
	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
)

// foldConstants replaces an operation whose operands are all constants by a
// dense constant holding its result. The new constant is encoded at the
// largest operand scale.
func foldConstants(p *ir.Program, t *ir.Term) error {
	if t.NumOperands() == 0 {
		return nil
	}
	args := make([][]float64, 0, t.NumOperands())
	scale := 0
	for _, id := range t.Operands() {
		o := p.Term(id)
		if o.Op != ir.OpConstant {
			return nil
		}
		v, err := o.Value.Expand(p.VecSize())
		if err != nil {
			return err
		}
		args = append(args, v)
		scale = max(scale, o.Scale)
	}

	var out []float64
	switch t.Op {
	case ir.OpOutput, ir.OpEncode:
		return nil
	case ir.OpRescale, ir.OpModSwitch, ir.OpRelinearize:
		return ir.NewInconsistentError(t.ID, "encountered %s in an unencrypted computation", t.Op)
	case ir.OpNegate:
		out = make([]float64, len(args[0]))
		for i, v := range args[0] {
			out[i] = -v
		}
	case ir.OpRotateLeft:
		out = eval.RotateLeft(args[0], t.Rotation)
	case ir.OpRotateRight:
		out = eval.RotateLeft(args[0], -t.Rotation)
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		out = append([]float64(nil), args[0]...)
		for _, b := range args[1:] {
			for i := range out {
				switch t.Op {
				case ir.OpAdd:
					out[i] += b[i]
				case ir.OpSub:
					out[i] -= b[i]
				case ir.OpMul:
					out[i] *= b[i]
				}
			}
		}
	default:
		return ir.NewInconsistentError(t.ID, "cannot fold op %s", t.Op)
	}

	c, err := ir.Dense(out)
	if err != nil {
		return err
	}
	folded := p.NewConstant(c)
	p.Term(folded).Scale = scale
	p.ReplaceUsesWith(t.ID, folded)
	return nil
}
