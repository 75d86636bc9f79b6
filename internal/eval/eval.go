// Package eval executes programs on plaintext vectors.
//
// The reference evaluator is the ground truth that compiled and encrypted
// results are checked against. Compiler-inserted ops (rescale, mod switch,
// relinearize, encode) do not change values and are evaluated as identity.
package eval

import (
	"fmt"
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// Valuation maps names to vectors.
type Valuation map[string][]float64

// Evaluate runs p on inputs and returns its outputs. Every declared input
// must be present with exactly VecSize values and no others may be given.
func Evaluate(p *ir.Program, inputs Valuation) (Valuation, error) {
	n := p.VecSize()
	if err := checkInputs(p, inputs); err != nil {
		return nil, err
	}

	values := make(map[ir.TermID][]float64, p.Len())
	outputs := make(Valuation, len(p.OutputNames()))

	for _, t := range p.TopoOrder() {
		var out []float64
		switch t.Op {
		case ir.OpInput:
			out = slices.Clone(inputs[t.Name])
		case ir.OpConstant:
			expanded, err := t.Value.Expand(n)
			if err != nil {
				return nil, fmt.Errorf("evaluate %s: %w", t.ID, err)
			}
			out = expanded
		case ir.OpOutput, ir.OpRescale, ir.OpModSwitch, ir.OpRelinearize, ir.OpEncode:
			out = values[t.Operand(0)]
		case ir.OpNegate:
			a := values[t.Operand(0)]
			out = make([]float64, n)
			for i := range out {
				out[i] = -a[i]
			}
		case ir.OpAdd, ir.OpSub, ir.OpMul:
			var err error
			if out, err = foldBinary(t, values, n); err != nil {
				return nil, err
			}
		case ir.OpRotateLeft:
			out = RotateLeft(values[t.Operand(0)], t.Rotation)
		case ir.OpRotateRight:
			out = RotateLeft(values[t.Operand(0)], -t.Rotation)
		default:
			return nil, ir.NewInconsistentError(t.ID, "cannot evaluate op %s", t.Op)
		}
		values[t.ID] = out
		if t.Op == ir.OpOutput {
			outputs[t.Name] = slices.Clone(out)
		}
	}
	return outputs, nil
}

// foldBinary applies an Add, Sub or Mul across all operands left to right,
// so n-ary reductions produced mid-balancing evaluate too.
func foldBinary(t *ir.Term, values map[ir.TermID][]float64, n int) ([]float64, error) {
	if t.NumOperands() < 2 {
		return nil, ir.NewInconsistentError(t.ID, "%s needs at least two operands, has %d", t.Op, t.NumOperands())
	}
	out := slices.Clone(values[t.Operand(0)])
	for _, id := range t.Operands()[1:] {
		b := values[id]
		for i := 0; i < n; i++ {
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
	return out, nil
}

// RotateLeft returns v rotated cyclically so that out[i] = v[(i+k) mod len(v)].
// Negative k rotates right.
func RotateLeft(v []float64, k int) []float64 {
	n := len(v)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	k = ((k % n) + n) % n
	for i := range out {
		out[i] = v[(i+k)%n]
	}
	return out
}

func checkInputs(p *ir.Program, inputs Valuation) error {
	for _, name := range p.InputNames() {
		v, ok := inputs[name]
		if !ok {
			return ir.NewValidationError("missing value for input %q", name)
		}
		if len(v) != p.VecSize() {
			return ir.NewValidationError("input %q has %d values, expected %d", name, len(v), p.VecSize())
		}
	}
	for name := range inputs {
		if _, ok := p.Input(name); !ok {
			return ir.NewValidationError("unknown input %q", name)
		}
	}
	return nil
}
