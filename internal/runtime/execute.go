package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
)

// Encrypted is a bundle of named values on the encrypted side: ciphertexts
// for encrypted values, plain vectors for raw ones.
type Encrypted struct {
	VecSize     int
	Ciphertexts map[string]*rlwe.Ciphertext
	Raw         map[string][]float64
}

// Names returns every value name, sorted.
func (e *Encrypted) Names() []string {
	names := slices.Collect(maps.Keys(e.Ciphertexts))
	names = append(names, slices.Collect(maps.Keys(e.Raw))...)
	slices.Sort(names)
	return names
}

// Encrypt encodes and encrypts inputs according to sig. Every signature input
// must be given with exactly VecSize values. Encrypted inputs are encoded at
// their signature scale and level; raw inputs are kept as plain vectors.
func (c *PublicContext) Encrypt(inputs eval.Valuation, sig ir.Signature) (*Encrypted, error) {
	if err := checkValuation(inputs, sig.InputNames(), sig.VecSize, "input"); err != nil {
		return nil, err
	}
	if slots := c.Slots(); sig.VecSize > slots {
		return nil, ir.NewValidationError("vec_size %d exceeds the %d available slots", sig.VecSize, slots)
	}

	out := &Encrypted{
		VecSize:     sig.VecSize,
		Ciphertexts: make(map[string]*rlwe.Ciphertext),
		Raw:         make(map[string][]float64),
	}
	for _, name := range sig.InputNames() {
		info := sig.Inputs[name]
		if info.Type != ir.TypeCipher {
			out.Raw[name] = slices.Clone(inputs[name])
			continue
		}
		pt, err := c.encode(inputs[name], info.Scale, info.Level)
		if err != nil {
			return nil, fmt.Errorf("encrypt %q: %w", name, err)
		}
		if out.Ciphertexts[name], err = c.enc.EncryptNew(pt); err != nil {
			return nil, fmt.Errorf("encrypt %q: %w", name, err)
		}
	}
	return out, nil
}

// encode replicates v across all slots and encodes it at 2^scale with
// dropped primes removed from the top of the chain.
func (c *PublicContext) encode(v []float64, scale, dropped int) (*rlwe.Plaintext, error) {
	level := c.ckks.MaxLevel() - dropped
	if level < 0 {
		return nil, ir.NewDepthOverflowError("encoding needs %d dropped primes but the chain has %d", dropped, c.ckks.MaxLevel()+1)
	}
	pt := ckks.NewPlaintext(c.ckks, level)
	pt.Scale = scaleOf(scale)
	if err := c.encoder.Encode(replicate(v, c.Slots()), pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// value is one term's result during execution: exactly one field is set.
type value struct {
	raw []float64
	pt  *rlwe.Plaintext
	ct  *rlwe.Ciphertext
}

// Execute runs a compiled program on encrypted inputs. Terms are evaluated
// in dependency order; ctx is checked between terms. After every rescale the
// ciphertext scale is reset to the compiled scale, since the primes divided
// by are only close to their nominal size.
func (c *PublicContext) Execute(ctx context.Context, p *ir.Program, in *Encrypted) (*Encrypted, error) {
	if p.VecSize() != in.VecSize {
		return nil, ir.NewValidationError("program vec_size %d does not match inputs %d", p.VecSize(), in.VecSize)
	}
	if got, want := in.Names(), p.InputNames(); !slices.Equal(got, want) {
		return nil, ir.NewValidationError("encrypted inputs %v do not match program inputs %v", got, want)
	}

	ev := c.eval.ShallowCopy()
	values := make(map[ir.TermID]value, p.Len())
	out := &Encrypted{
		VecSize:     in.VecSize,
		Ciphertexts: make(map[string]*rlwe.Ciphertext),
		Raw:         make(map[string][]float64),
	}

	for _, t := range p.TopoOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := c.step(ev, p, t, in, values)
		if err != nil {
			return nil, fmt.Errorf("execute %s: %w", ir.DumpTerm(t), err)
		}
		values[t.ID] = v
		if t.Op == ir.OpOutput {
			switch {
			case v.ct != nil:
				out.Ciphertexts[t.Name] = v.ct
			case v.raw != nil:
				out.Raw[t.Name] = v.raw
			default:
				return nil, ir.NewInconsistentError(t.ID, "output %q is an encoded plaintext", t.Name)
			}
		}
	}
	slog.Debug("executed program", "name", p.Name(), "terms", p.Len(), "outputs", len(out.Names()))
	return out, nil
}

func (c *PublicContext) step(ev *ckks.Evaluator, p *ir.Program, t *ir.Term, in *Encrypted, values map[ir.TermID]value) (value, error) {
	operand := func(i int) value { return values[t.Operand(i)] }

	switch t.Op {
	case ir.OpInput:
		if ct, ok := in.Ciphertexts[t.Name]; ok {
			return value{ct: ct}, nil
		}
		return value{raw: in.Raw[t.Name]}, nil
	case ir.OpConstant:
		raw, err := t.Value.Expand(p.VecSize())
		return value{raw: raw}, err
	case ir.OpOutput:
		return operand(0), nil
	case ir.OpEncode:
		src := operand(0)
		if src.raw == nil {
			return value{}, ir.NewInconsistentError(t.ID, "encode of a non-raw value")
		}
		pt, err := c.encode(src.raw, t.Scale, t.EncodeLevel)
		return value{pt: pt}, err
	}

	if t.Type == ir.TypeRaw {
		return rawStep(p, t, values)
	}

	switch t.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		a, b := operand(0), operand(1)
		if a.ct == nil {
			if t.Op == ir.OpSub {
				return value{}, ir.NewInconsistentError(t.ID, "subtraction from a plaintext was not lowered")
			}
			a, b = b, a
		}
		ct, err := binary(ev, t.Op, a.ct, b)
		return value{ct: ct}, err
	case ir.OpNegate:
		return value{ct: c.negate(operand(0).ct)}, nil
	case ir.OpRotateLeft:
		ct, err := ev.RotateNew(operand(0).ct, t.Rotation)
		return value{ct: ct}, err
	case ir.OpRotateRight:
		ct, err := ev.RotateNew(operand(0).ct, -t.Rotation)
		return value{ct: ct}, err
	case ir.OpRelinearize:
		ct, err := ev.RelinearizeNew(operand(0).ct)
		return value{ct: ct}, err
	case ir.OpRescale:
		ct := operand(0).ct.CopyNew()
		if err := ev.Rescale(ct, ct); err != nil {
			return value{}, err
		}
		ct.Scale = scaleOf(t.Scale)
		return value{ct: ct}, nil
	case ir.OpModSwitch:
		src := operand(0)
		if src.ct == nil {
			// Plaintexts are encoded at their final level already.
			return src, nil
		}
		ct := src.ct.CopyNew()
		ct.Resize(ct.Degree(), ct.Level()-1)
		return value{ct: ct}, nil
	}
	return value{}, ir.NewInconsistentError(t.ID, "cannot execute op %s", t.Op)
}

// binary applies op to a ciphertext and a ciphertext or plaintext operand.
func binary(ev *ckks.Evaluator, op ir.Op, a *rlwe.Ciphertext, b value) (*rlwe.Ciphertext, error) {
	if b.ct != nil {
		switch op {
		case ir.OpAdd:
			return ev.AddNew(a, b.ct)
		case ir.OpSub:
			return ev.SubNew(a, b.ct)
		}
		return ev.MulNew(a, b.ct)
	}
	if b.pt == nil {
		return nil, ir.NewInconsistentError(ir.NoTerm, "%s operand was not encoded", op)
	}
	switch op {
	case ir.OpAdd:
		return ev.AddNew(a, b.pt)
	case ir.OpSub:
		return ev.SubNew(a, b.pt)
	}
	return ev.MulNew(a, b.pt)
}

// negate returns -ct, computed coefficient-wise in the ring.
func (c *PublicContext) negate(ct *rlwe.Ciphertext) *rlwe.Ciphertext {
	out := ct.CopyNew()
	rq := c.ckks.RingQ().AtLevel(ct.Level())
	for i := range out.Value {
		rq.Neg(ct.Value[i], out.Value[i])
	}
	return out
}

// rawStep evaluates a term whose operands are all plain vectors.
func rawStep(p *ir.Program, t *ir.Term, values map[ir.TermID]value) (value, error) {
	n := p.VecSize()
	a := values[t.Operand(0)].raw
	out := make([]float64, n)
	switch t.Op {
	case ir.OpNegate:
		for i := range out {
			out[i] = -a[i]
		}
	case ir.OpRotateLeft:
		out = eval.RotateLeft(a, t.Rotation)
	case ir.OpRotateRight:
		out = eval.RotateLeft(a, -t.Rotation)
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		b := values[t.Operand(1)].raw
		for i := range out {
			switch t.Op {
			case ir.OpAdd:
				out[i] = a[i] + b[i]
			case ir.OpSub:
				out[i] = a[i] - b[i]
			default:
				out[i] = a[i] * b[i]
			}
		}
	default:
		return value{}, ir.NewInconsistentError(t.ID, "cannot execute raw op %s", t.Op)
	}
	return value{raw: out}, nil
}

// Decrypt decrypts and decodes the outputs named by sig, truncating each to
// the vector width.
func (c *SecretContext) Decrypt(in *Encrypted, sig ir.Signature) (eval.Valuation, error) {
	if got, want := in.Names(), sig.OutputNames(); !slices.Equal(got, want) {
		return nil, ir.NewValidationError("encrypted outputs %v do not match signature outputs %v", got, want)
	}
	out := make(eval.Valuation, len(sig.Outputs))
	slots := c.ckks.MaxSlots()
	for _, name := range sig.OutputNames() {
		if raw, ok := in.Raw[name]; ok {
			out[name] = slices.Clone(raw[:sig.VecSize])
			continue
		}
		pt := c.dec.DecryptNew(in.Ciphertexts[name])
		decoded := make([]float64, slots)
		if err := c.encoder.Decode(pt, decoded); err != nil {
			return nil, fmt.Errorf("decode %q: %w", name, err)
		}
		out[name] = decoded[:sig.VecSize]
	}
	return out, nil
}

func checkValuation(values eval.Valuation, names []string, vecSize int, kind string) error {
	if got := slices.Sorted(maps.Keys(values)); !slices.Equal(got, names) {
		return ir.NewValidationError("%s names %v do not match signature %v", kind, got, names)
	}
	for _, name := range names {
		if len(values[name]) != vecSize {
			return ir.NewValidationError("%s %q has %d values, expected %d", kind, name, len(values[name]), vecSize)
		}
	}
	return nil
}
