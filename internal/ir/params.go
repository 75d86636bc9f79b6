package ir

import (
	"fmt"
	"maps"
	"slices"
)

// Parameters is the encryption parameter set selected for a compiled program.
type Parameters struct {
	// PrimeBits lists the bit sizes of the modulus chain, ending with the special prime.
	PrimeBits []int

	// Rotations lists the rotation keys needed, ascending. Left rotations are
	// positive and right rotations negative.
	Rotations []int

	PolyModulusDegree int
	SecurityLevel     int
	QuantumSafe       bool
}

// DataPrimes is the number of primes available to ciphertexts (all but the special prime).
func (p Parameters) DataPrimes() int {
	if len(p.PrimeBits) == 0 {
		return 0
	}
	return len(p.PrimeBits) - 1
}

// TotalBits sums the prime sizes.
func (p Parameters) TotalBits() int {
	total := 0
	for _, b := range p.PrimeBits {
		total += b
	}
	return total
}

// ToValue converts the parameters to their canonical artifact form.
func (p Parameters) ToValue() Object {
	return Object{
		"prime_bits":          Ints(p.PrimeBits),
		"rotations":           Ints(p.Rotations),
		"poly_modulus_degree": Int(p.PolyModulusDegree),
		"security_level":      Int(p.SecurityLevel),
		"quantum_safe":        Bool(p.QuantumSafe),
	}
}

// ParametersFromValue is the inverse of Parameters.ToValue.
func ParametersFromValue(obj Object) (Parameters, error) {
	var p Parameters
	var err error
	if p.PrimeBits, err = obj.Ints("prime_bits"); err != nil {
		return Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	if p.Rotations, err = obj.Ints("rotations"); err != nil {
		return Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	if p.PolyModulusDegree, err = obj.Int("poly_modulus_degree"); err != nil {
		return Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	if p.SecurityLevel, err = obj.Int("security_level"); err != nil {
		return Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	if p.QuantumSafe, err = obj.Bool("quantum_safe"); err != nil {
		return Parameters{}, fmt.Errorf("parameters: %w", err)
	}
	if len(p.PrimeBits) < 2 {
		return Parameters{}, NewValidationError("parameters need at least two primes, got %d", len(p.PrimeBits))
	}
	if !IsPowerOfTwo(p.PolyModulusDegree) {
		return Parameters{}, NewValidationError("poly modulus degree %d is not a power of two", p.PolyModulusDegree)
	}
	return p, nil
}

// EncodingInfo describes how one input must be encoded.
type EncodingInfo struct {
	Type  Type
	Scale int
	// Level is the number of primes dropped before encoding.
	Level int
}

// OutputInfo describes the fixed-point format of one output.
type OutputInfo struct {
	Scale int
	Range int
}

// Signature is the interface a compiled program exposes to the runtime.
type Signature struct {
	VecSize int
	Inputs  map[string]EncodingInfo
	Outputs map[string]OutputInfo
}

// InputNames returns the input names in sorted order.
func (s Signature) InputNames() []string {
	return slices.Sorted(maps.Keys(s.Inputs))
}

// OutputNames returns the output names in sorted order.
func (s Signature) OutputNames() []string {
	return slices.Sorted(maps.Keys(s.Outputs))
}

// ToValue converts the signature to its canonical artifact form.
func (s Signature) ToValue() Object {
	inputs := make(Object, len(s.Inputs))
	for name, in := range s.Inputs {
		inputs[name] = Object{
			"type":  Str(in.Type.String()),
			"scale": Int(in.Scale),
			"level": Int(in.Level),
		}
	}
	outputs := make(Object, len(s.Outputs))
	for name, out := range s.Outputs {
		outputs[name] = Object{
			"scale": Int(out.Scale),
			"range": Int(out.Range),
		}
	}
	return Object{
		"vec_size": Int(s.VecSize),
		"inputs":   inputs,
		"outputs":  outputs,
	}
}

// SignatureFromValue is the inverse of Signature.ToValue.
func SignatureFromValue(obj Object) (Signature, error) {
	vecSize, err := obj.Int("vec_size")
	if err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}
	if !IsPowerOfTwo(vecSize) {
		return Signature{}, NewValidationError("signature vec_size %d is not a power of two", vecSize)
	}
	inputs, err := obj.Object("inputs")
	if err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}
	outputs, err := obj.Object("outputs")
	if err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}

	sig := Signature{
		VecSize: vecSize,
		Inputs:  make(map[string]EncodingInfo, len(inputs)),
		Outputs: make(map[string]OutputInfo, len(outputs)),
	}
	for _, name := range inputs.SortedKeys() {
		in, ok := inputs[name].(Object)
		if !ok {
			return Signature{}, NewValidationError("signature input %q is not an object", name)
		}
		typeName, err := in.Str("type")
		if err != nil {
			return Signature{}, fmt.Errorf("signature input %q: %w", name, err)
		}
		typ, err := ParseType(typeName)
		if err != nil {
			return Signature{}, NewValidationError("signature input %q: %v", name, err)
		}
		info := EncodingInfo{Type: typ}
		if info.Scale, err = in.Int("scale"); err != nil {
			return Signature{}, fmt.Errorf("signature input %q: %w", name, err)
		}
		if info.Level, err = in.Int("level"); err != nil {
			return Signature{}, fmt.Errorf("signature input %q: %w", name, err)
		}
		sig.Inputs[name] = info
	}
	for _, name := range outputs.SortedKeys() {
		out, ok := outputs[name].(Object)
		if !ok {
			return Signature{}, NewValidationError("signature output %q is not an object", name)
		}
		var info OutputInfo
		if info.Scale, err = out.Int("scale"); err != nil {
			return Signature{}, fmt.Errorf("signature output %q: %w", name, err)
		}
		if info.Range, err = out.Int("range"); err != nil {
			return Signature{}, fmt.Errorf("signature output %q: %w", name, err)
		}
		sig.Outputs[name] = info
	}
	return sig, nil
}
