// Package runtime executes compiled programs under CKKS encryption.
//
// It is the encryption collaborator of the compiler: GenerateKeys turns the
// selected parameters into a key pair, PublicContext encrypts inputs and runs
// compiled programs, and SecretContext decrypts the results. The scheme
// itself is Lattigo's CKKS; this package only maps compiled terms onto it.
package runtime

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/roach88/waterline/internal/ir"
)

// PublicContext holds everything needed to encrypt and evaluate: the
// parameters, the public key and the evaluation keys.
type PublicContext struct {
	params  ir.Parameters
	ckks    ckks.Parameters
	pk      *rlwe.PublicKey
	evk     *rlwe.MemEvaluationKeySet
	encoder *ckks.Encoder
	enc     *rlwe.Encryptor
	eval    *ckks.Evaluator
}

// SecretContext holds the secret key. It can only decrypt.
type SecretContext struct {
	params  ir.Parameters
	ckks    ckks.Parameters
	sk      *rlwe.SecretKey
	encoder *ckks.Encoder
	dec     *rlwe.Decryptor
}

// Parameters returns the parameters the context was generated for.
func (c *PublicContext) Parameters() ir.Parameters { return c.params }

// Parameters returns the parameters the context was generated for.
func (c *SecretContext) Parameters() ir.Parameters { return c.params }

// Slots is the number of complex slots of a ciphertext.
func (c *PublicContext) Slots() int { return c.ckks.MaxSlots() }

// ckksParameters builds Lattigo parameters from a compiled modulus chain.
// All primes but the last form Q; the last is the special prime P.
func ckksParameters(params ir.Parameters) (ckks.Parameters, error) {
	n := len(params.PrimeBits)
	if n < 2 {
		return ckks.Parameters{}, ir.NewValidationError("modulus chain needs at least two primes, got %d", n)
	}
	if !ir.IsPowerOfTwo(params.PolyModulusDegree) {
		return ckks.Parameters{}, ir.NewValidationError("poly_modulus_degree %d is not a power of two", params.PolyModulusDegree)
	}
	literal := ckks.ParametersLiteral{
		LogN:            bits.TrailingZeros(uint(params.PolyModulusDegree)),
		LogQ:            params.PrimeBits[:n-1],
		LogP:            params.PrimeBits[n-1:],
		LogDefaultScale: params.PrimeBits[n-1],
	}
	p, err := ckks.NewParametersFromLiteral(literal)
	if err != nil {
		return ckks.Parameters{}, fmt.Errorf("ckks parameters: %w", err)
	}
	return p, nil
}

// GenerateKeys creates a fresh key pair for params, with a Galois key for
// every rotation the compiled program uses.
func GenerateKeys(params ir.Parameters) (*PublicContext, *SecretContext, error) {
	cp, err := ckksParameters(params)
	if err != nil {
		return nil, nil, err
	}

	kgen := rlwe.NewKeyGenerator(cp)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)

	galois := make([]*rlwe.GaloisKey, 0, len(params.Rotations))
	for _, k := range params.Rotations {
		galois = append(galois, kgen.GenGaloisKeyNew(cp.GaloisElement(k), sk))
	}
	evk := rlwe.NewMemEvaluationKeySet(rlk, galois...)

	slog.Info("generated keys",
		"log_n", cp.LogN(),
		"levels", cp.MaxLevel()+1,
		"rotations", len(galois))

	pub := newPublicContext(params, cp, pk, evk)
	sec := newSecretContext(params, cp, sk)
	return pub, sec, nil
}

func newPublicContext(params ir.Parameters, cp ckks.Parameters, pk *rlwe.PublicKey, evk *rlwe.MemEvaluationKeySet) *PublicContext {
	return &PublicContext{
		params:  params,
		ckks:    cp,
		pk:      pk,
		evk:     evk,
		encoder: ckks.NewEncoder(cp),
		enc:     rlwe.NewEncryptor(cp, pk),
		eval:    ckks.NewEvaluator(cp, evk),
	}
}

func newSecretContext(params ir.Parameters, cp ckks.Parameters, sk *rlwe.SecretKey) *SecretContext {
	return &SecretContext{
		params:  params,
		ckks:    cp,
		sk:      sk,
		encoder: ckks.NewEncoder(cp),
		dec:     rlwe.NewDecryptor(cp, sk),
	}
}

// scaleOf converts a scale in bits to a Lattigo scale.
func scaleOf(bits int) rlwe.Scale {
	return rlwe.NewScale(math.Exp2(float64(bits)))
}

// replicate repeats v until it fills slots values.
func replicate(v []float64, slots int) []float64 {
	out := make([]float64, slots)
	for i := range out {
		out[i] = v[i%len(v)]
	}
	return out
}
