package runtime

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/ir"
)

// SavePublicContext serializes the parameters, public key and evaluation keys.
func SavePublicContext(c *PublicContext) ([]byte, error) {
	pk, err := artifact.MarshalBlob(c.pk)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	evk, err := artifact.MarshalBlob(c.evk)
	if err != nil {
		return nil, fmt.Errorf("evaluation keys: %w", err)
	}
	return artifact.Marshal(artifact.KindPublicContext, ir.Object{
		"parameters":      c.params.ToValue(),
		"public_key":      pk,
		"evaluation_keys": evk,
	})
}

// LoadPublicContext is the inverse of SavePublicContext.
func LoadPublicContext(data []byte) (*PublicContext, error) {
	payload, err := artifact.Unmarshal(data, artifact.KindPublicContext)
	if err != nil {
		return nil, err
	}
	params, cp, err := loadParameters(payload)
	if err != nil {
		return nil, err
	}

	pk := rlwe.NewPublicKey(cp)
	if err := unmarshalBlobField(payload, "public_key", pk); err != nil {
		return nil, err
	}
	evk := new(rlwe.MemEvaluationKeySet)
	if err := unmarshalBlobField(payload, "evaluation_keys", evk); err != nil {
		return nil, err
	}
	return newPublicContext(params, cp, pk, evk), nil
}

// SaveSecretContext serializes the parameters and the secret key.
func SaveSecretContext(c *SecretContext) ([]byte, error) {
	sk, err := artifact.MarshalBlob(c.sk)
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	return artifact.Marshal(artifact.KindSecretContext, ir.Object{
		"parameters": c.params.ToValue(),
		"secret_key": sk,
	})
}

// LoadSecretContext is the inverse of SaveSecretContext.
func LoadSecretContext(data []byte) (*SecretContext, error) {
	payload, err := artifact.Unmarshal(data, artifact.KindSecretContext)
	if err != nil {
		return nil, err
	}
	params, cp, err := loadParameters(payload)
	if err != nil {
		return nil, err
	}
	sk := rlwe.NewSecretKey(cp)
	if err := unmarshalBlobField(payload, "secret_key", sk); err != nil {
		return nil, err
	}
	return newSecretContext(params, cp, sk), nil
}

// SaveEncrypted serializes an encrypted bundle.
func SaveEncrypted(e *Encrypted) ([]byte, error) {
	cts := make(ir.Object, len(e.Ciphertexts))
	for name, ct := range e.Ciphertexts {
		blob, err := artifact.MarshalBlob(ct)
		if err != nil {
			return nil, fmt.Errorf("ciphertext %q: %w", name, err)
		}
		cts[name] = blob
	}
	raw := make(ir.Object, len(e.Raw))
	for name, v := range e.Raw {
		raw[name] = ir.Floats(v)
	}
	return artifact.Marshal(artifact.KindEncrypted, ir.Object{
		"vec_size":    ir.Int(e.VecSize),
		"ciphertexts": cts,
		"raw":         raw,
	})
}

// LoadEncrypted is the inverse of SaveEncrypted.
func LoadEncrypted(data []byte) (*Encrypted, error) {
	payload, err := artifact.Unmarshal(data, artifact.KindEncrypted)
	if err != nil {
		return nil, err
	}
	e := &Encrypted{
		Ciphertexts: make(map[string]*rlwe.Ciphertext),
		Raw:         make(map[string][]float64),
	}
	if e.VecSize, err = payload.Int("vec_size"); err != nil {
		return nil, ir.NewValidationError("encrypted bundle: %v", err)
	}
	cts, err := payload.Object("ciphertexts")
	if err != nil {
		return nil, ir.NewValidationError("encrypted bundle: %v", err)
	}
	for _, name := range cts.SortedKeys() {
		ct := new(rlwe.Ciphertext)
		if err := unmarshalBlobField(cts, name, ct); err != nil {
			return nil, err
		}
		e.Ciphertexts[name] = ct
	}
	raw, err := payload.Object("raw")
	if err != nil {
		return nil, ir.NewValidationError("encrypted bundle: %v", err)
	}
	for _, name := range raw.SortedKeys() {
		if e.Raw[name], err = raw.Floats(name); err != nil {
			return nil, ir.NewValidationError("encrypted bundle: %v", err)
		}
	}
	return e, nil
}

func loadParameters(payload ir.Object) (ir.Parameters, ckks.Parameters, error) {
	obj, err := payload.Object("parameters")
	if err != nil {
		return ir.Parameters{}, ckks.Parameters{}, ir.NewValidationError("context: %v", err)
	}
	params, err := ir.ParametersFromValue(obj)
	if err != nil {
		return ir.Parameters{}, ckks.Parameters{}, ir.NewValidationError("context: %v", err)
	}
	cp, err := ckksParameters(params)
	if err != nil {
		return ir.Parameters{}, ckks.Parameters{}, err
	}
	return params, cp, nil
}

func unmarshalBlobField(obj ir.Object, key string, v interface{ UnmarshalBinary([]byte) error }) error {
	blob, err := obj.Object(key)
	if err != nil {
		return ir.NewValidationError("%s: %v", key, err)
	}
	if err := artifact.UnmarshalBlob(blob, v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
