// Package artifact is the serialization boundary for compiled programs and
// everything that travels with them.
//
// Every artifact is one canonical JSON envelope:
//
//	{"format_version":1,"kind":"program","payload":{...}}
//
// Envelopes are byte-stable: loading an artifact and saving it again yields
// the same bytes, so ContentID is a usable identity for the store.
package artifact

import (
	"fmt"

	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
)

// Kind names the payload of an envelope.
type Kind string

const (
	KindProgram       Kind = "program"
	KindParameters    Kind = "parameters"
	KindSignature     Kind = "signature"
	KindValues        Kind = "values"
	KindEncrypted     Kind = "encrypted"
	KindPublicContext Kind = "public_context"
	KindSecretContext Kind = "secret_context"
)

var knownKinds = map[Kind]bool{
	KindProgram:       true,
	KindParameters:    true,
	KindSignature:     true,
	KindValues:        true,
	KindEncrypted:     true,
	KindPublicContext: true,
	KindSecretContext: true,
}

// Envelope is a decoded artifact whose payload has not been interpreted.
type Envelope struct {
	Kind          Kind
	FormatVersion int
	Payload       ir.Object
}

// Marshal wraps payload in an envelope of the given kind.
func Marshal(kind Kind, payload ir.Object) ([]byte, error) {
	if !knownKinds[kind] {
		return nil, ir.NewValidationError("unknown artifact kind %q", kind)
	}
	data, err := ir.MarshalCanonical(ir.Object{
		"kind":           ir.Str(kind),
		"format_version": ir.Int(ir.FormatVersion),
		"payload":        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return data, nil
}

// Open decodes an envelope of any kind. Artifacts written by a newer format
// version are rejected.
func Open(data []byte) (Envelope, error) {
	obj, err := ir.UnmarshalObject(data)
	if err != nil {
		return Envelope{}, ir.NewValidationError("artifact is not a JSON object: %v", err)
	}
	kind, err := obj.Str("kind")
	if err != nil {
		return Envelope{}, ir.NewValidationError("artifact: %v", err)
	}
	if !knownKinds[Kind(kind)] {
		return Envelope{}, ir.NewValidationError("unknown artifact kind %q", kind)
	}
	version, err := obj.Int("format_version")
	if err != nil {
		return Envelope{}, ir.NewValidationError("artifact: %v", err)
	}
	if version < 1 || version > ir.FormatVersion {
		return Envelope{}, ir.NewValidationError(
			"%s artifact has format version %d; this build reads up to %d", kind, version, ir.FormatVersion)
	}
	payload, err := obj.Object("payload")
	if err != nil {
		return Envelope{}, ir.NewValidationError("artifact: %v", err)
	}
	return Envelope{Kind: Kind(kind), FormatVersion: version, Payload: payload}, nil
}

// Unmarshal decodes an envelope and checks that it holds want.
func Unmarshal(data []byte, want Kind) (ir.Object, error) {
	env, err := Open(data)
	if err != nil {
		return nil, err
	}
	if env.Kind != want {
		return nil, ir.NewValidationError("expected a %s artifact, got %s", want, env.Kind)
	}
	return env.Payload, nil
}

// ContentID is the domain-separated hash of an artifact's bytes.
func ContentID(kind Kind, data []byte) string {
	return ir.HashWithDomain(ir.DomainArtifact+"/"+string(kind), data)
}

// SaveProgram serializes a program.
func SaveProgram(p *ir.Program) ([]byte, error) {
	return Marshal(KindProgram, p.ToValue())
}

// LoadProgram deserializes a program. The result is frozen.
func LoadProgram(data []byte) (*ir.Program, error) {
	payload, err := Unmarshal(data, KindProgram)
	if err != nil {
		return nil, err
	}
	p, err := ir.ProgramFromValue(payload)
	if err != nil {
		return nil, ir.NewValidationError("program artifact: %v", err)
	}
	return p, nil
}

// SaveParameters serializes encryption parameters.
func SaveParameters(params ir.Parameters) ([]byte, error) {
	return Marshal(KindParameters, params.ToValue())
}

// LoadParameters deserializes encryption parameters.
func LoadParameters(data []byte) (ir.Parameters, error) {
	payload, err := Unmarshal(data, KindParameters)
	if err != nil {
		return ir.Parameters{}, err
	}
	params, err := ir.ParametersFromValue(payload)
	if err != nil {
		return ir.Parameters{}, ir.NewValidationError("parameters artifact: %v", err)
	}
	return params, nil
}

// SaveSignature serializes a program signature.
func SaveSignature(sig ir.Signature) ([]byte, error) {
	return Marshal(KindSignature, sig.ToValue())
}

// LoadSignature deserializes a program signature.
func LoadSignature(data []byte) (ir.Signature, error) {
	payload, err := Unmarshal(data, KindSignature)
	if err != nil {
		return ir.Signature{}, err
	}
	sig, err := ir.SignatureFromValue(payload)
	if err != nil {
		return ir.Signature{}, ir.NewValidationError("signature artifact: %v", err)
	}
	return sig, nil
}

// SaveValues serializes a plaintext valuation (program inputs or outputs).
func SaveValues(values eval.Valuation) ([]byte, error) {
	payload := make(ir.Object, len(values))
	for name, v := range values {
		payload[name] = ir.Floats(v)
	}
	return Marshal(KindValues, payload)
}

// LoadValues deserializes a plaintext valuation.
func LoadValues(data []byte) (eval.Valuation, error) {
	payload, err := Unmarshal(data, KindValues)
	if err != nil {
		return nil, err
	}
	values := make(eval.Valuation, len(payload))
	for _, name := range payload.SortedKeys() {
		if values[name], err = payload.Floats(name); err != nil {
			return nil, ir.NewValidationError("values artifact: %v", err)
		}
	}
	return values, nil
}
