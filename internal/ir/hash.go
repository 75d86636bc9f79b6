package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainProgram     = "waterline/program/v1"
	DomainParameters  = "waterline/parameters/v1"
	DomainSignature   = "waterline/signature/v1"
	DomainCompilation = "waterline/compilation/v1"
	DomainArtifact    = "waterline/artifact/v1"
)

// HashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashValue canonicalizes v and hashes it under domain.
func HashValue(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return HashWithDomain(domain, canonical), nil
}

// ProgramID returns the content hash of a program's canonical form.
func ProgramID(p *Program) (string, error) {
	return HashValue(DomainProgram, p.ToValue())
}

// CompilationID identifies one compilation of a program under a configuration.
// config is the flattened option map, so equal settings hash equally.
func CompilationID(programID string, config map[string]string) (string, error) {
	cfg := make(Object, len(config))
	for k, v := range config {
		cfg[k] = Str(v)
	}
	return HashValue(DomainCompilation, Object{
		"program_id": Str(programID),
		"config":     cfg,
	})
}

// MustProgramID is like ProgramID but panics on error.
// Use only in tests or when the program is known to be well formed.
func MustProgramID(p *Program) string {
	id, err := ProgramID(p)
	if err != nil {
		panic(err)
	}
	return id
}
