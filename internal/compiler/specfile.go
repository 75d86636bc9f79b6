package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ProgramField is the top-level CUE field holding the program struct.
const ProgramField = "program"

// LoadSpecFile reads a single CUE file and parses its program field.
func LoadSpecFile(path string) (*ProgramSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return SpecFromValue(v)
}

// SpecFromValue parses the program field of a CUE document.
func SpecFromValue(v cue.Value) (*ProgramSpec, error) {
	pv := v.LookupPath(cue.ParsePath(ProgramField))
	if !pv.Exists() {
		return nil, &CompileError{Field: ProgramField, Message: "no program field found", Pos: v.Pos()}
	}
	return CompileSpec(pv)
}
