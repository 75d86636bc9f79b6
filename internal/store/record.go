package store

import (
	"context"
	"fmt"

	"github.com/roach88/waterline/internal/artifact"
	"github.com/roach88/waterline/internal/ir"
)

// RecordCompilation stores a source program and one compilation of it,
// returning the compilation record. Both writes are idempotent.
func (s *Store) RecordCompilation(
	ctx context.Context,
	source, compiled *ir.Program,
	params ir.Parameters,
	sig ir.Signature,
	config map[string]string,
) (Compilation, error) {
	programID, err := ir.ProgramID(source)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	compilationID, err := ir.CompilationID(programID, config)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}

	sourceData, err := artifact.SaveProgram(source)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	c := Compilation{
		ID:                compilationID,
		ProgramID:         programID,
		Config:            config,
		PrimeBits:         params.PrimeBits,
		PolyModulusDegree: params.PolyModulusDegree,
	}
	if c.Program, err = artifact.SaveProgram(compiled); err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	if c.Parameters, err = artifact.SaveParameters(params); err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	if c.Signature, err = artifact.SaveSignature(sig); err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}

	err = s.WriteProgram(ctx, Program{
		ID:       programID,
		Name:     source.Name(),
		VecSize:  source.VecSize(),
		Artifact: sourceData,
	})
	if err != nil {
		return Compilation{}, err
	}
	if err := s.WriteCompilation(ctx, c); err != nil {
		return Compilation{}, err
	}
	return c, nil
}
