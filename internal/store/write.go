package store

import (
	"context"
	"fmt"
)

// WriteProgram inserts a program record.
// Uses ON CONFLICT(id) DO NOTHING: the id is a content hash, so a duplicate
// carries the same content.
func (s *Store) WriteProgram(ctx context.Context, p Program) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (id, name, vec_size, artifact)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Name, p.VecSize, p.Artifact)
	if err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// WriteCompilation inserts a compilation record. The program it refers to
// must already be stored.
func (s *Store) WriteCompilation(ctx context.Context, c Compilation) error {
	configJSON, err := marshalConfig(c.Config)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}
	primesJSON, err := marshalPrimeBits(c.PrimeBits)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compilations
		(id, program_id, config, prime_bits, poly_modulus_degree, program, parameters, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.ProgramID,
		configJSON,
		primesJSON,
		c.PolyModulusDegree,
		c.Program,
		c.Parameters,
		c.Signature,
	)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}
	return nil
}

// WriteRun inserts a run and stamps it with the next seq.
//
// Returns the stored run and whether it was new. Writing an id that already
// exists returns the earlier record unchanged.
func (s *Store) WriteRun(ctx context.Context, r Run) (stored Run, inserted bool, err error) {
	if r.ID == "" {
		return Run{}, false, fmt.Errorf("write run: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, false, fmt.Errorf("write run: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, compilation_id, mode, mse, tolerance, within, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.CompilationID, string(r.Mode), r.MSE, r.Tolerance, r.Within, seq)
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		row := tx.QueryRowContext(ctx, `
			SELECT id, compilation_id, mode, mse, tolerance, within, seq
			FROM runs WHERE id = ?
		`, r.ID)
		if stored, err = scanRun(row); err != nil {
			return Run{}, false, fmt.Errorf("write run: select existing: %w", err)
		}
	} else {
		stored = r
		stored.Seq = seq
		inserted = true
	}

	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("write run: commit: %w", err)
	}
	return stored, inserted, nil
}
