package store

import (
	"context"
	"database/sql"
	"fmt"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadProgram returns a program by id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadProgram(ctx context.Context, id string) (Program, error) {
	var p Program
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, vec_size, artifact FROM programs WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.VecSize, &p.Artifact)
	if err != nil {
		return Program{}, fmt.Errorf("read program %s: %w", id, err)
	}
	return p, nil
}

// ReadCompilation returns a compilation by id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadCompilation(ctx context.Context, id string) (Compilation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program_id, config, prime_bits, poly_modulus_degree, program, parameters, signature
		FROM compilations WHERE id = ?
	`, id)
	c, err := scanCompilation(row)
	if err != nil {
		return Compilation{}, fmt.Errorf("read compilation %s: %w", id, err)
	}
	return c, nil
}

// ListCompilations returns every compilation of a program, ordered by id.
func (s *Store) ListCompilations(ctx context.Context, programID string) ([]Compilation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_id, config, prime_bits, poly_modulus_degree, program, parameters, signature
		FROM compilations
		WHERE program_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, programID)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	compilations := []Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		compilations = append(compilations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}
	return compilations, nil
}

// ReadRun returns a run by id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, compilation_id, mode, mse, tolerance, within, seq
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the runs of one compilation, or of every compilation
// when compilationID is empty. Results are ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, compilationID string) ([]Run, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if compilationID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, compilation_id, mode, mse, tolerance, within, seq
			FROM runs
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, compilation_id, mode, mse, tolerance, within, seq
			FROM runs
			WHERE compilation_id = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, compilationID)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanCompilation(row scanner) (Compilation, error) {
	var (
		c          Compilation
		configJSON string
		primesJSON string
	)
	err := row.Scan(
		&c.ID,
		&c.ProgramID,
		&configJSON,
		&primesJSON,
		&c.PolyModulusDegree,
		&c.Program,
		&c.Parameters,
		&c.Signature,
	)
	if err != nil {
		return Compilation{}, fmt.Errorf("scan compilation: %w", err)
	}
	if c.Config, err = unmarshalConfig(configJSON); err != nil {
		return Compilation{}, err
	}
	if c.PrimeBits, err = unmarshalPrimeBits(primesJSON); err != nil {
		return Compilation{}, err
	}
	return c, nil
}

func scanRun(row scanner) (Run, error) {
	var (
		r    Run
		mode string
	)
	if err := row.Scan(&r.ID, &r.CompilationID, &mode, &r.MSE, &r.Tolerance, &r.Within, &r.Seq); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Mode = RunMode(mode)
	return r, nil
}
