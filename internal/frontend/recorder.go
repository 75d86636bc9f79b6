// Package frontend records programs through an explicit recording context.
//
// A Recorder activates one Program at a time. Inside Record the callback
// receives a Scope through which inputs, constants, operations and outputs
// are added. Expressions are plain (scope, term) handles, so independent
// recorders can build programs concurrently without shared state.
package frontend

import (
	"log/slog"
	"sync"

	"github.com/roach88/waterline/internal/ir"
)

// Recorder owns the active-program slot for one recording session.
type Recorder struct {
	mu     sync.Mutex
	active *ir.Program
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Active returns the program currently being recorded, or nil.
func (r *Recorder) Active() *ir.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Record activates p, runs fn, and deactivates p on every exit path.
// A panic in fn is re-raised after deactivation. On success the program is
// frozen; a frozen program cannot be recorded into again.
func (r *Recorder) Record(p *ir.Program, fn func(*Scope) error) (err error) {
	if p == nil {
		return ir.NewContextError("cannot record into a nil program")
	}
	if p.Frozen() {
		return ir.NewContextError("program %q is frozen", p.Name())
	}

	r.mu.Lock()
	if r.active != nil {
		name := r.active.Name()
		r.mu.Unlock()
		return ir.NewContextError("program %q is already active, cannot activate %q", name, p.Name())
	}
	r.active = p
	r.mu.Unlock()

	s := &Scope{prog: p}
	defer func() {
		s.closed = true
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
	}()

	if err := fn(s); err != nil {
		return err
	}
	p.Collect()
	p.Freeze()
	slog.Debug("program recorded",
		"program", p.Name(),
		"vec_size", p.VecSize(),
		"terms", len(p.Terms()),
	)
	return nil
}

// Scope is the recording handle passed to a Record callback.
// It is invalid once Record returns.
type Scope struct {
	prog   *ir.Program
	closed bool

	// inputScale and outputRange are applied to sources and outputs created
	// after SetInputScales / SetOutputRanges.
	inputScale  int
	outputRange int
}

// Program returns the program being recorded.
func (s *Scope) Program() *ir.Program {
	return s.prog
}

// VecSize returns the program's vector width.
func (s *Scope) VecSize() int {
	return s.prog.VecSize()
}

func (s *Scope) check() error {
	if s == nil || s.closed {
		return ir.NewContextError("recording scope used outside Record")
	}
	return nil
}

// Input declares an input. Encrypted inputs are ciphertexts; others are raw vectors.
func (s *Scope) Input(name string, encrypted bool) (Expr, error) {
	if err := s.check(); err != nil {
		return Expr{}, err
	}
	typ := ir.TypeRaw
	if encrypted {
		typ = ir.TypeCipher
	}
	id, err := s.prog.NewInput(name, typ)
	if err != nil {
		return Expr{}, err
	}
	s.prog.Term(id).Scale = s.inputScale
	return Expr{scope: s, id: id}, nil
}

// Output declares a named output reading x. x may be an Expr or a literal.
func (s *Scope) Output(name string, x any) error {
	if err := s.check(); err != nil {
		return err
	}
	id, err := s.operand(x)
	if err != nil {
		return err
	}
	out, err := s.prog.NewOutput(name, id)
	if err != nil {
		return err
	}
	s.prog.Term(out).Range = s.outputRange
	return nil
}

// Const converts a literal (float64, int, []float64 or []int) into a constant expression.
func (s *Scope) Const(x any) (Expr, error) {
	if err := s.check(); err != nil {
		return Expr{}, err
	}
	if e, ok := x.(Expr); ok {
		return Expr{}, ir.NewDomainError("Const expects a literal, got expression %s", e.id)
	}
	id, err := s.operand(x)
	if err != nil {
		return Expr{}, err
	}
	return Expr{scope: s, id: id}, nil
}

// SetInputScales sets the encoding scale in bits of every source recorded so
// far (inputs and constants) and of every source recorded afterwards.
// The largest input scale is also the minimum scale of intermediate values.
func (s *Scope) SetInputScales(bits int) error {
	if err := s.check(); err != nil {
		return err
	}
	if bits <= 0 {
		return ir.NewDomainError("input scale must be positive, got %d", bits)
	}
	s.inputScale = bits
	for _, t := range s.prog.Sources() {
		t.Scale = bits
	}
	return nil
}

// SetInputScale overrides the encoding scale of one named input.
func (s *Scope) SetInputScale(name string, bits int) error {
	if err := s.check(); err != nil {
		return err
	}
	if bits <= 0 {
		return ir.NewDomainError("input scale must be positive, got %d", bits)
	}
	t, ok := s.prog.Input(name)
	if !ok {
		return ir.NewContextError("undeclared input %q", name)
	}
	t.Scale = bits
	return nil
}

// SetOutputRanges sets the value range in bits of every output, including
// outputs declared afterwards.
func (s *Scope) SetOutputRanges(bits int) error {
	if err := s.check(); err != nil {
		return err
	}
	if bits <= 0 {
		return ir.NewDomainError("output range must be positive, got %d", bits)
	}
	s.outputRange = bits
	for _, name := range s.prog.OutputNames() {
		t, _ := s.prog.Output(name)
		t.Range = bits
	}
	return nil
}

// SetOutputRange overrides the range of one named output.
func (s *Scope) SetOutputRange(name string, bits int) error {
	if err := s.check(); err != nil {
		return err
	}
	if bits <= 0 {
		return ir.NewDomainError("output range must be positive, got %d", bits)
	}
	t, ok := s.prog.Output(name)
	if !ok {
		return ir.NewContextError("undeclared output %q", name)
	}
	t.Range = bits
	return nil
}

// operand resolves x to a term of this scope's program, creating a constant
// for literals.
func (s *Scope) operand(x any) (ir.TermID, error) {
	var c *ir.Constant
	switch v := x.(type) {
	case Expr:
		if v.scope == nil {
			return ir.NoTerm, ir.NewContextError("zero Expr used as operand")
		}
		if v.scope.prog != s.prog {
			return ir.NoTerm, ir.NewContextError("expression %s belongs to program %q, not %q",
				v.id, v.scope.prog.Name(), s.prog.Name())
		}
		return v.id, nil
	case float64:
		dense, err := ir.Dense([]float64{v})
		if err != nil {
			return ir.NoTerm, err
		}
		c = dense
	case int:
		c = ir.Uniform(float64(v))
	case []float64:
		dense, err := ir.Dense(v)
		if err != nil {
			return ir.NoTerm, err
		}
		c = dense
	case []int:
		fs := make([]float64, len(v))
		for i, n := range v {
			fs[i] = float64(n)
		}
		dense, err := ir.Dense(fs)
		if err != nil {
			return ir.NoTerm, err
		}
		c = dense
	default:
		return ir.NoTerm, ir.NewDomainError("cannot convert %T to a program value", x)
	}
	if _, err := c.Expand(s.prog.VecSize()); err != nil {
		return ir.NoTerm, err
	}
	id := s.prog.NewConstant(c)
	s.prog.Term(id).Scale = s.inputScale
	return id, nil
}
