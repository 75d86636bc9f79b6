package ir

import (
	"fmt"
	"maps"
	"slices"
)

// Program is a named term graph over vectors of VecSize slots.
//
// Programs are not safe for concurrent mutation. A frozen program is
// read-only and may be shared between goroutines.
type Program struct {
	name    string
	vecSize int
	terms   []*Term
	inputs  map[string]TermID
	outputs map[string]TermID
	frozen  bool
}

// NewProgram creates an empty program. vecSize must be a power of two.
func NewProgram(name string, vecSize int) (*Program, error) {
	if !IsPowerOfTwo(vecSize) {
		return nil, NewDomainError("vector width must be a power of two, got %d", vecSize)
	}
	return &Program{
		name:    name,
		vecSize: vecSize,
		inputs:  make(map[string]TermID),
		outputs: make(map[string]TermID),
	}, nil
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// VecSize returns the vector width.
func (p *Program) VecSize() int { return p.vecSize }

// Term returns the term with the given ID, or nil if id is not in the arena.
func (p *Program) Term(id TermID) *Term {
	if !id.IsValid() || id.index() >= len(p.terms) {
		return nil
	}
	return p.terms[id.index()]
}

// Len returns the arena size including dead terms.
func (p *Program) Len() int {
	return len(p.terms)
}

// Terms returns the live terms in ID order.
func (p *Program) Terms() []*Term {
	out := make([]*Term, 0, len(p.terms))
	for _, t := range p.terms {
		if !t.dead {
			out = append(out, t)
		}
	}
	return out
}

// Freeze marks the program read-only. Rewrites on a frozen program panic.
func (p *Program) Freeze() { p.frozen = true }

// Frozen reports whether the program is read-only.
func (p *Program) Frozen() bool { return p.frozen }

func (p *Program) mustMutable() {
	if p.frozen {
		panic(fmt.Sprintf("ir: program %q is frozen", p.name))
	}
}

func (p *Program) newTerm(op Op, operands ...TermID) *Term {
	p.mustMutable()
	t := &Term{ID: TermID(len(p.terms) + 1), Op: op}
	p.terms = append(p.terms, t)
	for _, o := range operands {
		p.link(t, o)
	}
	return t
}

func (p *Program) link(user *Term, operand TermID) {
	ot := p.Term(operand)
	if ot == nil {
		panic(fmt.Sprintf("ir: operand %s does not exist", operand))
	}
	user.operands = append(user.operands, operand)
	ot.uses = append(ot.uses, user.ID)
}

// NewInput declares a named input of type TypeCipher (encrypted) or TypeRaw.
func (p *Program) NewInput(name string, typ Type) (TermID, error) {
	if typ != TypeCipher && typ != TypeRaw {
		return NoTerm, NewDomainError("input %q must be cipher or raw, got %s", name, typ)
	}
	if _, ok := p.inputs[name]; ok {
		return NoTerm, NewNameConflictError("input", name)
	}
	t := p.newTerm(OpInput)
	t.Name = name
	t.Type = typ
	p.inputs[name] = t.ID
	return t.ID, nil
}

// NewOutput declares a named output reading term.
func (p *Program) NewOutput(name string, term TermID) (TermID, error) {
	if _, ok := p.outputs[name]; ok {
		return NoTerm, NewNameConflictError("output", name)
	}
	if p.Term(term) == nil {
		return NoTerm, NewContextError("output %q refers to unknown term %s", name, term)
	}
	t := p.newTerm(OpOutput, term)
	t.Name = name
	p.outputs[name] = t.ID
	return t.ID, nil
}

// NewConstant adds a constant term.
func (p *Program) NewConstant(c *Constant) TermID {
	t := p.newTerm(OpConstant)
	t.Value = c
	t.Type = TypeRaw
	return t.ID
}

// NewOp adds a term computing op over operands.
// Sources and outputs have dedicated constructors.
func (p *Program) NewOp(op Op, operands ...TermID) TermID {
	switch op {
	case OpInput, OpOutput, OpConstant, OpUndef:
		panic(fmt.Sprintf("ir: NewOp cannot create %s terms", op))
	}
	return p.newTerm(op, operands...).ID
}

// NewRescale adds a Rescale of operand by a prime of divisor bits.
func (p *Program) NewRescale(operand TermID, divisor int) TermID {
	id := p.NewOp(OpRescale, operand)
	p.Term(id).Divisor = divisor
	return id
}

// Input returns the input term with the given name.
func (p *Program) Input(name string) (*Term, bool) {
	id, ok := p.inputs[name]
	if !ok {
		return nil, false
	}
	return p.Term(id), true
}

// Output returns the output term with the given name.
func (p *Program) Output(name string) (*Term, bool) {
	id, ok := p.outputs[name]
	if !ok {
		return nil, false
	}
	return p.Term(id), true
}

// InputNames returns input names in sorted order.
func (p *Program) InputNames() []string {
	return slices.Sorted(maps.Keys(p.inputs))
}

// OutputNames returns output names in sorted order.
func (p *Program) OutputNames() []string {
	return slices.Sorted(maps.Keys(p.outputs))
}

// Sources returns the live terms without operands in ID order.
func (p *Program) Sources() []*Term {
	var out []*Term
	for _, t := range p.terms {
		if !t.dead && t.IsSource() {
			out = append(out, t)
		}
	}
	return out
}

// Sinks returns the live terms without consumers in ID order.
func (p *Program) Sinks() []*Term {
	var out []*Term
	for _, t := range p.terms {
		if !t.dead && t.IsSink() {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep, mutable copy. Constant values are shared.
func (p *Program) Clone() *Program {
	c := &Program{
		name:    p.name,
		vecSize: p.vecSize,
		terms:   make([]*Term, len(p.terms)),
		inputs:  maps.Clone(p.inputs),
		outputs: maps.Clone(p.outputs),
	}
	for i, t := range p.terms {
		c.terms[i] = t.clone()
	}
	return c
}
