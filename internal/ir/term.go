package ir

import "slices"

// Term is one node of the program graph.
//
// Attribute fields are exported and written directly by compiler passes.
// Edges (operands and uses) are private: they may only change through the
// Program rewrite methods, which keep both directions consistent.
type Term struct {
	ID   TermID
	Op   Op
	Type Type

	// Scale is the fixed-point scale in bits. For inputs, constants and
	// encodes it is the scale the value is encoded at.
	Scale int

	// Level is the number of data primes still available to the value.
	Level int

	// Rotation is the slot rotation amount for rotate ops.
	Rotation int

	// Divisor is the bit size of the prime a Rescale divides by.
	Divisor int

	// EncodeLevel is the number of primes already dropped when a source or
	// Encode is materialized.
	EncodeLevel int

	// Range is the bit range of an output's values.
	Range int

	// Name is set on inputs and outputs.
	Name string

	// Value is set on constants.
	Value *Constant

	operands []TermID
	uses     []TermID
	dead     bool
}

// Operands returns a copy of the term's operands in order.
func (t *Term) Operands() []TermID {
	return slices.Clone(t.operands)
}

// Operand returns the i-th operand.
func (t *Term) Operand(i int) TermID {
	return t.operands[i]
}

// NumOperands returns the operand count.
func (t *Term) NumOperands() int {
	return len(t.operands)
}

// Uses returns a copy of the term's consumers. A consumer that reads the
// term twice appears twice.
func (t *Term) Uses() []TermID {
	return slices.Clone(t.uses)
}

// NumUses returns the consumer count, counting repeats.
func (t *Term) NumUses() int {
	return len(t.uses)
}

// IsSource reports whether the term has no operands.
func (t *Term) IsSource() bool {
	return len(t.operands) == 0
}

// IsSink reports whether the term has no consumers.
func (t *Term) IsSink() bool {
	return len(t.uses) == 0
}

// IsInternal reports whether the term has both operands and consumers.
func (t *Term) IsInternal() bool {
	return len(t.operands) > 0 && len(t.uses) > 0
}

// IsEncrypted reports whether the term is an encrypted input.
func (t *Term) IsEncrypted() bool {
	return t.Op == OpInput && t.Type == TypeCipher
}

// Dead reports whether Collect has removed the term from the graph.
func (t *Term) Dead() bool {
	return t.dead
}

func (t *Term) clone() *Term {
	c := *t
	c.operands = slices.Clone(t.operands)
	c.uses = slices.Clone(t.uses)
	return &c
}

// removeOne deletes the first occurrence of id from list.
func removeOne(list []TermID, id TermID) ([]TermID, bool) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}
