package ir

import (
	"fmt"
	"slices"
)

// AddOperand appends operand to user's operand list.
func (p *Program) AddOperand(user, operand TermID) {
	p.mustMutable()
	p.link(p.mustTerm(user), operand)
}

// EraseOperand removes the first occurrence of operand from user.
// It reports whether an occurrence was found.
func (p *Program) EraseOperand(user, operand TermID) bool {
	p.mustMutable()
	u := p.mustTerm(user)
	var ok bool
	u.operands, ok = removeOne(u.operands, operand)
	if !ok {
		return false
	}
	o := p.mustTerm(operand)
	o.uses, _ = removeOne(o.uses, user)
	return true
}

// ReplaceOperand redirects every occurrence of old in user's operands to repl.
func (p *Program) ReplaceOperand(user, old, repl TermID) {
	p.mustMutable()
	if old == repl {
		return
	}
	u := p.mustTerm(user)
	o := p.mustTerm(old)
	r := p.mustTerm(repl)
	for i, id := range u.operands {
		if id != old {
			continue
		}
		u.operands[i] = repl
		o.uses, _ = removeOne(o.uses, user)
		r.uses = append(r.uses, user)
	}
}

// SetOperands replaces user's whole operand list.
func (p *Program) SetOperands(user TermID, operands ...TermID) {
	p.mustMutable()
	u := p.mustTerm(user)
	for _, id := range u.operands {
		o := p.mustTerm(id)
		o.uses, _ = removeOne(o.uses, user)
	}
	u.operands = nil
	for _, id := range operands {
		p.link(u, id)
	}
}

// ReplaceUsesWith makes every consumer of term read repl instead.
func (p *Program) ReplaceUsesWith(term, repl TermID) {
	for _, user := range p.distinctUses(term) {
		p.ReplaceOperand(user, term, repl)
	}
}

// ReplaceOtherUsesWith makes every consumer of term except repl itself read
// repl instead. It is how a term is wrapped: create repl over term, then
// move the remaining consumers onto repl.
func (p *Program) ReplaceOtherUsesWith(term, repl TermID) {
	for _, user := range p.distinctUses(term) {
		if user != repl {
			p.ReplaceOperand(user, term, repl)
		}
	}
}

func (p *Program) distinctUses(id TermID) []TermID {
	uses := slices.Clone(p.mustTerm(id).uses)
	slices.Sort(uses)
	return slices.Compact(uses)
}

func (p *Program) mustTerm(id TermID) *Term {
	t := p.Term(id)
	if t == nil {
		panic(fmt.Sprintf("ir: term %s does not exist", id))
	}
	return t
}

// Collect marks every term that no output depends on as dead and detaches it
// from the graph. Inputs are always kept. It returns the number of terms
// collected by this call.
func (p *Program) Collect() int {
	p.mustMutable()
	live := make([]bool, len(p.terms))
	var stack []TermID
	for _, id := range p.outputs {
		stack = append(stack, id)
	}
	for _, id := range p.inputs {
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[id.index()] {
			continue
		}
		live[id.index()] = true
		stack = append(stack, p.terms[id.index()].operands...)
	}

	collected := 0
	for i, t := range p.terms {
		if live[i] || t.dead {
			continue
		}
		for _, id := range t.operands {
			o := p.terms[id.index()]
			o.uses, _ = removeOne(o.uses, t.ID)
		}
		t.operands = nil
		t.dead = true
		collected++
	}
	for _, t := range p.terms {
		if t.dead {
			t.uses = nil
		}
	}
	return collected
}
