package compiler

import "github.com/roach88/waterline/internal/ir"

// rewriter is called once per term during a traversal. It may rewrite the
// graph around the term it is given.
type rewriter func(p *ir.Program, t *ir.Term) error

// traversal visits every live term of a program exactly once while the
// program is being rewritten.
//
// A forward pass visits a term only after all of its operands; a backward pass
// only after all of its uses. Ready terms are kept on a stack, so the order
// among independent terms is deterministic but not topological by ID.
//
// Rewrites must not enable terms that are not uses (forward) or operands
// (backward) of the current term, or parts of the graph may be skipped. Terms
// orphaned by a rewrite are collected when the pass finishes.
type traversal struct {
	p *ir.Program
}

func newTraversal(p *ir.Program) *traversal {
	return &traversal{p: p}
}

func (tr *traversal) forward(fn rewriter) error {
	return tr.run(fn, true)
}

func (tr *traversal) backward(fn rewriter) error {
	return tr.run(fn, false)
}

func (tr *traversal) run(fn rewriter, forward bool) error {
	p := tr.p
	p.Collect()

	ready := make(map[ir.TermID]bool)
	processed := make(map[ir.TermID]bool)

	leaves := func() []*ir.Term {
		if forward {
			return p.Sources()
		}
		return p.Sinks()
	}
	successors := func(t *ir.Term) []ir.TermID {
		if forward {
			return t.Uses()
		}
		return t.Operands()
	}
	predecessorsDone := func(t *ir.Term) bool {
		preds := t.Operands()
		if !forward {
			preds = t.Uses()
		}
		for _, id := range preds {
			if !processed[id] {
				return false
			}
		}
		return true
	}

	var stack []ir.TermID
	for _, t := range leaves() {
		stack = append(stack, t.ID)
		ready[t.ID] = true
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := p.Term(id)

		// Remember successors before the rewrite may detach them.
		check := successors(t)
		if err := fn(p, t); err != nil {
			return err
		}
		processed[id] = true

		for _, leaf := range leaves() {
			if !ready[leaf.ID] {
				stack = append(stack, leaf.ID)
				ready[leaf.ID] = true
			}
		}

		check = append(check, successors(t)...)
		for _, succ := range check {
			st := p.Term(succ)
			if !ready[succ] && predecessorsDone(st) {
				stack = append(stack, succ)
				ready[succ] = true
			}
		}
	}

	p.Collect()
	return nil
}
