package ir

import "maps"

// TopoOrder returns the live terms reachable from inputs and outputs so that
// every term follows its operands. Inputs come first in name order, then the
// dependency closure of each output in output-name order.
func (p *Program) TopoOrder() []*Term {
	var order []*Term
	visited := make([]bool, len(p.terms))

	type frame struct {
		id   TermID
		next int
	}
	visit := func(root TermID) {
		if visited[root.index()] {
			return
		}
		visited[root.index()] = true
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			t := p.terms[top.id.index()]
			if top.next < len(t.operands) {
				child := t.operands[top.next]
				top.next++
				if !visited[child.index()] {
					visited[child.index()] = true
					stack = append(stack, frame{id: child})
				}
				continue
			}
			order = append(order, t)
			stack = stack[:len(stack)-1]
		}
	}

	for _, name := range p.InputNames() {
		visit(p.inputs[name])
	}
	for _, name := range p.OutputNames() {
		visit(p.outputs[name])
	}
	return order
}

// Compact returns a copy holding only the terms in TopoOrder, renumbered
// densely from 1 in that order. Compacted programs with the same structure
// dump and serialize identically regardless of rewrite history.
func (p *Program) Compact() *Program {
	order := p.TopoOrder()
	remap := make(map[TermID]TermID, len(order))
	for i, t := range order {
		remap[t.ID] = TermID(i + 1)
	}

	c := &Program{
		name:    p.name,
		vecSize: p.vecSize,
		terms:   make([]*Term, len(order)),
		inputs:  make(map[string]TermID, len(p.inputs)),
		outputs: make(map[string]TermID, len(p.outputs)),
	}
	for i, t := range order {
		nt := t.clone()
		nt.ID = TermID(i + 1)
		for j, id := range nt.operands {
			nt.operands[j] = remap[id]
		}
		nt.uses = nt.uses[:0]
		c.terms[i] = nt
	}
	// Rebuild uses from operands so consumers outside the order are dropped.
	for _, t := range c.terms {
		for _, id := range t.operands {
			o := c.terms[id.index()]
			o.uses = append(o.uses, t.ID)
		}
	}
	for name, id := range maps.All(p.inputs) {
		c.inputs[name] = remap[id]
	}
	for name, id := range maps.All(p.outputs) {
		c.outputs[name] = remap[id]
	}
	return c
}
