package compiler

import (
	"maps"
	"slices"

	"github.com/roach88/waterline/internal/ir"
)

// modSwitcher equalizes the levels seen by each operation. It must run as a
// backward pass.
//
// Levels here are counted from the outputs: an output sits at 0 and each
// Rescale below a term adds one. When a term's uses sit at different levels,
// the term feeds the deepest use directly and a chain of ModSwitch terms
// brings it down to each shallower one.
//
// When the pass finishes, finish records on every source and Encode how many
// primes must already be dropped when it is materialized.
type modSwitcher struct {
	level   map[ir.TermID]int
	encodes []ir.TermID
}

func newModSwitcher() *modSwitcher {
	return &modSwitcher{level: make(map[ir.TermID]int)}
}

func (m *modSwitcher) rewrite(p *ir.Program, t *ir.Term) error {
	if t.IsSink() || t.Type == ir.TypeRaw {
		return nil
	}
	if t.Op == ir.OpEncode {
		m.encodes = append(m.encodes, t.ID)
	}

	byLevel := make(map[int][]ir.TermID)
	for _, id := range t.Uses() {
		byLevel[m.level[id]] = append(byLevel[m.level[id]], id)
	}
	levels := slices.Sorted(maps.Keys(byLevel))
	slices.Reverse(levels)

	termLevel := levels[0]
	tail, tailLevel := t.ID, termLevel
	for _, want := range levels[1:] {
		for tailLevel > want {
			ms := p.Term(p.NewOp(ir.OpModSwitch, tail))
			ms.Type = t.Type
			ms.Scale = t.Scale
			m.level[ms.ID] = tailLevel
			tail = ms.ID
			tailLevel--
		}
		for _, use := range byLevel[want] {
			p.ReplaceOperand(use, t.ID, tail)
		}
	}

	if t.Op == ir.OpRescale {
		termLevel++
	}
	m.level[t.ID] = termLevel
	return nil
}

func (m *modSwitcher) finish(p *ir.Program) {
	maxLevel := 0
	sources := p.Sources()
	for _, src := range sources {
		maxLevel = max(maxLevel, m.level[src.ID])
	}
	for _, src := range sources {
		src.EncodeLevel = maxLevel - m.level[src.ID]
	}
	for _, id := range m.encodes {
		if t := p.Term(id); !t.Dead() {
			t.EncodeLevel = maxLevel - m.level[id]
		}
	}
}
