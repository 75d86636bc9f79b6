package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders the program in TopoOrder as one line per term:
//
//	t3 = mul t1 t2 : cipher scale=60 level=2
//
// Term IDs are printed as stored; call Compact first for history-independent output.
func (p *Program) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %q vec_size=%d\n", p.name, p.vecSize)
	for _, t := range p.TopoOrder() {
		b.WriteString(DumpTerm(t))
		b.WriteByte('\n')
	}
	return b.String()
}

// DumpTerm renders a single term.
func DumpTerm(t *Term) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %s", t.ID, t.Op)
	if t.Name != "" {
		fmt.Fprintf(&b, " %q", t.Name)
	}
	for _, id := range t.operands {
		b.WriteByte(' ')
		b.WriteString(id.String())
	}
	if t.Value != nil {
		b.WriteString(" [")
		for i, v := range t.Value.values {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte(']')
	}
	fmt.Fprintf(&b, " : %s scale=%d level=%d", t.Type, t.Scale, t.Level)
	if t.Op.IsRotation() {
		fmt.Fprintf(&b, " rot=%d", t.Rotation)
	}
	if t.Op == OpRescale {
		fmt.Fprintf(&b, " div=%d", t.Divisor)
	}
	if t.IsSource() || t.Op == OpEncode {
		fmt.Fprintf(&b, " encode_level=%d", t.EncodeLevel)
	}
	if t.Op == OpOutput {
		fmt.Fprintf(&b, " range=%d", t.Range)
	}
	return b.String()
}
