package ir

import "fmt"

// ToValue converts the program to its canonical artifact form. Terms are
// emitted in TopoOrder and renumbered from 1, so operands always precede
// their consumers.
func (p *Program) ToValue() Object {
	c := p.Compact()
	terms := make(Array, len(c.terms))
	for i, t := range c.terms {
		obj := Object{
			"id":           Int(t.ID),
			"op":           Str(t.Op.String()),
			"type":         Str(t.Type.String()),
			"scale":        Int(t.Scale),
			"level":        Int(t.Level),
			"encode_level": Int(t.EncodeLevel),
			"operands":     termIDs(t.operands),
		}
		switch {
		case t.Op.IsRotation():
			obj["rotation"] = Int(t.Rotation)
		case t.Op == OpRescale:
			obj["divisor"] = Int(t.Divisor)
		case t.Op == OpOutput:
			obj["range"] = Int(t.Range)
		}
		if t.Name != "" {
			obj["name"] = Str(t.Name)
		}
		if t.Value != nil {
			obj["value"] = Floats(t.Value.values)
		}
		terms[i] = obj
	}
	return Object{
		"name":     Str(c.name),
		"vec_size": Int(c.vecSize),
		"terms":    terms,
	}
}

func termIDs(ids []TermID) Array {
	arr := make(Array, len(ids))
	for i, id := range ids {
		arr[i] = Int(id)
	}
	return arr
}

// ProgramFromValue rebuilds a program produced by ToValue.
func ProgramFromValue(obj Object) (*Program, error) {
	name, err := obj.Str("name")
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	vecSize, err := obj.Int("vec_size")
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	p, err := NewProgram(name, vecSize)
	if err != nil {
		return nil, err
	}
	terms, err := obj.Array("terms")
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	for i, elem := range terms {
		to, ok := elem.(Object)
		if !ok {
			return nil, NewValidationError("program term %d is not an object", i)
		}
		if err := p.decodeTerm(TermID(i+1), to); err != nil {
			return nil, fmt.Errorf("program term %d: %w", i+1, err)
		}
	}
	return p, nil
}

func (p *Program) decodeTerm(want TermID, obj Object) error {
	id, err := obj.Int("id")
	if err != nil {
		return err
	}
	if TermID(id) != want {
		return NewValidationError("term id %d out of sequence, expected %d", id, want)
	}
	opName, err := obj.Str("op")
	if err != nil {
		return err
	}
	op, err := ParseOp(opName)
	if err != nil {
		return NewValidationError("%v", err)
	}
	typeName, err := obj.Str("type")
	if err != nil {
		return err
	}
	typ, err := ParseType(typeName)
	if err != nil {
		return NewValidationError("%v", err)
	}
	operands, err := obj.Ints("operands")
	if err != nil {
		return err
	}
	for _, o := range operands {
		if o < 1 || TermID(o) >= want {
			return NewValidationError("operand t%d does not precede t%d", o, want)
		}
	}

	var t *Term
	switch op {
	case OpInput:
		name, err := obj.Str("name")
		if err != nil {
			return err
		}
		if _, err := p.NewInput(name, typ); err != nil {
			return err
		}
		t = p.Term(want)
	case OpOutput:
		name, err := obj.Str("name")
		if err != nil {
			return err
		}
		if len(operands) != 1 {
			return NewValidationError("output %q must have one operand", name)
		}
		if _, err := p.NewOutput(name, TermID(operands[0])); err != nil {
			return err
		}
		t = p.Term(want)
		if t.Range, err = obj.Int("range"); err != nil {
			return err
		}
	case OpConstant:
		values, err := obj.Floats("value")
		if err != nil {
			return err
		}
		c, err := Dense(values)
		if err != nil {
			return err
		}
		t = p.Term(p.NewConstant(c))
	default:
		ids := make([]TermID, len(operands))
		for i, o := range operands {
			ids[i] = TermID(o)
		}
		t = p.Term(p.NewOp(op, ids...))
		if op.IsRotation() {
			if t.Rotation, err = obj.Int("rotation"); err != nil {
				return err
			}
		}
		if op == OpRescale {
			if t.Divisor, err = obj.Int("divisor"); err != nil {
				return err
			}
		}
	}

	t.Type = typ
	if t.Scale, err = obj.Int("scale"); err != nil {
		return err
	}
	if t.Level, err = obj.Int("level"); err != nil {
		return err
	}
	if t.EncodeLevel, err = obj.Int("encode_level"); err != nil {
		return err
	}
	return nil
}
