package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ProgramSpec is a program described declaratively, as loaded from CUE.
//
// Terms are named expressions over inputs, earlier or later terms, and number
// literals. BuildProgram orders them by dependency, so declaration order does
// not matter.
type ProgramSpec struct {
	Name        string
	VecSize     int
	InputScale  int
	OutputRange int
	Inputs      []InputSpec
	Terms       []TermSpec
	Outputs     []OutputSpec
}

// InputSpec declares one program input.
type InputSpec struct {
	Name      string
	Encrypted bool
	Scale     int // 0 means InputScale
	Pos       token.Pos
}

// TermSpec declares one named expression.
type TermSpec struct {
	Name string
	Op   string
	Args []ArgSpec

	// Exponent is the power for "pow".
	Exponent int

	// By is the rotation amount for "rotl" and "rotr".
	By int

	// Value is the literal for "const". A single value is uniform.
	Value []float64

	Pos token.Pos
}

// ArgSpec is a term argument: a reference to an input or term, or a literal.
type ArgSpec struct {
	Ref     string
	Literal float64
	IsRef   bool
}

// OutputSpec binds an output name to a term or input.
type OutputSpec struct {
	Name  string
	Term  string
	Range int // 0 means OutputRange
	Pos   token.Pos
}

// Term ops accepted in a ProgramSpec.
const (
	SpecOpAdd   = "add"
	SpecOpSub   = "sub"
	SpecOpMul   = "mul"
	SpecOpNeg   = "neg"
	SpecOpPow   = "pow"
	SpecOpRotL  = "rotl"
	SpecOpRotR  = "rotr"
	SpecOpSum   = "sum"
	SpecOpConst = "const"
)

// CompileSpec parses a CUE value into a ProgramSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: { name: "sq", vec_size: 8, ... }`)
//	spec, err := CompileSpec(v.LookupPath(cue.ParsePath("program")))
func CompileSpec(v cue.Value) (*ProgramSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ProgramSpec{}
	var err error

	// name defaults to the struct label
	if spec.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		if labels := v.Path().Selectors(); len(labels) > 0 {
			spec.Name = labels[len(labels)-1].String()
		}
	}

	// vec_size is required
	if !v.LookupPath(cue.ParsePath("vec_size")).Exists() {
		return nil, &CompileError{Field: "vec_size", Message: "vec_size is required", Pos: v.Pos()}
	}
	if spec.VecSize, err = optionalInt(v, "vec_size"); err != nil {
		return nil, err
	}
	if spec.InputScale, err = optionalInt(v, "input_scale"); err != nil {
		return nil, err
	}
	if spec.OutputRange, err = optionalInt(v, "output_range"); err != nil {
		return nil, err
	}

	if spec.Inputs, err = parseInputs(v); err != nil {
		return nil, err
	}
	if spec.Terms, err = parseTerms(v); err != nil {
		return nil, err
	}
	if spec.Outputs, err = parseOutputs(v); err != nil {
		return nil, err
	}
	if len(spec.Outputs) == 0 {
		return nil, &CompileError{Field: "outputs", Message: "at least one output is required", Pos: v.Pos()}
	}
	return spec, nil
}

// parseInputs reads `inputs: name: {encrypted: bool, scale?: int}`.
func parseInputs(v cue.Value) ([]InputSpec, error) {
	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return nil, nil
	}
	iter, err := inputsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var inputs []InputSpec
	for iter.Next() {
		in := InputSpec{Name: iter.Label(), Pos: iter.Value().Pos(), Encrypted: true}
		val := iter.Value()

		// Shorthand: `x: true` / `x: false`
		if b, err := val.Bool(); err == nil {
			in.Encrypted = b
			inputs = append(inputs, in)
			continue
		}
		if enc := val.LookupPath(cue.ParsePath("encrypted")); enc.Exists() {
			if in.Encrypted, err = enc.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if in.Scale, err = optionalInt(val, "scale"); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// parseTerms reads `terms: name: {op: string, args?: [...], ...}`.
func parseTerms(v cue.Value) ([]TermSpec, error) {
	termsVal := v.LookupPath(cue.ParsePath("terms"))
	if !termsVal.Exists() {
		return nil, nil
	}
	iter, err := termsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var terms []TermSpec
	for iter.Next() {
		val := iter.Value()
		term := TermSpec{Name: iter.Label(), Pos: val.Pos()}

		opVal := val.LookupPath(cue.ParsePath("op"))
		if !opVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("terms.%s.op", term.Name),
				Message: "op is required",
				Pos:     val.Pos(),
			}
		}
		if term.Op, err = opVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		if argsVal := val.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
			argIter, err := argsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for argIter.Next() {
				arg, err := parseArg(term.Name, argIter.Value())
				if err != nil {
					return nil, err
				}
				term.Args = append(term.Args, arg)
			}
		}

		if term.Exponent, err = optionalInt(val, "exponent"); err != nil {
			return nil, err
		}
		if term.By, err = optionalInt(val, "by"); err != nil {
			return nil, err
		}
		if valueVal := val.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
			if term.Value, err = parseNumbers(term.Name, valueVal); err != nil {
				return nil, err
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func parseArg(term string, v cue.Value) (ArgSpec, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		ref, err := v.String()
		if err != nil {
			return ArgSpec{}, formatCUEError(err)
		}
		return ArgSpec{Ref: ref, IsRef: true}, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return ArgSpec{}, formatCUEError(err)
		}
		return ArgSpec{Literal: f}, nil
	default:
		return ArgSpec{}, &CompileError{
			Field:   fmt.Sprintf("terms.%s.args", term),
			Message: fmt.Sprintf("argument must be a name or a number, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// parseNumbers accepts a single number or a list of numbers.
func parseNumbers(term string, v cue.Value) ([]float64, error) {
	if v.IncompleteKind() != cue.ListKind {
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("terms.%s.value", term),
				Message: "value must be a number or a list of numbers",
				Pos:     v.Pos(),
			}
		}
		return []float64{f}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for iter.Next() {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, f)
	}
	return out, nil
}

// parseOutputs reads `outputs: name: "term"` or `outputs: name: {term: "t", range: 20}`.
func parseOutputs(v cue.Value) ([]OutputSpec, error) {
	outputsVal := v.LookupPath(cue.ParsePath("outputs"))
	if !outputsVal.Exists() {
		return nil, nil
	}
	iter, err := outputsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var outputs []OutputSpec
	for iter.Next() {
		val := iter.Value()
		out := OutputSpec{Name: iter.Label(), Pos: val.Pos()}
		if s, err := val.String(); err == nil {
			out.Term = s
			outputs = append(outputs, out)
			continue
		}
		if out.Term, err = optionalString(val, "term"); err != nil {
			return nil, err
		}
		if out.Term == "" {
			return nil, &CompileError{
				Field:   fmt.Sprintf("outputs.%s", out.Name),
				Message: "output must name a term",
				Pos:     val.Pos(),
			}
		}
		if out.Range, err = optionalInt(val, "range"); err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
