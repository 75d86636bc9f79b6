package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/waterline/internal/ir"
)

// Spec validation error codes (E100-E199)
const (
	// Program-level errors (E101-E109)
	ErrProgramNameEmpty    = "E101" // name is required
	ErrBadVecSize          = "E102" // vec_size must be a power of two
	ErrNoOutputs           = "E103" // at least one output required
	ErrInvalidName         = "E104" // names must be identifiers
	ErrDuplicateName       = "E105" // input/term/output name reused
	ErrNonPositiveScale    = "E106" // scales and ranges must be positive when set
	ErrMissingScaleOrRange = "E107" // neither a default nor an override is set

	// Term errors (E110-E119)
	ErrUnknownOp       = "E110" // op is not one of the spec ops
	ErrBadArity        = "E111" // wrong number of args for op
	ErrUndefinedRef    = "E112" // arg or output refers to an unknown name
	ErrBadExponent     = "E113" // pow needs exponent >= 1
	ErrBadConstValue   = "E114" // const needs a value list dividing vec_size
	ErrTermCycle       = "E115" // terms reference each other in a cycle
	ErrLiteralOnlyTerm = "E116" // term has no reference argument
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is a non-empty list of spec problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the failure as an ir validation error so callers can use
// ir.IsValidationError on it.
func (errs ValidationErrors) Unwrap() error {
	return ir.NewValidationError("program spec has %d problem(s)", len(errs))
}

// ValidateSpec checks a program spec against the schema rules.
// Returns all errors found (does not fail-fast).
func ValidateSpec(spec *ProgramSpec) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrProgramNameEmpty,
		})
	}

	// E102: vec_size must be a power of two
	if !ir.IsPowerOfTwo(spec.VecSize) {
		errs = append(errs, ValidationError{
			Field:   "vec_size",
			Message: fmt.Sprintf("vec_size must be a power of two, got %d", spec.VecSize),
			Code:    ErrBadVecSize,
		})
	}

	// E103: at least one output
	if len(spec.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "outputs",
			Message: "at least one output is required",
			Code:    ErrNoOutputs,
		})
	}

	// E106: defaults must be positive when set
	if spec.InputScale < 0 {
		errs = append(errs, nonPositive("input_scale", spec.InputScale))
	}
	if spec.OutputRange < 0 {
		errs = append(errs, nonPositive("output_range", spec.OutputRange))
	}

	// Inputs and terms share one namespace: args refer to either.
	defined := make(map[string]string)
	for i, in := range spec.Inputs {
		field := fmt.Sprintf("inputs.%s", in.Name)
		errs = append(errs, validateName(field, in.Name)...)
		if prev, ok := defined[in.Name]; ok {
			errs = append(errs, duplicate(field, in.Name, prev))
		}
		defined[in.Name] = fmt.Sprintf("inputs[%d]", i)

		switch {
		case in.Scale < 0:
			errs = append(errs, nonPositive(field+".scale", in.Scale))
		case in.Scale == 0 && spec.InputScale == 0:
			errs = append(errs, ValidationError{
				Field:   field + ".scale",
				Message: fmt.Sprintf("input %q has no scale and no input_scale default is set", in.Name),
				Code:    ErrMissingScaleOrRange,
			})
		}
	}
	for i, term := range spec.Terms {
		field := fmt.Sprintf("terms.%s", term.Name)
		errs = append(errs, validateName(field, term.Name)...)
		if prev, ok := defined[term.Name]; ok {
			errs = append(errs, duplicate(field, term.Name, prev))
		}
		defined[term.Name] = fmt.Sprintf("terms[%d]", i)
	}

	for _, term := range spec.Terms {
		errs = append(errs, validateTerm(spec, term, defined)...)
	}

	outputNames := make(map[string]bool)
	for _, out := range spec.Outputs {
		field := fmt.Sprintf("outputs.%s", out.Name)
		errs = append(errs, validateName(field, out.Name)...)
		if outputNames[out.Name] {
			errs = append(errs, duplicate(field, out.Name, "outputs"))
		}
		outputNames[out.Name] = true

		// E112: output must refer to an input or a term
		if _, ok := defined[out.Term]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("output %q refers to undefined name %q", out.Name, out.Term),
				Code:    ErrUndefinedRef,
			})
		}
		switch {
		case out.Range < 0:
			errs = append(errs, nonPositive(field+".range", out.Range))
		case out.Range == 0 && spec.OutputRange == 0:
			errs = append(errs, ValidationError{
				Field:   field + ".range",
				Message: fmt.Sprintf("output %q has no range and no output_range default is set", out.Name),
				Code:    ErrMissingScaleOrRange,
			})
		}
	}

	// E115: term references must form a DAG
	for _, cycle := range AnalyzeTermCycles(spec.Terms) {
		errs = append(errs, ValidationError{
			Field:   "terms",
			Message: cycle.Message,
			Code:    ErrTermCycle,
		})
	}

	return errs
}

// validateTerm checks one term's op, arity, references and op-specific fields.
func validateTerm(spec *ProgramSpec, term TermSpec, defined map[string]string) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("terms.%s", term.Name)

	lo, hi, ok := specOpArity(term.Op)
	if !ok {
		// E110: unknown op; skip arity checks that would only add noise
		return append(errs, ValidationError{
			Field:   field + ".op",
			Message: fmt.Sprintf("unknown op %q", term.Op),
			Code:    ErrUnknownOp,
		})
	}

	// E111: arity
	if n := len(term.Args); n < lo || (hi >= 0 && n > hi) {
		errs = append(errs, ValidationError{
			Field:   field + ".args",
			Message: fmt.Sprintf("%s takes %s, got %d", term.Op, arityText(lo, hi), n),
			Code:    ErrBadArity,
		})
	}

	refs := 0
	for j, arg := range term.Args {
		if !arg.IsRef {
			continue
		}
		refs++
		// E112: undefined reference
		if _, ok := defined[arg.Ref]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.args[%d]", field, j),
				Message: fmt.Sprintf("undefined name %q", arg.Ref),
				Code:    ErrUndefinedRef,
			})
		}
	}

	// E116: arithmetic on literals alone has no program to attach to
	if term.Op != SpecOpConst && len(term.Args) > 0 && refs == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".args",
			Message: "at least one argument must name an input or term; use op \"const\" for literals",
			Code:    ErrLiteralOnlyTerm,
		})
	}

	switch term.Op {
	case SpecOpPow:
		// E113
		if term.Exponent < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".exponent",
				Message: fmt.Sprintf("pow needs an exponent of at least 1, got %d", term.Exponent),
				Code:    ErrBadExponent,
			})
		}
	case SpecOpConst:
		// E114
		if n := len(term.Value); n == 0 || (ir.IsPowerOfTwo(spec.VecSize) && spec.VecSize%n != 0) {
			errs = append(errs, ValidationError{
				Field:   field + ".value",
				Message: fmt.Sprintf("const needs a value whose length divides vec_size %d, got %d values", spec.VecSize, n),
				Code:    ErrBadConstValue,
			})
		}
	}
	return errs
}

// specOpArity returns the argument count bounds for op; hi < 0 is unbounded.
func specOpArity(op string) (lo, hi int, ok bool) {
	switch op {
	case SpecOpAdd, SpecOpMul:
		return 2, -1, true
	case SpecOpSub:
		return 2, 2, true
	case SpecOpNeg, SpecOpPow, SpecOpRotL, SpecOpRotR, SpecOpSum:
		return 1, 1, true
	case SpecOpConst:
		return 0, 0, true
	}
	return 0, 0, false
}

func arityText(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d argument(s)", lo)
	case lo == hi:
		return fmt.Sprintf("exactly %d argument(s)", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

// namePattern matches identifier-like names usable as CUE labels and map keys.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateName(field, name string) []ValidationError {
	if namePattern.MatchString(name) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("invalid name %q, expected an identifier", name),
		Code:    ErrInvalidName,
	}}
}

func duplicate(field, name, prev string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("name %q is already defined by %s", name, prev),
		Code:    ErrDuplicateName,
	}
}

func nonPositive(field string, v int) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be positive, got %d", v),
		Code:    ErrNonPositiveScale,
	}
}
