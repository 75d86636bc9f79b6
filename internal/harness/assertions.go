package harness

import (
	"fmt"
	"slices"
	"strings"
)

// Check names used in AssertionError.Type.
const (
	CheckReference  = "reference"
	CheckEncrypted  = "encrypted"
	CheckPrimeBits  = "prime_bits"
	CheckPolyDegree = "poly_degree"
	CheckRotations  = "rotations"
)

// AssertionError describes one failed check.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateExpectations checks a result's comparisons and, when exp is not
// nil, its selected parameters. Returns one message per failed check.
func EvaluateExpectations(result *Result, exp *Expectation) []string {
	var errs []error

	if !result.Reference.Within {
		errs = append(errs, &AssertionError{
			Type:     CheckReference,
			Expected: fmt.Sprintf("mse <= %g", result.Reference.Tolerance),
			Actual:   fmt.Sprintf("mse %g (worst %s)", result.Reference.MSE, result.Reference.WorstKey),
		})
	}
	if enc := result.Encrypted; enc != nil && !enc.Within {
		errs = append(errs, &AssertionError{
			Type:     CheckEncrypted,
			Expected: fmt.Sprintf("mse <= %g", enc.Tolerance),
			Actual:   fmt.Sprintf("mse %g (worst %s)", enc.MSE, enc.WorstKey),
		})
	}

	if exp != nil {
		params := result.Parameters
		if exp.PrimeBits != nil && !slices.Equal(exp.PrimeBits, params.PrimeBits) {
			errs = append(errs, &AssertionError{
				Type:     CheckPrimeBits,
				Expected: fmt.Sprint(exp.PrimeBits),
				Actual:   fmt.Sprint(params.PrimeBits),
			})
		}
		if exp.PolyDegree != 0 && exp.PolyDegree != params.PolyModulusDegree {
			errs = append(errs, &AssertionError{
				Type:     CheckPolyDegree,
				Expected: fmt.Sprint(exp.PolyDegree),
				Actual:   fmt.Sprint(params.PolyModulusDegree),
			})
		}
		if exp.Rotations != nil && !slices.Equal(exp.Rotations, params.Rotations) {
			errs = append(errs, &AssertionError{
				Type:     CheckRotations,
				Expected: fmt.Sprint(exp.Rotations),
				Actual:   fmt.Sprint(params.Rotations),
			})
		}
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}
