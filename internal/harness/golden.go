package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/waterline/internal/ir"
)

// Snapshot renders the parts of a result that must stay stable across
// compiler changes as canonical JSON: the selected parameters and the
// signature.
func Snapshot(name string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(ir.Object{
		"name":       ir.Str(name),
		"parameters": result.Parameters.ToValue(),
		"signature":  result.Signature.ToValue(),
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Returns an error if the scenario cannot run. Check failures and golden
// mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's snapshot against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
