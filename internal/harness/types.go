package harness

import (
	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/ir"
	"github.com/roach88/waterline/internal/store"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every check succeeded.
	Pass bool `json:"pass"`

	// Errors contains failed check messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Program    *ir.Program   `json:"-"`
	Parameters ir.Parameters `json:"parameters"`
	Signature  ir.Signature  `json:"signature"`

	// Reference compares the compiled program with the source program,
	// both under the reference evaluator.
	Reference eval.Comparison `json:"reference"`

	// Encrypted compares the decrypted outputs with the source program.
	// Nil unless the scenario runs encrypted.
	Encrypted *eval.Comparison `json:"encrypted,omitempty"`

	// CompilationID identifies the compilation in the registry.
	CompilationID string `json:"compilation_id"`

	// Runs lists the recorded runs in seq order.
	Runs []store.Run `json:"runs"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Runs:   []store.Run{},
	}
}

// AddError adds a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
