package store

import "github.com/google/uuid"

// Program is a stored source program.
type Program struct {
	ID       string
	Name     string
	VecSize  int
	Artifact []byte
}

// Compilation is one compilation of a program under a flattened config.
type Compilation struct {
	ID                string
	ProgramID         string
	Config            map[string]string
	PrimeBits         []int
	PolyModulusDegree int
	Program           []byte
	Parameters        []byte
	Signature         []byte
}

// RunMode says how a run was executed.
type RunMode string

const (
	ModeReference RunMode = "reference"
	ModeEncrypted RunMode = "encrypted"
)

// Run records one execution of a compilation and its error against the
// reference evaluator. Seq is assigned by the store.
type Run struct {
	ID            string  `json:"id"`
	CompilationID string  `json:"compilation_id"`
	Mode          RunMode `json:"mode"`
	MSE           float64 `json:"mse"`
	Tolerance     float64 `json:"tolerance"`
	Within        bool    `json:"within"`
	Seq           int64   `json:"seq"`
}

// RunIDGenerator creates run ids.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
