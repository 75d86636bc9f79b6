package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/waterline/internal/ir"
)

// DefaultTolerance is the MSE bound used when a scenario sets none.
const DefaultTolerance = 1e-6

// Scenario defines one compilation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Program is the path to the CUE program file.
	// Relative paths are resolved against the scenario file's directory.
	Program string `yaml:"program"`

	// Config holds compiler options, as accepted by compiler.ParseConfig.
	Config map[string]string `yaml:"config,omitempty"`

	// Inputs are the input vectors. When empty, deterministic vectors are
	// generated for every program input.
	Inputs map[string][]float64 `yaml:"inputs,omitempty"`

	// Tolerance bounds the MSE of the compiled result against the source.
	// Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Encrypted also runs the program under encryption.
	Encrypted bool `yaml:"encrypted,omitempty"`

	// EncryptedTolerance bounds the encrypted MSE. Zero means Tolerance.
	EncryptedTolerance float64 `yaml:"encrypted_tolerance,omitempty"`

	// Expect holds the expected parameter selection.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// Expectation lists the parameters a scenario expects to be selected.
// Unset fields are not checked.
type Expectation struct {
	PrimeBits  []int `yaml:"prime_bits,omitempty"`
	PolyDegree int   `yaml:"poly_degree,omitempty"`
	Rotations  []int `yaml:"rotations,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the program path against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && baseDir != "" {
		scenario.Program = filepath.Join(baseDir, scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", s.Tolerance)
	}
	if s.EncryptedTolerance < 0 {
		return fmt.Errorf("encrypted_tolerance must not be negative, got %g", s.EncryptedTolerance)
	}
	if s.EncryptedTolerance > 0 && !s.Encrypted {
		return fmt.Errorf("encrypted_tolerance is set but encrypted is false")
	}
	for name, v := range s.Inputs {
		if len(v) == 0 {
			return fmt.Errorf("inputs.%s: at least one value is required", name)
		}
	}
	if e := s.Expect; e != nil {
		if e.PolyDegree != 0 && !ir.IsPowerOfTwo(e.PolyDegree) {
			return fmt.Errorf("expect.poly_degree: %d is not a power of two", e.PolyDegree)
		}
		for i, bits := range e.PrimeBits {
			if bits <= 0 {
				return fmt.Errorf("expect.prime_bits[%d]: must be positive, got %d", i, bits)
			}
		}
	}
	return nil
}

func (s *Scenario) tolerance() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return DefaultTolerance
}

func (s *Scenario) encryptedTolerance() float64 {
	if s.EncryptedTolerance > 0 {
		return s.EncryptedTolerance
	}
	return s.tolerance()
}
