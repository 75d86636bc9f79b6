package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/waterline/internal/eval"
)

// LoadInputs reads a YAML map from input name to values:
//
//	x: [1, 2, 3, 4]
//	w: [0.5, 0.5, 1, 1]
func LoadInputs(path string) (eval.Valuation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading inputs: %v", err)}
	}
	var values map[string][]float64
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("parsing inputs %s: %v", path, err)}
	}
	if len(values) == 0 {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("no inputs in %s", path)}
	}
	return eval.Valuation(values), nil
}
