package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/waterline/internal/compiler"
	"github.com/roach88/waterline/internal/ir"
)

// LoadResult contains a loaded program.
type LoadResult struct {
	Spec      *compiler.ProgramSpec
	Program   *ir.Program
	FileCount int // Number of CUE files read
}

// LoadError represents an error that occurred before the program could be
// parsed: missing paths, unreadable or ill-formed CUE.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram loads a program from a CUE file or from the CUE package in a
// directory. The document must have a top-level program field.
//
// Spec problems are returned as compiler.CompileError or
// compiler.ValidationErrors.
func LoadProgram(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program path: %v", err)}
	}

	result := &LoadResult{FileCount: 1}
	if info.IsDir() {
		result.Spec, result.FileCount, err = loadDir(path)
	} else {
		result.Spec, err = compiler.LoadSpecFile(path)
	}
	if err != nil {
		return nil, err
	}

	if result.Program, err = compiler.BuildProgram(result.Spec); err != nil {
		return nil, err
	}
	return result, nil
}

func loadDir(dir string) (*compiler.ProgramSpec, int, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	spec, err := compiler.SpecFromValue(value)
	if err != nil {
		return nil, 0, err
	}
	return spec, len(cueFiles), nil
}

// FindCUEFiles returns the .cue files directly inside dir, which is what
// a CUE package load reads.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

// Error code constants shared by all commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Unreadable config, inputs or artifact
	ErrCodeSpec        = "E009" // Program field malformed
	ErrCodeTolerance   = "E010" // Result exceeded tolerance
)
