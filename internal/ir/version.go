package ir

// Version constants for artifacts and the compiler.
const (
	// FormatVersion is the artifact schema version. Loaders reject newer versions.
	FormatVersion = 1

	// CompilerVersion is the waterline compiler version.
	CompilerVersion = "0.1.0"
)
