package ir

import (
	"errors"
	"fmt"
)

// Error is the error type surfaced by recording, compilation and validation.
//
// Errors are reported synchronously where they are detected and never retried:
// compilation is deterministic, so repeating it with the same input cannot succeed.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Term identifies the offending term, if any.
	Term TermID

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeContext indicates misuse of the recording context.
	ErrCodeContext ErrorCode = "CONTEXT"

	// ErrCodeNameConflict indicates a duplicate input or output name.
	ErrCodeNameConflict ErrorCode = "NAME_CONFLICT"

	// ErrCodeDomain indicates an invalid exponent, literal or vector width.
	ErrCodeDomain ErrorCode = "DOMAIN"

	// ErrCodeDepthOverflow indicates the modulus chain is exhausted.
	ErrCodeDepthOverflow ErrorCode = "DEPTH_OVERFLOW"

	// ErrCodeUnsupportedSecurityLevel indicates no parameter table entry exists.
	ErrCodeUnsupportedSecurityLevel ErrorCode = "UNSUPPORTED_SECURITY_LEVEL"

	// ErrCodeValidation indicates mismatched names, widths or artifacts.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeInconsistent indicates a compiled graph violates a scale or level rule.
	ErrCodeInconsistent ErrorCode = "INCONSISTENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Term.IsValid() {
		return fmt.Sprintf("%s: %s (term=%s)", e.Code, e.Message, e.Term)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithTerm returns e annotated with the offending term.
func (e *Error) WithTerm(id TermID) *Error {
	e.Term = id
	return e
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsContextError(err error) bool      { return HasCode(err, ErrCodeContext) }
func IsNameConflictError(err error) bool { return HasCode(err, ErrCodeNameConflict) }
func IsDomainError(err error) bool       { return HasCode(err, ErrCodeDomain) }
func IsDepthOverflowError(err error) bool {
	return HasCode(err, ErrCodeDepthOverflow)
}
func IsUnsupportedSecurityLevelError(err error) bool {
	return HasCode(err, ErrCodeUnsupportedSecurityLevel)
}
func IsValidationError(err error) bool   { return HasCode(err, ErrCodeValidation) }
func IsInconsistentError(err error) bool { return HasCode(err, ErrCodeInconsistent) }

// NewContextError creates an Error for recording-context misuse.
func NewContextError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeContext, Message: fmt.Sprintf(format, args...)}
}

// NewNameConflictError creates an Error for a duplicate input or output name.
func NewNameConflictError(kind, name string) *Error {
	return &Error{
		Code:    ErrCodeNameConflict,
		Message: fmt.Sprintf("%s %q is already declared", kind, name),
		Details: map[string]string{"kind": kind, "name": name},
	}
}

// NewDomainError creates an Error for invalid arguments.
func NewDomainError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeDomain, Message: fmt.Sprintf(format, args...)}
}

// NewDepthOverflowError creates an Error for a modulus chain that cannot hold the program.
func NewDepthOverflowError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeDepthOverflow, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedSecurityLevelError creates an Error for a security level with no table.
func NewUnsupportedSecurityLevelError(level int, quantumSafe bool) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedSecurityLevel,
		Message: fmt.Sprintf("no parameter table for %d-bit security (quantum_safe=%t)", level, quantumSafe),
		Details: map[string]string{
			"security_level": fmt.Sprintf("%d", level),
			"quantum_safe":   fmt.Sprintf("%t", quantumSafe),
		},
	}
}

// NewValidationError creates an Error for mismatched data.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewInconsistentError creates an Error for a compiled graph that breaks a scale or level rule.
func NewInconsistentError(id TermID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInconsistent, Message: fmt.Sprintf(format, args...), Term: id}
}
