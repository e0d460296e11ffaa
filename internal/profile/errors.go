// Package profile loads YAML extension profiles and applies them to OCSP messages.
package profile

import (
	"errors"
	"fmt"
)

// ProfileError represents an extension profile operation error with structured context.
// It supports errors.Is() and errors.As().
type ProfileError struct {
	Name string // Profile name
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("profile %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("profile: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProfileError) Unwrap() error { return e.Err }

// NewProfileError creates a new ProfileError with the given name and error.
func NewProfileError(name string, err error) *ProfileError {
	return &ProfileError{Name: name, Err: err}
}

// ValidationError represents a specific validation failure within a profile.
type ValidationError struct {
	Field   string // Field that failed validation, e.g. "extensions[1].time"
	Value   string // The invalid value (if safe to include)
	Message string // Description of the validation failure
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap ties every validation failure to ErrInvalidProfile.
func (e *ValidationError) Unwrap() error { return ErrInvalidProfile }

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Sentinel errors for profile operations.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrProfileNotFound indicates the requested profile was not found.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidProfile indicates the profile configuration is invalid.
	ErrInvalidProfile = errors.New("invalid profile configuration")

	// ErrTargetMismatch indicates a profile applied to the wrong message kind.
	ErrTargetMismatch = errors.New("profile target mismatch")

	// ErrInvalidDN indicates a distinguished name string could not be parsed.
	ErrInvalidDN = errors.New("invalid distinguished name")
)
