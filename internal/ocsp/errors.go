package ocsp

import (
	"encoding/asn1"
	"errors"
	"fmt"
)

// ExtensionError represents a failed extension operation with structured context.
// It supports errors.Is() and errors.As().
type ExtensionError struct {
	Op  string                // Operation: "get", "delete", "add", "encode", "decode", "nonce"
	OID asn1.ObjectIdentifier // Extension OID (if applicable)
	Err error                 // Underlying error
}

// Error implements the error interface.
func (e *ExtensionError) Error() string {
	if len(e.OID) > 0 {
		return fmt.Sprintf("ocsp %s [%s]: %v", e.Op, OIDName(e.OID), e.Err)
	}
	return fmt.Sprintf("ocsp %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExtensionError) Unwrap() error { return e.Err }

func newError(op string, oid asn1.ObjectIdentifier, err error) *ExtensionError {
	return &ExtensionError{Op: op, OID: oid, Err: err}
}

// Sentinel errors for extension operations.
var (
	// ErrIndexOutOfRange indicates an index or location outside the container.
	ErrIndexOutOfRange = errors.New("extension index out of range")

	// ErrEncoding indicates a typed value could not be encoded.
	ErrEncoding = errors.New("extension encoding failed")

	// ErrDecoding indicates an extension value could not be decoded.
	ErrDecoding = errors.New("extension decoding failed")

	// ErrRandomSource indicates the random source failed while generating a nonce.
	ErrRandomSource = errors.New("random source failure")

	// ErrExtensionExists indicates an extension with the same OID is already present.
	ErrExtensionExists = errors.New("extension already present")

	// ErrExtensionNotFound indicates no extension with the OID is present.
	ErrExtensionNotFound = errors.New("extension not found")

	// ErrValueMismatch indicates a typed value does not belong to the OID it is stored under.
	ErrValueMismatch = errors.New("value type does not match extension OID")

	// ErrNonceMismatch indicates request and response carry different nonces.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrNilMessage indicates a nil message was passed to an adapter.
	ErrNilMessage = errors.New("nil message")
)
