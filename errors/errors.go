// Package errors provides custom error types for the bridge package
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeDecodeFailure     ErrorCode = "DECODE_FAILURE"
	ErrCodeProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"
	ErrCodeReducerFailure    ErrorCode = "REDUCER_FAILURE"
	ErrCodeTransportFailure  ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeStorageFailure    ErrorCode = "STORAGE_FAILURE"
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
)

// Operation represents the type of bridge operation
type Operation string

const (
	OpDispatch   Operation = "dispatch"
	OpDecode     Operation = "decode"
	OpEncode     Operation = "encode"
	OpBroadcast  Operation = "broadcast"
	OpRegister   Operation = "register"
	OpUnregister Operation = "unregister"
	OpApplyPatch Operation = "apply_patch"
	OpSend       Operation = "send"
	OpJournal    Operation = "journal"
	OpClose      Operation = "close"
)

// BridgeError represents an error that occurred in the state bridge
type BridgeError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "store", "codec", "surface")
	Component string

	// Underlying error
	Err error

	// Error code for the error type
	Code ErrorCode

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *BridgeError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new decode-related BridgeError
func NewDecodeError(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code:      ErrCodeDecodeFailure,
		Op:        op,
		Component: "codec",
		Err:       cause,
	}
}

// NewProtocolViolation creates a new protocol-violation BridgeError
func NewProtocolViolation(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code: ErrCodeProtocolViolation,
		Op:   op,
		Err:  cause,
	}
}

// NewReducerError creates a new producer-failure BridgeError
func NewReducerError(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code:      ErrCodeReducerFailure,
		Op:        op,
		Component: "store",
		Err:       cause,
	}
}

// NewTransportError creates a new transport-related BridgeError
func NewTransportError(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code:      ErrCodeTransportFailure,
		Op:        op,
		Component: "transport",
		Err:       cause,
	}
}

// NewStorageError creates a new storage-related BridgeError
func NewStorageError(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code:      ErrCodeStorageFailure,
		Op:        op,
		Component: "journal",
		Err:       cause,
	}
}

// NewValidationError creates a new validation-related BridgeError
func NewValidationError(op Operation, cause error) *BridgeError {
	return &BridgeError{
		Code: ErrCodeValidationFailure,
		Op:   op,
		Err:  cause,
	}
}

// New creates a new BridgeError
func New(op Operation, err error) *BridgeError {
	return &BridgeError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new BridgeError with component information
func NewWithComponent(op Operation, component string, err error) *BridgeError {
	return &BridgeError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// WithMetadata attaches metadata to the error and returns it
func (e *BridgeError) WithMetadata(key string, value interface{}) *BridgeError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// GetCode extracts the ErrorCode from an error chain, or "" if none
func GetCode(err error) ErrorCode {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code
	}
	return ""
}

// IsDecodeError checks if an error is a decode failure
func IsDecodeError(err error) bool {
	return GetCode(err) == ErrCodeDecodeFailure
}

// IsProtocolViolation checks if an error is a protocol violation
func IsProtocolViolation(err error) bool {
	return GetCode(err) == ErrCodeProtocolViolation
}

// IsReducerError checks if an error is a producer failure
func IsReducerError(err error) bool {
	return GetCode(err) == ErrCodeReducerFailure
}
