// Package domain defines the core domain models for SnapMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SM-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Snapshot Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionNotFound indicates the requested snapshot session was not found.
	ErrSessionNotFound = NewDomainError("SM-SESS-4040", "snapshot session not found")

	// ErrSessionConflict indicates the session ID is already in use.
	ErrSessionConflict = NewDomainError("SM-SESS-4090", "snapshot session id conflict")

	// ErrSessionNotDone indicates a contribution was requested before DONE.
	ErrSessionNotDone = NewDomainError("SM-SESS-4091", "snapshot session not finalized")

	// ErrSessionFailed indicates the session was abandoned before completion.
	ErrSessionFailed = NewDomainError("SM-SESS-4100", "snapshot session failed")

	// ErrSessionIDInvalid indicates the session ID format is invalid.
	ErrSessionIDInvalid = NewDomainError("SM-SESS-4000", "malformed session id")
)

// ============================================================================
// Channel / Transport Errors (CHAN)
// ============================================================================

var (
	// ErrChannelUnknown indicates the channel is not part of the topology.
	ErrChannelUnknown = NewDomainError("SM-CHAN-4040", "unknown channel")

	// ErrChannelClosed indicates a send on a closed channel.
	ErrChannelClosed = NewDomainError("SM-CHAN-4001", "channel closed")

	// ErrProcessUnknown indicates the process is not part of the topology.
	ErrProcessUnknown = NewDomainError("SM-PROC-4040", "unknown process")

	// ErrFrameInvalid indicates a malformed frame.
	ErrFrameInvalid = NewDomainError("SM-CHAN-4000", "invalid frame")
)

// ============================================================================
// Topology Errors (TOPO)
// ============================================================================

var (
	// ErrTopologyInvalid indicates the mesh topology failed validation.
	ErrTopologyInvalid = NewDomainError("SM-TOPO-4001", "invalid topology")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = NewDomainError("SM-SYS-5000", "internal error")

	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError("SM-SYS-5001", "storage error")

	// ErrUnavailable indicates the service is shutting down or not ready.
	ErrUnavailable = NewDomainError("SM-SYS-5030", "service unavailable")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SM-ARG-1002", "missing required argument")
)
