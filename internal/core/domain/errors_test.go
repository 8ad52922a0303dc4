package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError("SM-TEST-0001", "something went wrong")

	if got := err.Error(); got != "[SM-TEST-0001] something went wrong" {
		t.Errorf("Error() = %q", got)
	}

	withDetails := err.WithDetails("extra context")
	if got := withDetails.Error(); got != "[SM-TEST-0001] something went wrong: extra context" {
		t.Errorf("Error() with details = %q", got)
	}
}

func TestDomainError_Is(t *testing.T) {
	err := ErrSessionNotFound.WithDetails("session smsn-xyz")

	if !errors.Is(err, ErrSessionNotFound) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, ErrSessionConflict) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := ErrStorage.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestDomainError_WithDetailsDoesNotMutate(t *testing.T) {
	base := ErrSessionNotFound
	derived := base.WithDetails("derived")

	if base.Details != "" {
		t.Error("WithDetails must not mutate the base error")
	}
	if derived.Details != "derived" {
		t.Errorf("derived.Details = %q, want %q", derived.Details, "derived")
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrChannelUnknown, "SM-CHAN-4040") {
		t.Error("IsDomainError should match exact code")
	}
	if IsDomainError(ErrChannelUnknown, "SM-CHAN-4001") {
		t.Error("IsDomainError should not match wrong code")
	}
	if !IsDomainError(ErrChannelUnknown, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("plain"), "") {
		t.Error("IsDomainError should reject non-domain errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrTopologyInvalid)
	if got := GetErrorCode(wrapped); got != "SM-TOPO-4001" {
		t.Errorf("GetErrorCode() = %q, want %q", got, "SM-TOPO-4001")
	}
	if got := GetErrorCode(fmt.Errorf("plain")); got != "" {
		t.Errorf("GetErrorCode(plain) = %q, want empty", got)
	}
}
