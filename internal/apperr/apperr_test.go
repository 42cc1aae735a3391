package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{Unauthenticated, 401},
		{InvalidArgument, 400},
		{PermissionDenied, 403},
		{FailedPrecondition, 409},
		{Internal, 500},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestFromPreservesClassifiedErrors(t *testing.T) {
	orig := New(FailedPrecondition, "run already used")

	// Directly
	if got := From(orig); got.Code != FailedPrecondition {
		t.Errorf("From(orig).Code = %s, want failed-precondition", got.Code)
	}

	// Through a wrapping chain
	wrapped := fmt.Errorf("submit: %w", orig)
	if got := CodeOf(wrapped); got != FailedPrecondition {
		t.Errorf("CodeOf(wrapped) = %s, want failed-precondition", got)
	}
}

func TestFromClassifiesUnknownAsInternal(t *testing.T) {
	err := From(errors.New("connection refused"))
	if err.Code != Internal {
		t.Errorf("From(unknown).Code = %s, want internal", err.Code)
	}
	if err.Unwrap() == nil {
		t.Error("From should keep the cause")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, "failed to persist", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Wrap")
	}
	if err.Error() != "failed to persist: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}
