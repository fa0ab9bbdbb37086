package domain

import (
	"errors"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/fault"
)

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("zero-length line")
	err := WrapError(ErrValidation, "new line", cause)
	if !IsKind(err, ErrValidation) {
		t.Fatalf("IsKind(%v, ErrValidation) = false, want true", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(%v, cause) = false, want true", err)
	}
	if WrapError(ErrValidation, "new line", nil) != nil {
		t.Fatal("WrapError() with nil cause = non-nil, want nil")
	}
}

func TestErrorKindsMatchFaultPackage(t *testing.T) {
	pairs := []struct {
		name   string
		local  error
		shared error
	}{
		{"parse", ErrParse, fault.ErrParse},
		{"validation", ErrValidation, fault.ErrValidation},
		{"cycle", ErrCycle, fault.ErrCycle},
		{"not_found", ErrNotFound, fault.ErrNotFound},
		{"detection", ErrDetection, fault.ErrDetection},
		{"cancelled", ErrCancelled, fault.ErrCancelled},
		{"temporary", ErrTemporary, fault.ErrTemporary},
	}
	for _, pair := range pairs {
		if !errors.Is(pair.local, pair.shared) {
			t.Errorf("%s kind diverged from the shared definition", pair.name)
		}
	}
}
