package domain

import "github.com/planscale/takeoff-engine/internal/core/fault"

// The error kinds live in the dependency-free fault package so geometry and
// other leaf packages can use them; they are re-exported here because most of
// the application speaks in domain terms.
var (
	ErrParse      = fault.ErrParse
	ErrValidation = fault.ErrValidation
	ErrCycle      = fault.ErrCycle
	ErrNotFound   = fault.ErrNotFound
	ErrDetection  = fault.ErrDetection
	ErrCancelled  = fault.ErrCancelled
	ErrTemporary  = fault.ErrTemporary
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	return fault.Wrap(kind, operation, err)
}

func IsKind(err error, kind error) bool {
	return fault.IsKind(err, kind)
}
