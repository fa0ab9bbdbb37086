// Package fault defines the semantic error kinds shared across the core.
// It has no other dependencies so leaf packages can classify failures
// without importing the entity model.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrParse means a scale annotation could not be recognized. Callers must
	// treat it as "no scale detected", never as a zero ratio.
	ErrParse = errors.New("scale text not parseable")

	// ErrValidation covers degenerate geometry, missing action parameters and
	// other rejected inputs. The failed operation has no side effect.
	ErrValidation = errors.New("invalid input")

	// ErrCycle means a revision append would make the history graph cyclic.
	// The graph is left unchanged.
	ErrCycle = errors.New("revision cycle")

	ErrNotFound = errors.New("not found")

	// ErrDetection is an unrecoverable failure of the template or vision
	// pipeline; the session transitions to failed with partial results kept.
	ErrDetection = errors.New("detection failure")

	// ErrCancelled distinguishes an operator-cancelled detection run from a
	// pipeline failure.
	ErrCancelled = errors.New("cancelled")

	ErrTemporary = errors.New("temporary failure")
)

// Wrap preserves a typed semantic error with operation context.
func Wrap(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
