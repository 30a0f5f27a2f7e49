package scraper

import (
	"errors"
	"fmt"
)

// ErrInvalidInput indicates an empty or malformed run input. It is one of
// the two conditions that propagate out of a run.
var ErrInvalidInput = errors.New("run input invalid")

// ErrSessionFatal indicates the session manager gave up on launching a
// working browser. Units attempted afterwards fail fast with this error.
var ErrSessionFatal = errors.New("browser session is fatal")

// UnitError tags a per-unit failure with the pipeline phase it came from.
type UnitError struct {
	Phase Phase
	Err   error
}

// NewUnitError wraps err with the given phase.
func NewUnitError(phase Phase, err error) *UnitError {
	return &UnitError{Phase: phase, Err: err}
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// PhaseOf extracts the phase from a unit error, defaulting to navigation
// for untagged errors (session/launch problems surface pre-navigation).
func PhaseOf(err error) Phase {
	var ue *UnitError
	if errors.As(err, &ue) {
		return ue.Phase
	}
	return PhaseNavigation
}
