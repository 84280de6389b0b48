// Package errs defines the engine error taxonomy. Handlers map these
// types to HTTP statuses; services return them unwrapped or wrapped
// with fmt.Errorf("%w", ...), so errors.As works across layers.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input (bad result payload, illegal
// settings). No state has been changed when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a concurrent-writer loss: a stale optimistic
// version on a match transition, or a tournament status that moved
// between read and write. The caller must re-read and retry.
type ConflictError struct {
	Entity   string
	ID       uint
	Expected uint
	Actual   uint
	Msg      string
}

func (e *ConflictError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s %d: version conflict (submitted %d, current %d)", e.Entity, e.ID, e.Expected, e.Actual)
}

// PolicyViolation reports a request that is well-formed but forbidden
// by tournament policy (check-in after window close, registration
// after lock, confirming your own result). No state has been changed.
type PolicyViolation struct {
	Msg string
}

func (e *PolicyViolation) Error() string {
	return e.Msg
}

// Policyf builds a PolicyViolation from a format string.
func Policyf(format string, args ...interface{}) error {
	return &PolicyViolation{Msg: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failed external call (Economy, Ranking).
// It is recorded on the settlement record and retried by the sweep; it
// is never surfaced as a tournament-level failure.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// FrozenError is returned for any transition attempted on a tournament
// that was frozen after a detected invariant breach. Frozen tournaments
// accept no further transitions until manually inspected.
type FrozenError struct {
	TournamentID uint
	Reason       string
}

func (e *FrozenError) Error() string {
	return fmt.Sprintf("tournament %d is frozen: %s", e.TournamentID, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsPolicy reports whether err is (or wraps) a PolicyViolation.
func IsPolicy(err error) bool {
	var e *PolicyViolation
	return errors.As(err, &e)
}
