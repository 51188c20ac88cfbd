/*
errors.go - Centralized error types for the engine

PURPOSE:

	All sentinel errors in one place for consistency and discoverability.
	Domain packages wrap these with structured errors that carry context and
	implement Unwrap, so callers can classify with errors.Is.

ERROR CATEGORIES:
 1. Data consistency - upstream state violates an invariant (operator must fix)
 2. Client errors    - invalid input or an illegal state transition
 3. Conflicts        - concurrent writers, occupied slots
 4. Lookups          - missing records

NON-ERRORS:

	An exhausted slot, an empty candidate pool or an unknown date are normal
	states. The engine reports them through its results, never as errors.

SEE ALSO:
  - tempcontract/errors.go: DuplicateActiveOccupationError
  - waitlist/queue.go: InvalidTransitionError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDataConsistency means stored records break an invariant, e.g. two
	// active occupations on one slot. The affected action must be blocked.
	ErrDataConsistency = errors.New("data consistency violation")

	// ErrInvalidTransition is returned for a lifecycle move that is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSlotExhausted is returned when a slot has no legal balance left.
	ErrSlotExhausted = errors.New("slot legal term exhausted")

	// ErrSlotOccupied is returned when hiring into a slot that has an active occupation.
	ErrSlotOccupied = errors.New("slot already occupied")

	// ErrExceedsCeiling is returned when a term would run past the legal ceiling.
	ErrExceedsCeiling = errors.New("term exceeds legal ceiling")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a record whose ID is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrValidation is returned for structurally invalid input.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrSlotExhausted) ||
		errors.Is(err, ErrExceedsCeiling)
}

// IsConflict returns true for errors caused by competing writers.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotOccupied) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDataConsistency returns true when stored data needs manual correction.
func IsDataConsistency(err error) bool {
	return errors.Is(err, ErrDataConsistency)
}
