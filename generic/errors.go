/*
errors.go - Shared error types

PURPOSE:
  Errors that cross package boundaries: storage lookups and balance
  shortfalls. Domain packages wrap these with their own context.

USAGE:
  if errors.Is(err, generic.ErrNotFound) {
      // 404
  }

SEE ALSO:
  - leave/errors.go: Leave workflow error kinds
  - auth/errors.go: Authentication errors
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
	// ErrNotFound is returned by stores when a keyed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by stores on a unique key collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInsufficientBalance is returned when a request exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidPeriod is returned when a range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EntityID  EntityID
	Resource  string
	Available Amount
	Requested Amount
}

func (e *InsufficientBalanceError) Shortfall() Amount {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: available %v, requested %v, shortfall %v",
		e.Resource, e.Available.Value, e.Requested.Value, e.Shortfall().Value)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error indicates a duplicate.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
