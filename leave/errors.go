package leave

import (
	"errors"
	"fmt"

	"github.com/empowerflow/portal/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidRange     = errors.New("end date is before start date")
	ErrZeroDuration     = errors.New("leave duration is zero")
	ErrInvalidLeaveType = errors.New("invalid leave type")
	ErrRequestNotFound  = errors.New("leave request not found")
	ErrInvalidState     = errors.New("only pending leave requests can be cancelled")

	// ErrInsufficientBalance is the generic sentinel so errors.Is works
	// against either package.
	ErrInsufficientBalance = generic.ErrInsufficientBalance
)

// ErrorKind is the wire name of an error category.
type ErrorKind string

const (
	KindMissingField        ErrorKind = "missing_field"
	KindInvalidRange        ErrorKind = "invalid_range"
	KindZeroDuration        ErrorKind = "zero_duration"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindInvalidLeaveType    ErrorKind = "invalid_leave_type"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidState        ErrorKind = "invalid_state"
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError is a rejected submission. It unwraps to the sentinel
// of its Kind and, for balance failures, to the balance detail.
type ValidationError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{kindSentinel(e.Kind)}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindMissingField:
		return ErrMissingField
	case KindInvalidRange:
		return ErrInvalidRange
	case KindZeroDuration:
		return ErrZeroDuration
	case KindInsufficientBalance:
		return ErrInsufficientBalance
	case KindInvalidLeaveType:
		return ErrInvalidLeaveType
	case KindNotFound:
		return ErrRequestNotFound
	default:
		return ErrInvalidState
	}
}

func missingField(field string) *ValidationError {
	return &ValidationError{Kind: KindMissingField, Field: field, Message: "is required"}
}

// =============================================================================
// HELPERS
// =============================================================================

// IsValidation reports whether err is a rejected submission.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// KindOf classifies err. The second result is false for errors outside
// the leave taxonomy (storage failures and the like).
func KindOf(err error) (ErrorKind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	switch {
	case errors.Is(err, ErrInvalidLeaveType):
		return KindInvalidLeaveType, true
	case errors.Is(err, ErrRequestNotFound):
		return KindNotFound, true
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState, true
	case errors.Is(err, ErrMissingField):
		return KindMissingField, true
	case errors.Is(err, ErrInvalidRange):
		return KindInvalidRange, true
	case errors.Is(err, ErrZeroDuration):
		return KindZeroDuration, true
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance, true
	}
	return "", false
}
