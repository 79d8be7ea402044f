// Package apperr defines the error taxonomy of the appointment core.
//
// Every typed error wraps one of the sentinels below, so callers can branch
// with errors.Is on the cause and errors.As on the category.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrVehicleNotOwned          = errors.New("vehicle not owned by customer")
	ErrServiceNotFound          = errors.New("service not found")
	ErrTechnicianUnavailable    = errors.New("technician unavailable")
	ErrTechnicianConflict       = errors.New("technician schedule conflict")
	ErrSlotUnavailable          = errors.New("slot unavailable")
	ErrNoEligibleTechnician     = errors.New("no eligible technician")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrForbidden                = errors.New("forbidden")
	ErrInvalidTransition        = errors.New("invalid transition")
	ErrInvalidStatusForDecision = errors.New("invalid status for decision")
	ErrInvalidInput             = errors.New("invalid input")
)

// ValidationError reports malformed input: unknown ids, ownership, bad enums.
type ValidationError struct {
	Field  string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Field, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validation builds a ValidationError wrapping cause.
func Validation(cause error, field, detail string) error {
	return &ValidationError{Field: field, Detail: detail, Err: cause}
}

// InvalidTransitionError reports a state machine rule violation.
type InvalidTransitionError struct {
	From   string
	To     string
	Role   string
	Reason string
	// Err is ErrInvalidTransition, ErrForbidden or ErrInvalidStatusForDecision.
	Err error
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s for role %s", e.From, e.To, e.Role)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidTransition
	}
	return e.Err
}

// Is lets every InvalidTransitionError match ErrInvalidTransition as well as its cause.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ResourceUnavailableError reports exhausted slot or technician capacity.
type ResourceUnavailableError struct {
	Resource  string
	ID        string
	Remaining int
	Err       error
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s %s (remaining %d)", e.Err, e.Resource, e.ID, e.Remaining)
}

func (e *ResourceUnavailableError) Unwrap() error { return e.Err }

// PolicyViolationError reports a policy refusal with the computed values.
type PolicyViolationError struct {
	Policy       string
	HoursLeft    float64
	RequiredRole string
	Err          error
}

func (e *PolicyViolationError) Error() string {
	msg := fmt.Sprintf("%s: policy %s", e.Err, e.Policy)
	if e.RequiredRole != "" {
		msg += ", requires role " + e.RequiredRole
	}
	return fmt.Sprintf("%s, hours left %.2f", msg, e.HoursLeft)
}

func (e *PolicyViolationError) Unwrap() error { return e.Err }
