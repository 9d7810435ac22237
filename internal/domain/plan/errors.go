package plan

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("plan not found")
	ErrTemplateNotFound = errors.New("plan template not found")

	// ErrInvalidState: the operation has no trigger from the plan's
	// current state (e.g. activating an already-active plan).
	ErrInvalidState = errors.New("operation not allowed in current plan state")

	// ErrIneligibleTransition: an eligibility guard rejected the
	// transition.
	ErrIneligibleTransition = errors.New("plan is not eligible for this transition")

	// ErrQuotaExceeded: consumption would push consumed past the total
	// quota.
	ErrQuotaExceeded = errors.New("session quota exceeded")

	// ErrInvariantViolation: a cross-entity consistency check failed.
	// Indicates a caller bug, not user error.
	ErrInvariantViolation = errors.New("plan invariant violation")
)

// QuotaError carries quota context for staff-facing display.
type QuotaError struct {
	Requested int
	Remaining int
	Total     int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("session quota exceeded: requested %d, %d of %d remaining", e.Requested, e.Remaining, e.Total)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
