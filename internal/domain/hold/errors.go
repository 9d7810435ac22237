package hold

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("hold not found")

	// ErrInvalidWindow: end is not strictly after start.
	ErrInvalidWindow = errors.New("hold end must be after hold start")

	// ErrOverlap: the requested window intersects a non-canceled hold
	// on the same plan.
	ErrOverlap = errors.New("hold window overlaps an existing hold")

	// ErrInvalidState: the hold has no such transition from its current
	// state (e.g. canceling an expired hold).
	ErrInvalidState = errors.New("operation not allowed in current hold state")
)

// OverlapError names the conflicting hold so staff can resolve it.
type OverlapError struct {
	HoldID int64
	Start  time.Time
	End    time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("hold window overlaps hold %d (%s – %s)",
		e.HoldID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }
