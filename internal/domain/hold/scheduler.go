package hold

import (
	"math"
	"time"
)

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether End is strictly after Start.
func (w Window) Valid() bool { return w.End.After(w.Start) }

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether the two half-open windows intersect.
// Back-to-back windows (one ends exactly where the other starts) do not
// overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// FindOverlap returns the first non-canceled hold whose window
// intersects w, or nil.
func FindOverlap(holds []*Hold, w Window) *Hold {
	for _, h := range holds {
		if h.IsCanceled() {
			continue
		}
		if h.Window().Overlaps(w) {
			return h
		}
	}
	return nil
}

// DurationDays returns the hold's length in whole days. Partial days
// round up: a member on hold for any part of a day gets the full day
// back on the plan's end date.
func DurationDays(h *Hold) int {
	if !h.Window().Valid() {
		return 0
	}
	return int(math.Ceil(h.EndDateTime.Sub(h.StartDateTime).Hours() / 24))
}

// RemainingDays returns whole days left until the hold's end, never
// negative; terminal holds and past windows report 0.
func RemainingDays(h *Hold, now time.Time) int {
	if h.IsTerminal() || !h.EndDateTime.After(now) {
		return 0
	}
	return int(math.Ceil(h.EndDateTime.Sub(now).Hours() / 24))
}

// ShiftedEndDate extends a plan end date by the hold's duration in days.
// This is the date-shift rule: a completed hold pushes the plan end out
// so members never lose paid time to a suspension. Computed once, at
// hold completion.
func ShiftedEndDate(planEnd time.Time, h *Hold) time.Time {
	return planEnd.AddDate(0, 0, DurationDays(h))
}
