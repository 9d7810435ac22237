package plan

import "fmt"

// transition is one edge of the plan state machine.
type transition struct {
	From Status
	To   Status
}

// validTransitions defines every allowed state change. Anything not
// listed here is a bug in the caller, not a user error.
var validTransitions = map[transition]bool{
	{StatusNone, StatusUpcoming}: true, // activated with a future start
	{StatusNone, StatusActive}:   true, // activated, already started
	{StatusNone, StatusPending}:  true, // awaiting payment settlement

	{StatusPending, StatusUpcoming}: true, // payment settled
	{StatusPending, StatusActive}:   true,
	{StatusPending, StatusCanceled}: true, // payment abandoned

	{StatusUpcoming, StatusActive}:   true, // start date reached
	{StatusUpcoming, StatusCanceled}: true,
	{StatusUpcoming, StatusExpired}:  true, // lazy recompute on a stale row

	{StatusActive, StatusHold}:         true, // a hold became active
	{StatusActive, StatusCanceled}:     true,
	{StatusActive, StatusExpired}:      true, // end date passed
	{StatusActive, StatusExpiredLimit}: true, // quota exhausted

	{StatusHold, StatusActive}:       true, // hold completed, plan current
	{StatusHold, StatusUpcoming}:     true, // hold on a not-yet-started plan
	{StatusHold, StatusExpired}:      true, // shifted end still in the past
	{StatusHold, StatusExpiredLimit}: true,
	{StatusHold, StatusCanceled}:     true, // plan canceled while on hold

	{StatusCanceled, StatusActive}:       true, // reinstated
	{StatusCanceled, StatusUpcoming}:     true,
	{StatusCanceled, StatusExpired}:      true, // reinstated past its end date
	{StatusCanceled, StatusExpiredLimit}: true, // reinstated with quota spent
}

// CanTransition reports whether from→to is a legal state change.
// Soft delete is allowed from every non-deleted state.
func CanTransition(from, to Status) bool {
	if to == StatusDeleted {
		return from != StatusDeleted
	}
	return validTransitions[transition{from, to}]
}

// TransitionTo applies a state change after validating it against the
// transition table. An illegal change is an invariant violation.
func (p *Plan) TransitionTo(to Status) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrInvariantViolation, p.Status, to)
	}
	p.Status = to
	return nil
}
