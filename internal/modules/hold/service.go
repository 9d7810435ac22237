package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fitdesk/internal/domain/events"
	"fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/plan"
	"fitdesk/internal/metrics"
)

// BookingAdjuster is the booking collaborator the hold engine calls when
// a hold starts or ends. Failures here propagate: a hold that cannot
// safely adjust bookings must not silently activate.
type BookingAdjuster interface {
	ApplyHoldStart(ctx context.Context, planID int64, w hold.Window, behavior hold.PreBookingBehavior) error
	ApplyHoldEnd(ctx context.Context, planID int64, w hold.Window, behavior hold.PreBookingBehavior) error
}

// Service owns the hold state machine and drives the plan date shift
// through the scheduler. A hold and its plan always change inside one
// transaction: a hold marked expired with the date shift lost is a
// correctness bug, not an acceptable race.
type Service struct {
	db       *gorm.DB
	holds    hold.Repository
	plans    plan.Repository
	bookings BookingAdjuster
	events   events.Publisher
	log      *logrus.Logger

	now func() time.Time
}

func NewService(
	db *gorm.DB,
	holds hold.Repository,
	plans plan.Repository,
	bookings BookingAdjuster,
	publisher events.Publisher,
	log *logrus.Logger,
) *Service {
	return &Service{
		db:       db,
		holds:    holds,
		plans:    plans,
		bookings: bookings,
		events:   publisher,
		log:      log,
		now:      time.Now,
	}
}

// RequestInput describes a hold request against a plan.
type RequestInput struct {
	MemberID            int64
	RequestedByMemberID int64
	StartDateTime       time.Time
	EndDateTime         time.Time
	BehaviorOnHoldStart hold.PreBookingBehavior
	BehaviorOnHoldEnd   hold.PreBookingBehavior
}

// Request creates a hold on an eligible plan. The hold starts as
// Upcoming, or as Active when the window already contains now; in that
// case the plan moves to Hold immediately and bookings inside the
// window are adjusted. Emits HoldCreated (and HoldActivated when
// activated on the spot).
func (s *Service) Request(ctx context.Context, orgID, planID int64, in RequestInput) (*hold.Hold, error) {
	now := s.now()

	w := hold.Window{Start: in.StartDateTime, End: in.EndDateTime}
	if !w.Valid() {
		return nil, hold.ErrInvalidWindow
	}

	var created *hold.Hold
	var activated bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		holds := s.holds.WithTx(tx)
		plans := s.plans.WithTx(tx)

		p, err := plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}
		if !plan.CanBeModified(p) {
			metrics.GuardFailures.WithLabelValues("ineligible").Inc()
			return plan.ErrIneligibleTransition
		}

		existing, err := holds.ListByPlan(ctx, planID, false)
		if err != nil {
			return err
		}
		if conflict := hold.FindOverlap(existing, w); conflict != nil {
			metrics.GuardFailures.WithLabelValues("overlap").Inc()
			return &hold.OverlapError{
				HoldID: conflict.ID,
				Start:  conflict.StartDateTime,
				End:    conflict.EndDateTime,
			}
		}

		h := &hold.Hold{
			OrgID:               orgID,
			PlanID:              planID,
			MemberID:            in.MemberID,
			RequestedByMemberID: in.RequestedByMemberID,
			StartDateTime:       in.StartDateTime,
			EndDateTime:         in.EndDateTime,
			BehaviorOnHoldStart: defaultBehavior(in.BehaviorOnHoldStart),
			BehaviorOnHoldEnd:   defaultBehavior(in.BehaviorOnHoldEnd),
			Status:              hold.StatusUpcoming,
		}

		if w.Contains(now) && p.CurrentStatus(now) == plan.StatusActive {
			h.Status = hold.StatusActive
			p.Status = p.CurrentStatus(now)
			if err := p.TransitionTo(plan.StatusHold); err != nil {
				return err
			}
			if err := plans.Update(ctx, p); err != nil {
				return err
			}
			if err := s.bookings.ApplyHoldStart(ctx, planID, w, h.BehaviorOnHoldStart); err != nil {
				return fmt.Errorf("adjust bookings for hold start: %w", err)
			}
			activated = true
		}

		if err := holds.Create(ctx, h); err != nil {
			return translateConstraint(err)
		}
		created = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Name: events.HoldCreated, OrgID: orgID,
		PlanID: planID, HoldID: created.ID, MemberID: created.MemberID, OccurredAt: now,
		Payload: map[string]any{"start": created.StartDateTime, "end": created.EndDateTime},
	})
	if activated {
		s.publish(ctx, events.Event{
			Name: events.HoldActivated, OrgID: orgID,
			PlanID: planID, HoldID: created.ID, MemberID: created.MemberID, OccurredAt: now,
		})
	}
	return created, nil
}

// ActivateDueHolds moves upcoming holds whose window has been reached to
// Active, driving their plans to Hold. Idempotent; meant to be invoked
// by the lifecycle worker. Returns the number of holds activated.
func (s *Service) ActivateDueHolds(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.holds.ListDueForActivation(ctx, now, 200)
	if err != nil {
		return 0, err
	}

	activated := 0
	for _, d := range due {
		ok, err := s.activateOne(ctx, d.OrgID, d.ID, now)
		if err != nil {
			s.log.WithError(err).WithField("hold_id", d.ID).Warn("hold activation skipped")
			continue
		}
		if ok {
			activated++
		}
	}
	return activated, nil
}

func (s *Service) activateOne(ctx context.Context, orgID, holdID int64, now time.Time) (bool, error) {
	var h *hold.Hold
	var planID, memberID int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		holds := s.holds.WithTx(tx)
		plans := s.plans.WithTx(tx)

		var err error
		h, err = holds.GetByIDForUpdate(ctx, orgID, holdID)
		if err != nil {
			return err
		}
		if h.Status != hold.StatusUpcoming {
			h = nil // raced with another worker
			return nil
		}

		p, err := plans.GetByIDForUpdate(ctx, orgID, h.PlanID)
		if err != nil {
			return err
		}
		if !plan.CanBeModified(p) {
			// The plan was canceled or deleted under the hold;
			// retire the request instead of retrying forever.
			h.Status = hold.StatusCanceled
			h.CanceledAt = &now
			err := holds.Update(ctx, h)
			h = nil
			return err
		}
		if p.CurrentStatus(now) != plan.StatusActive {
			// Not started yet (or already expired): leave the hold
			// for a later sweep.
			h = nil
			return nil
		}

		p.Status = p.CurrentStatus(now)
		if err := p.TransitionTo(plan.StatusHold); err != nil {
			return err
		}
		if err := plans.Update(ctx, p); err != nil {
			return err
		}
		if err := s.bookings.ApplyHoldStart(ctx, h.PlanID, h.Window(), h.BehaviorOnHoldStart); err != nil {
			return fmt.Errorf("adjust bookings for hold start: %w", err)
		}

		h.Status = hold.StatusActive
		planID, memberID = h.PlanID, h.MemberID
		return holds.Update(ctx, h)
	})
	if err != nil || h == nil {
		return false, err
	}

	s.publish(ctx, events.Event{
		Name: events.HoldActivated, OrgID: orgID,
		PlanID: planID, HoldID: holdID, MemberID: memberID, OccurredAt: now,
	})
	return true, nil
}

// ExpireDueHolds moves active holds whose window has elapsed to Expired
// and applies the date-shift rule: the plan's end date is extended by
// the hold's duration in days, in the same transaction, so members never
// lose paid time to a hold. Returns the number of holds expired.
func (s *Service) ExpireDueHolds(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.holds.ListDueForExpiry(ctx, now, 200)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, d := range due {
		if err := s.completeHold(ctx, d.OrgID, d.ID, now, hold.StatusExpired); err != nil {
			s.log.WithError(err).WithField("hold_id", d.ID).Warn("hold expiry skipped")
			continue
		}
		expired++
	}
	return expired, nil
}

// Cancel cancels a hold. Allowed from Upcoming and Active only, never
// after expiry. Canceling an Active hold releases the plan and applies
// the same date shift as expiry; canceling an Upcoming hold shifts
// nothing. Hold and plan change in one transaction.
func (s *Service) Cancel(ctx context.Context, orgID, holdID int64) (*hold.Hold, error) {
	now := s.now()

	var h *hold.Hold
	var shifted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		holds := s.holds.WithTx(tx)

		var err error
		h, err = holds.GetByIDForUpdate(ctx, orgID, holdID)
		if err != nil {
			return err
		}

		switch h.Status {
		case hold.StatusUpcoming:
			h.Status = hold.StatusCanceled
			h.CanceledAt = &now
			return holds.Update(ctx, h)
		case hold.StatusActive:
			shifted = true
			return s.finishHold(ctx, tx, h, now, hold.StatusCanceled)
		default:
			metrics.GuardFailures.WithLabelValues("invalid_state").Inc()
			return hold.ErrInvalidState
		}
	})
	if err != nil {
		return nil, err
	}

	ev := events.Event{
		Name: events.HoldCanceled, OrgID: orgID,
		PlanID: h.PlanID, HoldID: h.ID, MemberID: h.MemberID, OccurredAt: now,
	}
	if shifted {
		ev.Payload = map[string]any{"shift_days": hold.DurationDays(h)}
	}
	s.publish(ctx, ev)
	return h, nil
}

// completeHold terminates an Active hold (to Expired or Canceled) inside
// its own transaction; the sweep entry point into finishHold.
func (s *Service) completeHold(ctx context.Context, orgID, holdID int64, now time.Time, terminal hold.Status) error {
	var h *hold.Hold
	err := s.db.Transaction(func(tx *gorm.DB) error {
		holds := s.holds.WithTx(tx)

		var err error
		h, err = holds.GetByIDForUpdate(ctx, orgID, holdID)
		if err != nil {
			return err
		}
		if h.Status != hold.StatusActive {
			return hold.ErrInvalidState
		}
		return s.finishHold(ctx, tx, h, now, terminal)
	})
	if err != nil {
		return err
	}

	name := events.HoldExpired
	if terminal == hold.StatusCanceled {
		name = events.HoldCanceled
	}
	s.publish(ctx, events.Event{
		Name: name, OrgID: orgID,
		PlanID: h.PlanID, HoldID: h.ID, MemberID: h.MemberID, OccurredAt: now,
		Payload: map[string]any{"shift_days": hold.DurationDays(h)},
	})
	return nil
}

// finishHold retires an already-locked Active hold within tx: shifts the
// plan end date by the hold duration, recomputes the plan's post-hold
// status against now and restores bookings.
func (s *Service) finishHold(ctx context.Context, tx *gorm.DB, h *hold.Hold, now time.Time, terminal hold.Status) error {
	holds := s.holds.WithTx(tx)
	plans := s.plans.WithTx(tx)

	p, err := plans.GetByIDForUpdate(ctx, h.OrgID, h.PlanID)
	if err != nil {
		return err
	}
	if p.Status != plan.StatusHold {
		// An active hold on a plan that is not on hold breaks the
		// plan↔hold consistency unit.
		return fmt.Errorf("%w: plan %d is %s with an active hold",
			plan.ErrInvariantViolation, p.ID, p.Status)
	}

	p.EndDate = hold.ShiftedEndDate(p.EndDate, h)
	if err := p.TransitionTo(postHoldStatus(p, now)); err != nil {
		return err
	}
	if err := plans.Update(ctx, p); err != nil {
		return err
	}

	if err := s.bookings.ApplyHoldEnd(ctx, h.PlanID, h.Window(), h.BehaviorOnHoldEnd); err != nil {
		return fmt.Errorf("adjust bookings for hold end: %w", err)
	}

	h.Status = terminal
	if terminal == hold.StatusCanceled {
		h.CanceledAt = &now
	}
	return holds.Update(ctx, h)
}

// ListByPlan returns a plan's holds, canceled ones included.
func (s *Service) ListByPlan(ctx context.Context, orgID, planID int64) ([]*hold.Hold, error) {
	if _, err := s.plans.GetByID(ctx, orgID, planID); err != nil {
		return nil, err
	}
	return s.holds.ListByPlan(ctx, planID, true)
}

// Get returns one hold.
func (s *Service) Get(ctx context.Context, orgID, holdID int64) (*hold.Hold, error) {
	return s.holds.GetByID(ctx, orgID, holdID)
}

func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.WithError(err).WithField("event", e.Name).Warn("event publish failed")
		}
	}
}

func defaultBehavior(b hold.PreBookingBehavior) hold.PreBookingBehavior {
	if b == "" {
		return hold.BehaviorCancel
	}
	return b
}

// translateConstraint maps the postgres overlap exclusion constraint to
// the domain error; the pre-insert check already covers the common path,
// this closes the race between two concurrent requests.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23P01 exclusion_violation, 23505 unique_violation
		if pgErr.Code == "23P01" || pgErr.Code == "23505" {
			return hold.ErrOverlap
		}
	}
	return err
}

// postHoldStatus recomputes where a plan lands when its hold completes.
func postHoldStatus(p *plan.Plan, now time.Time) plan.Status {
	if !p.IsStarted(now) {
		return plan.StatusUpcoming
	}
	if p.IsExpired(now) {
		return plan.StatusExpired
	}
	if p.QuotaExhausted() {
		return plan.StatusExpiredLimit
	}
	return plan.StatusActive
}
