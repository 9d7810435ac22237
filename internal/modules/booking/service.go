package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fitdesk/internal/domain/booking"
	"fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/plan"
)

var (
	ErrValidation    = errors.New("invalid booking request")
	ErrNotBooked     = errors.New("booking is not in booked state")
	ErrPlanNotUsable = errors.New("plan is not usable for booking")
)

// QuotaConsumer is implemented by the plan lifecycle service; check-in
// burns one session of the backing plan.
type QuotaConsumer interface {
	ConsumeQuota(ctx context.Context, orgID, planID int64, sessions int) (*plan.Plan, error)
}

// PlanReader is the read-side the booking flow needs from plans.
type PlanReader interface {
	Get(ctx context.Context, orgID, planID int64) (*plan.Plan, error)
}

// Service implements the booking side of the platform, including the
// booking-collaborator contract the hold engine calls at hold start/end.
type Service struct {
	bookings booking.Repository
	plans    PlanReader
	quota    QuotaConsumer
	log      *logrus.Logger

	now func() time.Time
}

func NewService(bookings booking.Repository, plans PlanReader, quota QuotaConsumer, log *logrus.Logger) *Service {
	return &Service{
		bookings: bookings,
		plans:    plans,
		quota:    quota,
		log:      log,
		now:      time.Now,
	}
}

// ApplyHoldStart adjusts bookings that fall inside an activating hold
// window. BehaviorCancel cancels them (marked so they can come back);
// BehaviorKeep leaves them untouched.
func (s *Service) ApplyHoldStart(ctx context.Context, planID int64, w hold.Window, behavior hold.PreBookingBehavior) error {
	if behavior != hold.BehaviorCancel {
		return nil
	}
	n, err := s.bookings.CancelInWindow(ctx, planID, w.Start, w.End, booking.HoldCancelReason)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"plan_id": planID, "bookings": n}).Info("bookings canceled for hold")
	}
	return nil
}

// ApplyHoldEnd restores hold-canceled bookings that have not started yet
// when the hold terminates early. BehaviorKeep leaves them canceled.
func (s *Service) ApplyHoldEnd(ctx context.Context, planID int64, w hold.Window, behavior hold.PreBookingBehavior) error {
	if behavior != hold.BehaviorCancel {
		return nil
	}
	now := s.now()
	n, err := s.bookings.RestoreInWindow(ctx, planID, w.Start, w.End, booking.HoldCancelReason, now)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"plan_id": planID, "bookings": n}).Info("bookings restored after hold")
	}
	return nil
}

// Create books a session against a usable plan.
func (s *Service) Create(ctx context.Context, orgID int64, req CreateBookingRequest) (*booking.Booking, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrValidation
	}
	now := s.now()
	if req.StartTime.Before(now) {
		return nil, ErrValidation
	}

	p, err := s.plans.Get(ctx, orgID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.IsCurrent(now) {
		return nil, ErrPlanNotUsable
	}

	b := &booking.Booking{
		OrgID:     orgID,
		PlanID:    req.PlanID,
		MemberID:  p.MemberID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    booking.StatusBooked,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CheckIn marks a booking attended and consumes one session from the
// backing plan's quota.
func (s *Service) CheckIn(ctx context.Context, orgID, bookingID int64) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, orgID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusBooked {
		return nil, ErrNotBooked
	}

	if _, err := s.quota.ConsumeQuota(ctx, orgID, b.PlanID, 1); err != nil {
		return nil, err
	}

	b.Status = booking.StatusAttended
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
