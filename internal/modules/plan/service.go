package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fitdesk/internal/domain/events"
	"fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/member"
	"fitdesk/internal/domain/plan"
	"fitdesk/internal/metrics"
)

// Service owns the plan lifecycle state machine. Every mutation runs in
// a single transaction with the plan row locked, so a plan and its holds
// form one consistency unit; events are published only after commit.
type Service struct {
	db      *gorm.DB
	plans   plan.Repository
	holds   hold.Repository
	members member.Repository
	events  events.Publisher
	log     *logrus.Logger

	now func() time.Time
}

func NewService(
	db *gorm.DB,
	plans plan.Repository,
	holds hold.Repository,
	members member.Repository,
	publisher events.Publisher,
	log *logrus.Logger,
) *Service {
	return &Service{
		db:      db,
		plans:   plans,
		holds:   holds,
		members: members,
		events:  publisher,
		log:     log,
		now:     time.Now,
	}
}

// PurchaseInput describes a plan purchase against a catalog template.
type PurchaseInput struct {
	MemberID      int64
	TemplateID    int64
	StartDate     time.Time // zero = today
	DiscountValue float64
	DiscountUnit  plan.DiscountUnit
}

// Activate creates a plan from a template and activates it: Upcoming
// when the start date is in the future, Active otherwise. Emits
// PlanCreated.
func (s *Service) Activate(ctx context.Context, orgID int64, in PurchaseInput) (*plan.Plan, error) {
	now := s.now()

	var created *plan.Plan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)

		if _, err := s.members.GetMemberByID(ctx, orgID, in.MemberID); err != nil {
			return err
		}
		tpl, err := plans.GetTemplateByID(ctx, orgID, in.TemplateID)
		if err != nil {
			return err
		}

		p, err := buildFromTemplate(orgID, in.MemberID, tpl, in.StartDate, in.DiscountValue, in.DiscountUnit, now)
		if err != nil {
			return err
		}
		if err := activate(p, now); err != nil {
			return err
		}
		if err := plans.Create(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Name: events.PlanCreated, OrgID: orgID,
		PlanID: created.ID, MemberID: created.MemberID, OccurredAt: now,
		Payload: map[string]any{"template_id": created.TemplateID, "status": created.Status},
	})
	return created, nil
}

// Cancel cancels an active, upcoming or held plan. Canceling a plan on
// hold also terminates its holds, applying the date-shift rule to the
// active one so a later reinstate keeps the member's paid time. Emits
// PlanCanceled.
func (s *Service) Cancel(ctx context.Context, orgID, planID int64, reason string) (*plan.Plan, error) {
	now := s.now()

	var p *plan.Plan
	var holdEvents []events.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)
		holds := s.holds.WithTx(tx)

		var err error
		p, err = plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}

		cur := p.CurrentStatus(now)
		if !plan.CanBeModified(p) {
			metrics.GuardFailures.WithLabelValues("ineligible").Inc()
			return plan.ErrIneligibleTransition
		}
		switch cur {
		case plan.StatusActive, plan.StatusUpcoming, plan.StatusHold:
		default:
			metrics.GuardFailures.WithLabelValues("ineligible").Inc()
			return plan.ErrIneligibleTransition
		}

		// Terminate open holds first so the Active-hold invariant
		// cannot dangle on a canceled plan.
		open, err := holds.ListByPlan(ctx, planID, false)
		if err != nil {
			return err
		}
		for _, h := range open {
			if h.IsTerminal() {
				continue
			}
			if h.Status == hold.StatusActive {
				p.EndDate = hold.ShiftedEndDate(p.EndDate, h)
			}
			h.Status = hold.StatusCanceled
			h.CanceledAt = &now
			if err := holds.Update(ctx, h); err != nil {
				return err
			}
			holdEvents = append(holdEvents, events.Event{
				Name: events.HoldCanceled, OrgID: orgID,
				PlanID: planID, HoldID: h.ID, MemberID: h.MemberID, OccurredAt: now,
				Payload: map[string]any{"cause": "plan_canceled"},
			})
		}

		p.Status = cur
		if err := p.TransitionTo(plan.StatusCanceled); err != nil {
			return err
		}
		p.CancelReason = reason
		p.CanceledAt = &now
		return plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, holdEvents...)
	s.publish(ctx, events.Event{
		Name: events.PlanCanceled, OrgID: orgID,
		PlanID: p.ID, MemberID: p.MemberID, OccurredAt: now,
		Payload: map[string]any{"reason": reason},
	})
	return p, nil
}

// Reinstate restores a canceled plan. The restored status is recomputed
// against now: Upcoming before the start date, Expired past the end
// date, ExpiredLimit on an exhausted quota, otherwise Active. Emits
// PlanRestored.
func (s *Service) Reinstate(ctx context.Context, orgID, planID int64) (*plan.Plan, error) {
	now := s.now()

	var p *plan.Plan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)

		var err error
		p, err = plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}
		if !plan.CanBeReinstated(p) {
			metrics.GuardFailures.WithLabelValues("ineligible").Inc()
			return plan.ErrIneligibleTransition
		}

		if err := p.TransitionTo(restoredStatus(p, now)); err != nil {
			return err
		}
		p.CancelReason = ""
		p.CanceledAt = nil
		return plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Name: events.PlanRestored, OrgID: orgID,
		PlanID: p.ID, MemberID: p.MemberID, OccurredAt: now,
		Payload: map[string]any{"status": p.Status},
	})
	return p, nil
}

// Transfer cancels the source plan and creates a new one from the
// target template, atomically. The new plan activates per its own start
// date.
func (s *Service) Transfer(ctx context.Context, orgID, planID, targetTemplateID int64) (*plan.Plan, error) {
	return s.replace(ctx, orgID, planID, targetTemplateID, "transfer", plan.CanBeTransferred)
}

// Upgrade has the transfer contract; downstream billing treats the two
// differently, so the emitted events carry the kind.
func (s *Service) Upgrade(ctx context.Context, orgID, planID, targetTemplateID int64) (*plan.Plan, error) {
	return s.replace(ctx, orgID, planID, targetTemplateID, "upgrade", plan.CanBeUpgraded)
}

func (s *Service) replace(
	ctx context.Context,
	orgID, planID, targetTemplateID int64,
	kind string,
	eligible func(*plan.Plan) bool,
) (*plan.Plan, error) {
	now := s.now()

	var source, created *plan.Plan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)

		var err error
		source, err = plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}

		source.Status = source.CurrentStatus(now)
		if !eligible(source) {
			metrics.GuardFailures.WithLabelValues("ineligible").Inc()
			return plan.ErrIneligibleTransition
		}

		tpl, err := plans.GetTemplateByID(ctx, orgID, targetTemplateID)
		if err != nil {
			return err
		}
		created, err = buildFromTemplate(orgID, source.MemberID, tpl, now, 0, "", now)
		if err != nil {
			return err
		}
		if err := activate(created, now); err != nil {
			return err
		}
		if err := plans.Create(ctx, created); err != nil {
			return err
		}

		if err := source.TransitionTo(plan.StatusCanceled); err != nil {
			return err
		}
		source.CancelReason = kind
		source.CanceledAt = &now
		return plans.Update(ctx, source)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx,
		events.Event{
			Name: events.PlanCanceled, OrgID: orgID,
			PlanID: source.ID, MemberID: source.MemberID, OccurredAt: now,
			Payload: map[string]any{"reason": kind, "replaced_by": created.ID},
		},
		events.Event{
			Name: events.PlanCreated, OrgID: orgID,
			PlanID: created.ID, MemberID: created.MemberID, OccurredAt: now,
			Payload: map[string]any{"kind": kind, "replaces": source.ID, "template_id": created.TemplateID},
		},
	)
	return created, nil
}

// ConsumeQuota records session consumption against a plan. A bounded
// quota never goes past its total: violating calls fail with a
// QuotaError and change nothing. Exhausting the quota flips the plan to
// ExpiredLimit.
func (s *Service) ConsumeQuota(ctx context.Context, orgID, planID int64, sessions int) (*plan.Plan, error) {
	now := s.now()

	var p *plan.Plan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)

		var err error
		p, err = plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}

		cur := p.CurrentStatus(now)
		if cur != plan.StatusActive {
			if cur == plan.StatusExpiredLimit {
				metrics.GuardFailures.WithLabelValues("quota").Inc()
				return quotaErrorFor(p, sessions)
			}
			metrics.GuardFailures.WithLabelValues("invalid_state").Inc()
			return plan.ErrInvalidState
		}
		p.Status = cur

		consumed, err := plan.QuotaOf(p).Consume(sessions)
		if err != nil {
			metrics.GuardFailures.WithLabelValues("quota").Inc()
			return err
		}
		p.TotalQuotaConsumed = consumed
		if p.QuotaExhausted() {
			if err := p.TransitionTo(plan.StatusExpiredLimit); err != nil {
				return err
			}
		}
		return plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes a plan. Idempotent: deleting a deleted plan is a
// no-op. Emits PlanDeleted on the first call.
func (s *Service) Delete(ctx context.Context, orgID, planID int64) (*plan.Plan, error) {
	now := s.now()

	var p *plan.Plan
	var already bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		plans := s.plans.WithTx(tx)

		var err error
		p, err = plans.GetByIDForUpdate(ctx, orgID, planID)
		if err != nil {
			return err
		}
		if p.IsDeleted() {
			already = true
			return nil
		}
		if err := p.TransitionTo(plan.StatusDeleted); err != nil {
			return err
		}
		p.DeletedAt = &now
		return plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if already {
		return p, nil
	}

	s.publish(ctx, events.Event{
		Name: events.PlanDeleted, OrgID: orgID,
		PlanID: p.ID, MemberID: p.MemberID, OccurredAt: now,
	})
	return p, nil
}

// Get returns a plan; the DTO layer derives the recomputed view.
func (s *Service) Get(ctx context.Context, orgID, planID int64) (*plan.Plan, error) {
	return s.plans.GetByID(ctx, orgID, planID)
}

// ListByMember returns a member's plans, newest first.
func (s *Service) ListByMember(ctx context.Context, orgID, memberID int64) ([]*plan.Plan, error) {
	return s.plans.ListByMember(ctx, orgID, memberID)
}

// ListTemplates returns the org's active catalog.
func (s *Service) ListTemplates(ctx context.Context, orgID int64) ([]*plan.Template, error) {
	return s.plans.ListTemplates(ctx, orgID)
}

// ExpireOverduePlans persists the lazily-derived Expired status for
// plans whose end date has passed, so reporting queries see them without
// waiting for the next member-triggered write. Run by the lifecycle
// worker.
func (s *Service) ExpireOverduePlans(ctx context.Context) (int, error) {
	now := s.now()

	candidates, err := s.plans.ListOverdue(ctx, now, 500)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range candidates {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			plans := s.plans.WithTx(tx)
			p, err := plans.GetByIDForUpdate(ctx, c.OrgID, c.ID)
			if err != nil {
				return err
			}
			cur := p.CurrentStatus(now)
			if cur == p.Status {
				return nil
			}
			if err := p.TransitionTo(cur); err != nil {
				return err
			}
			return plans.Update(ctx, p)
		})
		if err != nil {
			s.log.WithError(err).WithField("plan_id", c.ID).Warn("expire sweep: plan skipped")
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.WithError(err).WithField("event", e.Name).Warn("event publish failed")
		}
	}
}

// activate moves a freshly built plan out of None. Both dates must be
// set and ordered.
func activate(p *plan.Plan, now time.Time) error {
	if p.Status != plan.StatusNone {
		return plan.ErrInvalidState
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return plan.ErrInvalidState
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date %s before start date %s",
			plan.ErrInvariantViolation, p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}
	if !p.IsStarted(now) {
		return p.TransitionTo(plan.StatusUpcoming)
	}
	return p.TransitionTo(plan.StatusActive)
}

func buildFromTemplate(
	orgID, memberID int64,
	tpl *plan.Template,
	startDate time.Time,
	discountValue float64,
	discountUnit plan.DiscountUnit,
	now time.Time,
) (*plan.Plan, error) {
	if startDate.IsZero() {
		startDate = now
	}
	start := plan.DateOnly(startDate)
	if tpl.DurationDays <= 0 {
		return nil, fmt.Errorf("%w: template %d has no duration", plan.ErrInvariantViolation, tpl.ID)
	}

	if discountValue == 0 && tpl.DiscountValue != 0 {
		discountValue = tpl.DiscountValue
		discountUnit = tpl.DiscountUnit
	}
	price := discountedPrice(tpl.Price, discountValue, discountUnit)

	var quota *int
	if tpl.SessionQuota != nil {
		q := *tpl.SessionQuota
		quota = &q
	}

	return &plan.Plan{
		UUID:          uuid.New().String(),
		OrgID:         orgID,
		MemberID:      memberID,
		TemplateID:    tpl.ID,
		Price:         price,
		Currency:      tpl.Currency,
		DiscountValue: discountValue,
		DiscountUnit:  discountUnit,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, tpl.DurationDays),
		TotalQuota:    quota,
		Status:        plan.StatusNone,
	}, nil
}

func discountedPrice(price, value float64, unit plan.DiscountUnit) float64 {
	switch unit {
	case plan.DiscountPercent:
		price = price * (1 - value/100)
	case plan.DiscountAmount:
		price = price - value
	}
	if price < 0 {
		return 0
	}
	return price
}

// restoredStatus recomputes where a reinstated plan lands against now.
func restoredStatus(p *plan.Plan, now time.Time) plan.Status {
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

func quotaErrorFor(p *plan.Plan, requested int) error {
	total := 0
	if p.TotalQuota != nil {
		total = *p.TotalQuota
	}
	remaining := 0
	if r := plan.QuotaOf(p).Remaining(); r != nil {
		remaining = *r
	}
	return &plan.QuotaError{Requested: requested, Remaining: remaining, Total: total}
}
