package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Lifecycle event names emitted by the plan/hold engines.
const (
	PlanCreated   = "PlanCreated"
	PlanCanceled  = "PlanCanceled"
	PlanRestored  = "PlanRestored"
	PlanDeleted   = "PlanDeleted"
	HoldCreated   = "HoldCreated"
	HoldActivated = "HoldActivated"
	HoldExpired   = "HoldExpired"
	HoldCanceled  = "HoldCanceled"
)

// Event is a lifecycle notification handed to downstream consumers
// (billing completion jobs, notifications, reporting).
type Event struct {
	Name       string         `json:"name"`
	OrgID      int64          `json:"org_id"`
	PlanID     int64          `json:"plan_id,omitempty"`
	HoldID     int64          `json:"hold_id,omitempty"`
	MemberID   int64          `json:"member_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher receives lifecycle events after a transition has committed.
// It is a fire-and-forget, at-least-once sink: a failed publish never
// rolls back the transition. Callers ignore the returned error beyond
// logging.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.WithFields(logrus.Fields{
		"event":     e.Name,
		"org_id":    e.OrgID,
		"plan_id":   e.PlanID,
		"hold_id":   e.HoldID,
		"member_id": e.MemberID,
	}).Info("lifecycle event")
	return nil
}

// MultiPublisher fans an event out to several sinks. Each sink failure
// is logged and swallowed so one broken consumer cannot starve the rest.
type MultiPublisher struct {
	sinks []Publisher
	log   *logrus.Logger
}

func NewMultiPublisher(log *logrus.Logger, sinks ...Publisher) *MultiPublisher {
	return &MultiPublisher{sinks: sinks, log: log}
}

func (p *MultiPublisher) Publish(ctx context.Context, e Event) error {
	for _, s := range p.sinks {
		if err := s.Publish(ctx, e); err != nil {
			p.log.WithError(err).WithField("event", e.Name).Warn("event sink failed")
		}
	}
	return nil
}
