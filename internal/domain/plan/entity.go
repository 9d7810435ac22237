package plan

import (
	"time"
)

// Status of a member plan. Status is the single source of truth for the
// plan lifecycle: the canceled/deleted convenience flags are derived from
// it and never stored separately.
type Status string

const (
	StatusNone         Status = "none"
	StatusUpcoming     Status = "upcoming"
	StatusActive       Status = "active"
	StatusHold         Status = "hold"
	StatusCanceled     Status = "canceled"
	StatusDeleted      Status = "deleted"
	StatusPending      Status = "pending"
	StatusExpiredLimit Status = "expired_limit"
	StatusExpired      Status = "expired"
)

// Kind of plan sold by a gym.
type Kind string

const (
	KindMembership Kind = "membership"
	KindDropIn     Kind = "drop_in"
	KindPT         Kind = "personal_training"
	KindOpenGym    Kind = "open_gym"
	KindProgram    Kind = "program"
)

// Venue is the delivery mode of a plan.
type Venue string

const (
	VenueInPerson Venue = "in_person"
	VenueVirtual  Venue = "virtual"
)

// DiscountUnit for template/plan discounts.
type DiscountUnit string

const (
	DiscountPercent DiscountUnit = "percent"
	DiscountAmount  DiscountUnit = "amount"
)

// Template is the catalog entry a plan is purchased from.
type Template struct {
	ID            int64        `json:"id" gorm:"primaryKey"`
	OrgID         int64        `json:"org_id" gorm:"index;not null"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty" gorm:"type:text"`
	Kind          Kind         `json:"kind"`
	Venue         Venue        `json:"venue"`
	Price         float64      `json:"price"`
	Currency      string       `json:"currency"`
	DurationDays  int          `json:"duration_days"`
	SessionQuota  *int         `json:"session_quota,omitempty"` // nil = unlimited
	DiscountValue float64      `json:"discount_value,omitempty"`
	DiscountUnit  DiscountUnit `json:"discount_unit,omitempty"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Template) TableName() string { return "plan_templates" }

// Plan is one member-plan purchase.
//
// StartDate/EndDate are raw local dates (stored as DATE, compared at day
// granularity), not timezone-aware instants. EndDate is inclusive: the
// plan is usable through the end of EndDate and expired the day after.
type Plan struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	UUID     string `json:"uuid" gorm:"uniqueIndex;size:36"`
	OrgID    int64  `json:"org_id" gorm:"index;not null"`
	MemberID int64  `json:"member_id" gorm:"index;not null"`

	TemplateID    int64        `json:"template_id"`
	Price         float64      `json:"price"`
	Currency      string       `json:"currency"`
	DiscountValue float64      `json:"discount_value,omitempty"`
	DiscountUnit  DiscountUnit `json:"discount_unit,omitempty"`

	StartDate time.Time `json:"start_date" gorm:"type:date"`
	EndDate   time.Time `json:"end_date" gorm:"type:date"`

	TotalQuota         *int `json:"total_quota,omitempty"` // nil = unlimited
	TotalQuotaConsumed int  `json:"total_quota_consumed"`

	Status Status `json:"status" gorm:"index;size:20"`

	CancelReason string     `json:"cancel_reason,omitempty" gorm:"type:text"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Plan) TableName() string { return "member_plans" }

// IsCanceled is derived from Status.
func (p *Plan) IsCanceled() bool { return p.Status == StatusCanceled }

// IsDeleted is derived from Status.
func (p *Plan) IsDeleted() bool { return p.Status == StatusDeleted }

// DateOnly truncates an instant to its local calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsExpired reports whether the plan's paid period lies entirely in the
// past at the given instant. EndDate itself is still a valid day.
func (p *Plan) IsExpired(now time.Time) bool {
	if p.EndDate.IsZero() {
		return false
	}
	return DateOnly(now).After(DateOnly(p.EndDate))
}

// IsStarted reports whether the plan's start date has been reached.
func (p *Plan) IsStarted(now time.Time) bool {
	return !DateOnly(now).Before(DateOnly(p.StartDate))
}

// QuotaExhausted reports whether a bounded quota has been fully consumed.
func (p *Plan) QuotaExhausted() bool {
	return p.TotalQuota != nil && p.TotalQuotaConsumed >= *p.TotalQuota
}

// CurrentStatus recomputes the lazily-derived status against "now".
// Expiry is not flipped by a background sweep: callers derive it on read
// and persist it on the next write-triggering operation.
func (p *Plan) CurrentStatus(now time.Time) Status {
	switch p.Status {
	case StatusUpcoming:
		if !p.IsStarted(now) {
			return StatusUpcoming
		}
		if p.IsExpired(now) {
			return StatusExpired
		}
		return StatusActive
	case StatusActive:
		if p.QuotaExhausted() {
			return StatusExpiredLimit
		}
		if p.IsExpired(now) {
			return StatusExpired
		}
		return StatusActive
	default:
		return p.Status
	}
}

// IsCurrent reports whether the plan is usable right now.
func (p *Plan) IsCurrent(now time.Time) bool {
	return p.CurrentStatus(now) == StatusActive
}

// RemainingDays returns whole days left until EndDate (inclusive), never
// negative.
func (p *Plan) RemainingDays(now time.Time) int {
	if p.EndDate.IsZero() || p.IsExpired(now) {
		return 0
	}
	d := int(DateOnly(p.EndDate).Sub(DateOnly(now)).Hours()/24) + 1
	if d < 0 {
		return 0
	}
	return d
}
