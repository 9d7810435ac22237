package hold

import "time"

// Status of a plan hold. Like plans, status is the single source of
// truth; the canceled flag is derived.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// PreBookingBehavior controls what happens to bookings that fall inside
// the hold window when the hold starts or ends.
type PreBookingBehavior string

const (
	// BehaviorCancel cancels affected bookings (and restores them when
	// the hold ends early).
	BehaviorCancel PreBookingBehavior = "cancel"
	// BehaviorKeep leaves affected bookings untouched.
	BehaviorKeep PreBookingBehavior = "keep"
)

// Hold is a scheduled suspension of a plan for a date-time window.
// Windows are half-open: [StartDateTime, EndDateTime).
type Hold struct {
	ID                  int64 `json:"id" gorm:"primaryKey"`
	OrgID               int64 `json:"org_id" gorm:"index;not null"`
	PlanID              int64 `json:"plan_id" gorm:"index;not null"`
	MemberID            int64 `json:"member_id"`
	RequestedByMemberID int64 `json:"requested_by_member_id"`

	StartDateTime time.Time `json:"start_date_time"`
	EndDateTime   time.Time `json:"end_date_time"`

	BehaviorOnHoldStart PreBookingBehavior `json:"pre_booking_behavior_on_hold_start" gorm:"column:behavior_on_hold_start;size:20"`
	BehaviorOnHoldEnd   PreBookingBehavior `json:"pre_booking_behavior_on_hold_end" gorm:"column:behavior_on_hold_end;size:20"`

	Status Status `json:"status" gorm:"index;size:20"`

	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Hold) TableName() string { return "plan_holds" }

// IsCanceled is derived from Status.
func (h *Hold) IsCanceled() bool { return h.Status == StatusCanceled }

// IsTerminal reports whether the hold can no longer change state.
func (h *Hold) IsTerminal() bool {
	return h.Status == StatusExpired || h.Status == StatusCanceled
}

// Window returns the hold's [start, end) window.
func (h *Hold) Window() Window {
	return Window{Start: h.StartDateTime, End: h.EndDateTime}
}
