package booking

import "time"

// Status of a class/session booking.
type Status string

const (
	StatusBooked   Status = "booked"
	StatusAttended Status = "attended"
	StatusCanceled Status = "canceled"
)

// HoldCancelReason marks bookings canceled by a plan hold so they can be
// restored when the hold ends early.
const HoldCancelReason = "plan_hold"

// Booking is a member's reserved session against a plan.
type Booking struct {
	ID       int64 `json:"id" gorm:"primaryKey"`
	OrgID    int64 `json:"org_id" gorm:"index;not null"`
	PlanID   int64 `json:"plan_id" gorm:"index;not null"`
	MemberID int64 `json:"member_id" gorm:"index;not null"`

	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status       Status `json:"status" gorm:"index;size:20"`
	CancelReason string `json:"cancel_reason,omitempty" gorm:"type:text"`

	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }
