package booking

import (
	"time"

	"fitdesk/internal/domain/booking"
)

// CreateBookingRequest books a session slot against a plan.
type CreateBookingRequest struct {
	PlanID    int64     `json:"plan_id" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// BookingResponse is the public booking view.
type BookingResponse struct {
	ID           int64      `json:"id"`
	PlanID       int64      `json:"plan_id"`
	MemberID     int64      `json:"member_id"`
	Title        string     `json:"title"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
}

func bookingToResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		PlanID:       b.PlanID,
		MemberID:     b.MemberID,
		Title:        b.Title,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
		CanceledAt:   b.CanceledAt,
	}
}
