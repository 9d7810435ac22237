package hold

import (
	"time"

	"fitdesk/internal/domain/hold"
)

// RequestHoldRequest schedules a hold on a plan. Datetimes are RFC3339
// and the window is half-open: [start, end).
type RequestHoldRequest struct {
	MemberID            int64     `json:"member_id" binding:"required"`
	RequestedByMemberID int64     `json:"requested_by_member_id"`
	StartDateTime       time.Time `json:"start_date_time" binding:"required"`
	EndDateTime         time.Time `json:"end_date_time" binding:"required"`
	BehaviorOnHoldStart string    `json:"pre_booking_behavior_on_hold_start" binding:"omitempty,oneof=cancel keep"`
	BehaviorOnHoldEnd   string    `json:"pre_booking_behavior_on_hold_end" binding:"omitempty,oneof=cancel keep"`
}

// HoldResponse is the public hold view.
type HoldResponse struct {
	ID                  int64      `json:"id"`
	PlanID              int64      `json:"plan_id"`
	MemberID            int64      `json:"member_id"`
	RequestedByMemberID int64      `json:"requested_by_member_id,omitempty"`
	StartDateTime       time.Time  `json:"start_date_time"`
	EndDateTime         time.Time  `json:"end_date_time"`
	BehaviorOnHoldStart string     `json:"pre_booking_behavior_on_hold_start"`
	BehaviorOnHoldEnd   string     `json:"pre_booking_behavior_on_hold_end"`
	Status              string     `json:"status"`
	IsCanceled          bool       `json:"is_canceled"`
	DurationDays        int        `json:"duration_days"`
	RemainingDays       int        `json:"remaining_days"`
	CanceledAt          *time.Time `json:"canceled_at,omitempty"`
}

func holdToResponse(h *hold.Hold, now time.Time) HoldResponse {
	return HoldResponse{
		ID:                  h.ID,
		PlanID:              h.PlanID,
		MemberID:            h.MemberID,
		RequestedByMemberID: h.RequestedByMemberID,
		StartDateTime:       h.StartDateTime,
		EndDateTime:         h.EndDateTime,
		BehaviorOnHoldStart: string(h.BehaviorOnHoldStart),
		BehaviorOnHoldEnd:   string(h.BehaviorOnHoldEnd),
		Status:              string(h.Status),
		IsCanceled:          h.IsCanceled(),
		DurationDays:        hold.DurationDays(h),
		RemainingDays:       hold.RemainingDays(h, now),
		CanceledAt:          h.CanceledAt,
	}
}
