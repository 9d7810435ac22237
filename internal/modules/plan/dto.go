package plan

import (
	"time"

	"fitdesk/internal/domain/plan"
)

const dateLayout = "2006-01-02"

// PurchaseRequest starts a member plan from a catalog template.
type PurchaseRequest struct {
	TemplateID    int64   `json:"template_id" binding:"required"`
	StartDate     string  `json:"start_date"` // YYYY-MM-DD, empty = today
	DiscountValue float64 `json:"discount_value"`
	DiscountUnit  string  `json:"discount_unit" binding:"omitempty,oneof=percent amount"`
}

// CancelRequest carries the mandatory staff-facing cancel reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReplaceRequest selects the target template of a transfer or upgrade.
type ReplaceRequest struct {
	TargetTemplateID int64 `json:"target_template_id" binding:"required"`
}

// ConsumeRequest records session consumption.
type ConsumeRequest struct {
	Sessions int `json:"sessions" binding:"required,gt=0"`
}

// TemplateResponse is the public catalog entry.
type TemplateResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Kind            string  `json:"kind"`
	Venue           string  `json:"venue"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	DurationDays    int     `json:"duration_days"`
	SessionQuota    *int    `json:"session_quota,omitempty"`
	PricePerSession float64 `json:"price_per_session"`
}

// PlanResponse is the public plan view. Status reflects the stored
// value; CurrentStatus and the boolean flags are derived against now, so
// display never trusts a stale status column.
type PlanResponse struct {
	ID                 int64   `json:"id"`
	UUID               string  `json:"uuid"`
	MemberID           int64   `json:"member_id"`
	TemplateID         int64   `json:"template_id"`
	Price              float64 `json:"price"`
	Currency           string  `json:"currency"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	Status             string  `json:"status"`
	CurrentStatus      string  `json:"current_status"`
	IsCanceled         bool    `json:"is_canceled"`
	IsDeleted          bool    `json:"is_deleted"`
	TotalQuota         *int    `json:"total_quota,omitempty"`
	TotalQuotaConsumed int     `json:"total_quota_consumed"`
	RemainingQuota     *int    `json:"remaining_quota,omitempty"`
	UsagePercent       float64 `json:"usage_percent"`
	PricePerSession    float64 `json:"price_per_session"`
	RemainingDays      int     `json:"remaining_days"`
	CancelReason       string  `json:"cancel_reason,omitempty"`
}

func templateToResponse(t *plan.Template) TemplateResponse {
	return TemplateResponse{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		Kind:            string(t.Kind),
		Venue:           string(t.Venue),
		Price:           t.Price,
		Currency:        t.Currency,
		DurationDays:    t.DurationDays,
		SessionQuota:    t.SessionQuota,
		PricePerSession: plan.PricePerSession(t.Price, t.SessionQuota),
	}
}

func planToResponse(p *plan.Plan, now time.Time) PlanResponse {
	q := plan.QuotaOf(p)
	return PlanResponse{
		ID:                 p.ID,
		UUID:               p.UUID,
		MemberID:           p.MemberID,
		TemplateID:         p.TemplateID,
		Price:              p.Price,
		Currency:           p.Currency,
		StartDate:          p.StartDate.Format(dateLayout),
		EndDate:            p.EndDate.Format(dateLayout),
		Status:             string(p.Status),
		CurrentStatus:      string(p.CurrentStatus(now)),
		IsCanceled:         p.IsCanceled(),
		IsDeleted:          p.IsDeleted(),
		TotalQuota:         p.TotalQuota,
		TotalQuotaConsumed: p.TotalQuotaConsumed,
		RemainingQuota:     q.Remaining(),
		UsagePercent:       q.UsagePercent(),
		PricePerSession:    p.PricePerSession(),
		RemainingDays:      p.RemainingDays(now),
		CancelReason:       p.CancelReason,
	}
}
