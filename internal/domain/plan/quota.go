package plan

import "math"

// Quota is pure accounting over a plan's consumption counters.
// A nil Total means unlimited.
type Quota struct {
	Total    *int
	Consumed int
}

// QuotaOf extracts the quota counters from a plan.
func QuotaOf(p *Plan) Quota {
	return Quota{Total: p.TotalQuota, Consumed: p.TotalQuotaConsumed}
}

// Remaining returns the sessions left, or nil when unlimited.
func (q Quota) Remaining() *int {
	if q.Total == nil {
		return nil
	}
	r := *q.Total - q.Consumed
	if r < 0 {
		r = 0
	}
	return &r
}

// HasRemaining reports whether at least one session is left.
func (q Quota) HasRemaining() bool {
	if q.Total == nil {
		return true
	}
	return q.Consumed < *q.Total
}

// UsagePercent returns consumed/total as a percentage, capped at 100.
// Unlimited quotas always report 0.
func (q Quota) UsagePercent() float64 {
	if q.Total == nil || *q.Total == 0 {
		return 0
	}
	pct := float64(q.Consumed) / float64(*q.Total) * 100
	return math.Min(100, pct)
}

// Consume returns the updated consumed count, or a QuotaError when the
// consumption would exceed a bounded total. State is left for the caller
// to persist; a failed call changes nothing.
func (q Quota) Consume(n int) (int, error) {
	if n <= 0 {
		return q.Consumed, nil
	}
	if q.Total != nil && q.Consumed+n > *q.Total {
		r := *q.Total - q.Consumed
		if r < 0 {
			r = 0
		}
		return q.Consumed, &QuotaError{Requested: n, Remaining: r, Total: *q.Total}
	}
	return q.Consumed + n, nil
}

// PricePerSession derives the per-session price from the plan price and
// total quota, rounded half-up to 2 decimals like displayed currency.
// Unlimited or zero-quota plans report 0.
func PricePerSession(price float64, total *int) float64 {
	if total == nil || *total == 0 {
		return 0
	}
	return math.Round(price/float64(*total)*100) / 100
}

// PricePerSession on the plan itself.
func (p *Plan) PricePerSession() float64 {
	return PricePerSession(p.Price, p.TotalQuota)
}
