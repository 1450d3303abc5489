package model

import "time"

// PromoCode is a discount definition. Codes are stored upper-cased; lookups
// normalize the same way. Expiry is logical only, expired codes stay stored.
type PromoCode struct {
	Code              string    `json:"code"`
	DiscountPercent   int       `json:"discount_percentage"` // 1..100
	UsageLimit        int       `json:"usage_limit"`         // >= 1
	UsageCount        int       `json:"usage_count"`
	ExpiresAt         time.Time `json:"expires_at"`
	ApplicablePlanIDs []string  `json:"applicable_plan_ids,omitempty"` // empty = all plans
}

// UsableFor reports whether the code can be redeemed now for the given plan.
func (p PromoCode) UsableFor(planID string, now time.Time) bool {
	if p.UsageCount >= p.UsageLimit {
		return false
	}
	if !now.Before(p.ExpiresAt) {
		return false
	}
	if len(p.ApplicablePlanIDs) == 0 {
		return true
	}
	for _, id := range p.ApplicablePlanIDs {
		if id == planID {
			return true
		}
	}
	return false
}
