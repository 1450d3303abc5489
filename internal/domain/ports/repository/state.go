package repository

import "context"

// ProofContext is the per-user conversational state set up by plan selection
// and promo redemption, and consumed by proof submission. A submission is
// only processable while AwaitingProof is set.
type ProofContext struct {
	SelectedPlanID  string `json:"selected_plan_id,omitempty"`
	ExpectedAmount  int64  `json:"expected_amount,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"` // provider label, e.g. "Wave Money"
	AwaitingProof   bool   `json:"awaiting_proof,omitempty"`
	AwaitingPromo   bool   `json:"awaiting_promo,omitempty"`
	PromoCode       string `json:"promo_code,omitempty"`
	DiscountPercent int    `json:"discount_applied,omitempty"`
	Language        string `json:"language,omitempty"` // "en" | "mm"
}

// StateRepository stores ProofContext keyed by Telegram id with a bounded
// TTL so abandoned flows expire on their own.
type StateRepository interface {
	GetState(ctx context.Context, tgID int64) (*ProofContext, error)
	SetState(ctx context.Context, tgID int64, state *ProofContext) error
	ClearState(ctx context.Context, tgID int64) error
}
