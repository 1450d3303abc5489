package usecase

import (
	"context"
	"strings"
	"time"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ PromoUseCase = (*promoUC)(nil)

// PromoUseCase validates and manages discount codes. Redemption here only
// checks usability; the usage counter is charged after a verified payment,
// so an exhausted-at-the-last-moment code can slightly oversell. Accepted.
type PromoUseCase interface {
	// Redeem validates code for planID (empty when no plan is selected yet).
	// Returns ErrPromoNotFound, ErrPromoExhausted, ErrPromoExpired or
	// ErrPromoWrongPlan on rejection.
	Redeem(ctx context.Context, code, planID string) (*model.PromoCode, error)

	// Create parses "CODE discount% limit [expiry-days]" admin input and
	// stores the code.
	Create(ctx context.Context, code string, discountPercent, usageLimit, expiryDays int, planIDs []string) (*model.PromoCode, error)

	// ChargeUsage increments the usage counter after a completed sale.
	ChargeUsage(ctx context.Context, code string) error
}

type promoUC struct {
	ledger repository.LedgerStore
	now    func() time.Time
}

func NewPromoUseCase(ledger repository.LedgerStore) *promoUC {
	return &promoUC{ledger: ledger, now: time.Now}
}

func (u *promoUC) Redeem(ctx context.Context, code, planID string) (*model.PromoCode, error) {
	promo, err := u.ledger.GetPromoCode(ctx, code)
	if err != nil {
		return nil, err
	}
	now := u.now()
	switch {
	case promo.UsageCount >= promo.UsageLimit:
		return nil, domain.ErrPromoExhausted
	case !now.Before(promo.ExpiresAt):
		return nil, domain.ErrPromoExpired
	case !promo.UsableFor(planID, now):
		return nil, domain.ErrPromoWrongPlan
	}
	return promo, nil
}

func (u *promoUC) Create(ctx context.Context, code string, discountPercent, usageLimit, expiryDays int, planIDs []string) (*model.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || discountPercent < 1 || discountPercent > 100 || usageLimit < 1 {
		return nil, domain.ErrInvalidArgument
	}
	if expiryDays <= 0 {
		expiryDays = 30
	}
	promo := model.PromoCode{
		Code:              code,
		DiscountPercent:   discountPercent,
		UsageLimit:        usageLimit,
		ExpiresAt:         u.now().AddDate(0, 0, expiryDays),
		ApplicablePlanIDs: planIDs,
	}
	if err := u.ledger.AddPromoCode(ctx, promo); err != nil {
		return nil, err
	}
	return &promo, nil
}

func (u *promoUC) ChargeUsage(ctx context.Context, code string) error {
	return u.ledger.IncrementPromoUsage(ctx, code)
}
