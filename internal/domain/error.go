package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Promo redemption errors
	ErrPromoNotFound  = errors.New("promo code not found")
	ErrPromoExhausted = errors.New("promo code usage limit reached")
	ErrPromoExpired   = errors.New("promo code expired")
	ErrPromoWrongPlan = errors.New("promo code not valid for this plan")

	// Provisioning errors. Only ErrUpstreamUnavailable is retryable.
	ErrDuplicateTransaction = errors.New("duplicate user or transaction on upstream")
	ErrUpstreamAuth         = errors.New("upstream authentication error")
	ErrUpstreamValidation   = errors.New("upstream rejected request as invalid")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrMalformedPayload     = errors.New("upstream returned success without expected payload")
)
