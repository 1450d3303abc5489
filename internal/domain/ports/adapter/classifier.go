package adapter

import (
	"context"
	"time"

	"telegram-vpn-subscription/internal/domain/model"
)

// SlipImage is an uploaded payment screenshot.
type SlipImage struct {
	Data     []byte
	MIMEType string // e.g. "image/jpeg"
}

// ClassifyExpectation is the payment context the classifier checks the slip
// against. Now is advisory only: the classifier must never reject based on
// the date or time printed on the slip.
type ClassifyExpectation struct {
	Amount          int64  // final expected amount, MMK
	PaymentMethod   string // provider label; empty means any channel
	OriginalAmount  int64  // pre-discount price, 0 if no promo
	DiscountPercent int    // 0 if no promo
	Now             time.Time
}

// SlipClassifier turns an untrusted slip image into a structured verdict.
// Raw implementations may return transport errors; the checked wrapper is the
// boundary that converts every failure into an invalid VerificationResult.
type SlipClassifier interface {
	Classify(ctx context.Context, img SlipImage, expect ClassifyExpectation) (model.VerificationResult, error)
}
