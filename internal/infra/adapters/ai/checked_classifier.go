package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.SlipClassifier = (*CheckedClassifier)(nil)

// CheckedClassifier wraps a raw classifier and enforces verdict hygiene the
// model cannot be trusted with: transport failures become rejections instead
// of errors, a detected app that contradicts the user's selection overrides
// the verdict, low confidence and a missing transaction id fail closed.
type CheckedClassifier struct {
	inner adapter.SlipClassifier
	log   *zerolog.Logger
}

func NewCheckedClassifier(inner adapter.SlipClassifier, logger *zerolog.Logger) *CheckedClassifier {
	return &CheckedClassifier{inner: inner, log: logger}
}

const minConfidence = 0.7

func (c *CheckedClassifier) Classify(ctx context.Context, img adapter.SlipImage, expect adapter.ClassifyExpectation) (model.VerificationResult, error) {
	res, err := c.inner.Classify(ctx, img, expect)
	if err != nil {
		c.log.Error().Err(err).Msg("classifier call failed")
		return model.VerificationResult{
			IsValid:    false,
			Reason:     fmt.Sprintf("Verification failed: %v", err),
			Confidence: 0,
		}, nil
	}

	if expect.PaymentMethod != "" && res.DetectedPaymentApp != "" && !channelsMatch(expect.PaymentMethod, res.DetectedPaymentApp) {
		res.IsValid = false
		res.Reason = fmt.Sprintf("Payment app mismatch! You selected %s but uploaded a %s screenshot.",
			expect.PaymentMethod, res.DetectedPaymentApp)
		res.FraudIndicators = append(res.FraudIndicators, "Payment app does not match selection")
	}

	if res.IsValid && res.Confidence < minConfidence {
		res.IsValid = false
		res.Reason = fmt.Sprintf("Low confidence (%.0f%%) - manual review needed. %s", res.Confidence*100, res.Reason)
	}

	if res.IsValid && res.TransactionID == "" {
		res.IsValid = false
		res.Reason = "No transaction ID found - cannot verify payment uniqueness."
	}

	if len(res.FraudIndicators) > 0 {
		c.log.Warn().Strs("indicators", res.FraudIndicators).Msg("fraud indicators detected")
	}
	c.log.Info().
		Bool("valid", res.IsValid).
		Int64("amount", res.DetectedAmount).
		Str("tx_ref", res.TransactionID).
		Float64("confidence", res.Confidence).
		Str("expected_app", expect.PaymentMethod).
		Str("detected_app", res.DetectedPaymentApp).
		Msg("slip verdict")
	return res, nil
}

// channelsMatch compares provider labels loosely: "KBZPay", "KBZ Pay" and
// "KPay" all denote the same channel.
func channelsMatch(expected, detected string) bool {
	e := normalizeChannel(expected)
	d := normalizeChannel(detected)

	expKBZ := strings.Contains(e, "kbz") || strings.Contains(e, "kpay")
	expWave := strings.Contains(e, "wave")
	expAya := strings.Contains(e, "aya")

	detKBZ := strings.Contains(d, "kbz") || strings.Contains(d, "kpay")
	detWave := strings.Contains(d, "wave")
	detAya := strings.Contains(d, "aya")

	if expKBZ && !detKBZ {
		return false
	}
	if expWave && !detWave {
		return false
	}
	if expAya && !detAya {
		return false
	}
	return true
}

func normalizeChannel(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}
