package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

type stubClassifier struct {
	res model.VerificationResult
	err error
}

func (s *stubClassifier) Classify(ctx context.Context, img adapter.SlipImage, expect adapter.ClassifyExpectation) (model.VerificationResult, error) {
	return s.res, s.err
}

func checked(res model.VerificationResult, err error) *CheckedClassifier {
	l := zerolog.Nop()
	return NewCheckedClassifier(&stubClassifier{res: res, err: err}, &l)
}

func classify(t *testing.T, c *CheckedClassifier, expect adapter.ClassifyExpectation) model.VerificationResult {
	t.Helper()
	res, err := c.Classify(context.Background(), adapter.SlipImage{Data: []byte{1}, MIMEType: "image/jpeg"}, expect)
	if err != nil {
		t.Fatalf("checked classifier must never error, got %v", err)
	}
	return res
}

func TestClassify_ErrorBecomesRejection(t *testing.T) {
	c := checked(model.VerificationResult{}, errors.New("gemini: 429 RESOURCE_EXHAUSTED"))
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 10000})
	if res.IsValid {
		t.Error("transport error must reject")
	}
	if !strings.Contains(res.Reason, "RESOURCE_EXHAUSTED") {
		t.Errorf("reason should carry the upstream error, got %q", res.Reason)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
}

func TestClassify_ChannelMismatchOverridesVerdict(t *testing.T) {
	c := checked(model.VerificationResult{
		IsValid:            true,
		TransactionID:      "TX1",
		Confidence:         0.95,
		DetectedPaymentApp: "KBZPay",
	}, nil)
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 10000, PaymentMethod: "Wave Money"})
	if res.IsValid {
		t.Error("mismatched channel must reject")
	}
	if !strings.Contains(res.Reason, "mismatch") {
		t.Errorf("reason = %q", res.Reason)
	}
	if len(res.FraudIndicators) == 0 {
		t.Error("expected a fraud indicator appended")
	}
}

func TestClassify_ChannelAliasesMatch(t *testing.T) {
	cases := []struct {
		expected, detected string
		ok                 bool
	}{
		{"KBZ Pay", "KBZPay", true},
		{"KPay", "KBZPay", true},
		{"Wave Money", "Wave", true},
		{"Aya Pay", "AyaPay", true},
		{"Wave Money", "AyaPay", false},
		{"Aya Pay", "KBZPay", false},
	}
	for _, tc := range cases {
		c := checked(model.VerificationResult{
			IsValid:            true,
			TransactionID:      "TX1",
			Confidence:         0.9,
			DetectedPaymentApp: tc.detected,
		}, nil)
		res := classify(t, c, adapter.ClassifyExpectation{Amount: 1000, PaymentMethod: tc.expected})
		if res.IsValid != tc.ok {
			t.Errorf("%s vs %s: valid=%v, want %v", tc.expected, tc.detected, res.IsValid, tc.ok)
		}
	}
}

func TestClassify_NoExpectedChannelSkipsMatch(t *testing.T) {
	c := checked(model.VerificationResult{
		IsValid:            true,
		TransactionID:      "TX1",
		Confidence:         0.9,
		DetectedPaymentApp: "KBZPay",
	}, nil)
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 1000})
	if !res.IsValid {
		t.Errorf("no channel constraint should pass, reason %q", res.Reason)
	}
}

func TestClassify_LowConfidenceFailsClosed(t *testing.T) {
	c := checked(model.VerificationResult{
		IsValid:            true,
		TransactionID:      "TX1",
		Confidence:         0.5,
		DetectedPaymentApp: "Wave",
		Reason:             "looks fine",
	}, nil)
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 1000, PaymentMethod: "Wave Money"})
	if res.IsValid {
		t.Error("confidence below floor must reject")
	}
	if !strings.Contains(res.Reason, "Low confidence (50%)") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestClassify_LowConfidenceRejectionKeptAsIs(t *testing.T) {
	// An already-invalid verdict keeps its original reason.
	c := checked(model.VerificationResult{
		IsValid:    false,
		Confidence: 0.3,
		Reason:     "recipient mismatch",
	}, nil)
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 1000})
	if res.Reason != "recipient mismatch" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestClassify_MissingTransactionIDFailsClosed(t *testing.T) {
	c := checked(model.VerificationResult{
		IsValid:            true,
		Confidence:         0.9,
		DetectedPaymentApp: "Wave",
	}, nil)
	res := classify(t, c, adapter.ClassifyExpectation{Amount: 1000, PaymentMethod: "Wave Money"})
	if res.IsValid {
		t.Error("verdict without transaction id must reject")
	}
	if !strings.Contains(res.Reason, "transaction ID") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestFormatMMK(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		27000:   "27,000",
		1234567: "1,234,567",
	}
	for n, want := range cases {
		if got := formatMMK(n); got != want {
			t.Errorf("formatMMK(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildSlipPrompt_DiscountContext(t *testing.T) {
	p := buildSlipPrompt(adapter.ClassifyExpectation{
		Amount:          8000,
		OriginalAmount:  10000,
		DiscountPercent: 20,
		PaymentMethod:   "KBZ Pay",
	})
	for _, want := range []string{"8,000 MMK", "10,000 MMK", "20% OFF", "KBZ Pay"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	noPromo := buildSlipPrompt(adapter.ClassifyExpectation{Amount: 8000})
	if strings.Contains(noPromo, "DISCOUNT APPLIED") {
		t.Error("prompt should omit discount block without a promo")
	}
	if !strings.Contains(noPromo, "Expected Payment App: any") {
		t.Error("empty channel should expand to 'any'")
	}
}
