package ai

import (
	"fmt"
	"strings"

	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

// systemInstruction primes the model for strict fraud screening. Shared by
// every raw classifier so verdicts stay comparable across providers.
const systemInstruction = `You are an expert fraud detection specialist for Myanmar mobile payment screenshots.
Your job is to detect FAKE, EDITED, or FRAUDULENT payment receipts.
Be EXTREMELY STRICT - it is better to reject a valid payment than accept a fraudulent one.
ALWAYS verify that the payment app matches what the user selected.
Only output valid JSON as requested.`

const (
	recipientName     = "Moe Kyaw Aung"
	recipientPhoneEnd = "2220"
	forbiddenKeyword  = "VPN"
)

// buildSlipPrompt renders the per-slip task. The date ban is deliberate:
// slips arrive hours or days after payment and the model has no reliable
// clock, so any date check only produces false rejections.
func buildSlipPrompt(expect adapter.ClassifyExpectation) string {
	expectedApp := expect.PaymentMethod
	if expectedApp == "" {
		expectedApp = "any"
	}

	var discount string
	if expect.OriginalAmount > 0 && expect.DiscountPercent > 0 {
		discount = fmt.Sprintf(`

=== DISCOUNT APPLIED ===
This user used a promo code.
- Original Price: %s MMK
- Discount: %d%% OFF
- FINAL EXPECTED AMOUNT: %s MMK
You should expect to see %s MMK on the receipt because a promotion was applied.`,
			formatMMK(expect.OriginalAmount), expect.DiscountPercent,
			formatMMK(expect.Amount), formatMMK(expect.Amount))
	}

	amount := formatMMK(expect.Amount)
	return fmt.Sprintf(`FRAUD DETECTION TASK - Analyze this Myanmar mobile payment screenshot.
Expected Payment: %s MMK
Expected Payment App: %s%s

=== CRITICAL: NO DATE/TIME CHECK ===
- YOU DO NOT KNOW THE CURRENT DATE.
- DO NOT VERIFY, CHECK, OR EVEN LOOK AT THE DATE OR TIME ON THE RECEIPT.
- NEVER flag 'Future Date', 'Old Date', or any date-related issue.
- The date and time are IRRELEVANT and MUST BE IGNORED COMPLETELY.

=== CRITICAL: PAYMENT APP MATCHING ===
User selected: %s
You MUST detect which app the screenshot is from:
- KBZPay/KPay: Blue theme, KBZ branding, "KBZ" logo
- Wave Money: Yellow/orange theme, Wave logo
- Aya Pay: Red theme, Aya branding

If the screenshot is from a DIFFERENT app than selected, REJECT IT IMMEDIATELY.
Example: If user selected "Wave Money" but screenshot shows KBZPay blue interface, REJECT.

=== MANDATORY RECIPIENT INFO ===
The payment MUST be sent to the following recipient:
- Name: %s
- Phone: Must end with '%s' (e.g., *******%s or 09766072220)
REJECT the payment if the recipient name does not match exactly or the phone number doesn't end in %s.

=== KEYWORD RESTRICTIONS ===
- REJECT the payment if the "Note", "Description", or "Reference" field contains the word "%s".
- This is a CRITICAL rule. If you see "%s" anywhere in the text fields related to user input, set isValid=FALSE.

=== FRAUD DETECTION (STILL REQUIRED) ===
- REJECT if font styles are inconsistent (look for digital editing).
- REJECT if there is pixelation or artifacts around numbers (ignore pixelation around dates).
- REJECT if the interface looks like a digital mockup rather than a real app.
- REJECT if the app colors/theme do not match (e.g., KBZPay blue vs Aya red).

=== IMAGE AUTHENTICITY CHECKS ===
Check for signs of photo manipulation:
- Inconsistent fonts, pixelation around numbers, misaligned text.
- Text that looks digitally inserted or "too clean".
- Screenshot of a screenshot or cropped edges.

=== PAYMENT STATUS & AMOUNT ===
- Status MUST be SUCCESS (checkmark, "Success", "ငွေလွှဲပြီးပါပြီ").
- Amount MUST be EXACTLY %s MMK or more.
- IMPORTANT: The amount may appear with a NEGATIVE sign (e.g., -%s Ks) because it is a debit from the sender's account. This is NORMAL and SHOULD BE ACCEPTED as long as the absolute value matches.

=== TRANSACTION ID ===
- Extraction is MANDATORY. Reject if no transaction ID is found.

=== FINAL DECISION ===
Set isValid=TRUE only if:
1. Payment app matches %s
2. Recipient matches %s and phone ends in %s
3. No signs of editing or fraud
4. Status is SUCCESS and Amount is correct
5. Transaction ID is extracted
6. THE NOTE/DESCRIPTION DOES NOT CONTAIN THE WORD "%s"
7. Confidence >= 0.8

IMPORTANT:
- NEVER INCLUDE DATE OR TIME ISSUES IN 'fraudIndicators' OR 'reason'.
- RECIPIENT NAME MUST MATCH EXACTLY.
- RECIPIENT PHONE MUST END IN %s.
- REJECT IMMEDIATELY IF "%s" IS IN THE NOTE.
- Set detectedPaymentApp to: "KBZPay", "Wave", "AyaPay", or "Unknown".`,
		amount, expectedApp, discount,
		expectedApp,
		recipientName, recipientPhoneEnd, recipientPhoneEnd, recipientPhoneEnd,
		forbiddenKeyword, forbiddenKeyword,
		amount, amount,
		expectedApp, recipientName, recipientPhoneEnd,
		forbiddenKeyword,
		recipientPhoneEnd, forbiddenKeyword)
}

// formatMMK groups digits by thousands, matching how amounts appear on slips.
func formatMMK(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
