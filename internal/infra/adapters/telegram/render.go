package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/infra/i18n"
	"telegram-vpn-subscription/internal/usecase"
)

// Telegram caps messages at 4096 chars; chunk below that to leave headroom.
const maxMessageLen = 4000

// formatMMK renders an amount with thousands separators, no currency suffix.
func formatMMK(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	pre := n % 3
	if pre == 0 {
		pre = 3
	}
	b.WriteString(s[:pre])
	for i := pre; i < n; i += 3 {
		b.WriteString(",")
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatPlanPrice shows the discounted price next to the struck-through
// original when a promo is attached.
func formatPlanPrice(plan model.ServicePlan, discountPercent int) string {
	if discountPercent > 0 {
		return "~" + formatMMK(plan.Price) + "~ " + formatMMK(plan.DiscountedPrice(discountPercent)) + " MMK"
	}
	return formatMMK(plan.Price) + " MMK"
}

// stripMarkdown removes legacy Markdown entities so text can be resent plain.
func stripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\\_", "_")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

func escapeUnderscores(s string) string {
	return strings.ReplaceAll(s, "_", "\\_")
}

var reasonEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// sanitizeReason makes classifier text safe to echo under legacy Markdown.
// JSON-ish payloads lose their structural characters first.
func sanitizeReason(reason string) string {
	if strings.ContainsAny(reason, "{}") {
		cleaner := strings.NewReplacer("{", "", "}", "", `"`, "", "[", "", "]", "")
		reason = cleaner.Replace(reason)
	}
	return reasonEscaper.Replace(reason)
}

// chunkMessage splits text into Telegram-sized pieces, preferring line breaks.
func chunkMessage(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var chunks []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], "\n")
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func buildPaymentInstructions(t *i18n.Translator, inst *usecase.PaymentInstructions) string {
	amount := formatMMK(inst.Amount)
	discountNote := ""
	if inst.DiscountPercent > 0 {
		discountNote = fmt.Sprintf(" (Discount %d%% applied)", inst.DiscountPercent)
	}

	var s strings.Builder
	s.WriteString(inst.Method.Emoji + " *" + inst.Method.Provider + " " + t.T("payment_instructions_title") + "*\n\n")
	s.WriteString(t.T("transfer_details") + "\n")
	s.WriteString("├ " + t.T("account_name") + ": `" + inst.Method.AccountName + "`\n")
	s.WriteString("├ " + t.T("phone_number") + ": `" + inst.Method.AccountNumber + "`\n")
	s.WriteString("└ " + t.T("amount") + ": *" + amount + " MMK*" + discountNote + "\n\n")
	s.WriteString("🔢 *Steps:*\n")
	s.WriteString(t.T("step_1", inst.Method.Provider) + "\n")
	s.WriteString(t.T("step_2", amount) + "\n")
	s.WriteString(t.T("step_3") + "\n")
	s.WriteString(t.T("step_4") + "\n\n")
	s.WriteString(t.T("waiting_screenshot") + "\n\n")
	s.WriteString(t.T("vpn_warning") + "\n\n")
	s.WriteString(t.T("auto_generation_note"))
	return s.String()
}

// buildSuccessMessage is the credential delivery screen shared by paid and
// free-claim sales.
func buildSuccessMessage(t *i18n.Translator, lang string, out *usecase.ProofOutcome, amountLabel string) string {
	var s strings.Builder
	s.WriteString(t.T("success_title") + "\n\n")
	s.WriteString(t.T("subscription_ready") + "\n\n")
	s.WriteString("📦 *" + t.T("plan_label") + ":* " + out.Plan.Name(lang) + "\n")
	s.WriteString("📅 *" + t.T("expires_label") + ":* " + out.AccessKey.ExpiryDate + "\n")
	s.WriteString("💰 *" + t.T("amount_paid_label") + ":* " + amountLabel + "\n")
	s.WriteString("🆔 *" + t.T("transaction_label") + ":* `" + nonEmpty(out.TransactionRef, "N/A") + "`\n\n")
	s.WriteString("🔑 *" + t.T("your_key_label") + ":*\n")
	s.WriteString(out.AccessKey.Key + "\n\n")
	s.WriteString("*(Tap the link above to open, or tap below to copy)*\n")
	s.WriteString("`" + out.AccessKey.Key + "`\n\n")
	s.WriteString(t.T("how_to_use_title") + "\n")
	for _, key := range []string{"how_to_step_1", "how_to_step_2", "how_to_step_3", "how_to_step_4", "how_to_step_5"} {
		s.WriteString(t.T(key) + "\n")
	}
	s.WriteString("\n" + t.T("server_switch_warning") + "\n\n")
	s.WriteString(t.T("thank_you"))
	return s.String()
}

// buildRejectionMessage picks the failure wording for a rejected proof.
func buildRejectionMessage(t *i18n.Translator, out *usecase.ProofOutcome) string {
	switch {
	case out.QuotaExceeded:
		return t.T("rate_limit_msg")
	case out.RegionBlocked:
		return "❌ *Service Unavailable*\n\nOur AI verification system is currently not available in this server region. Please contact support manually."
	default:
		return t.T("verification_failed") + "\n\n" +
			sanitizeReason(out.Reason) + "\n\n" +
			t.T("tips_title") + "\n" +
			"• " + t.T("tip_success") + "\n" +
			"• " + t.T("tip_receipt") + "\n" +
			"• " + t.T("tip_mismatch") + "\n\n" +
			t.T("need_help")
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
