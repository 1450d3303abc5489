package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/usecase"
)

type cbHandler func(ctx context.Context, chatID int64, from *tgbotapi.User, arg string) error

// cbPrefixRoutes maps callback-data prefixes to handlers. The prefix is
// stripped before the handler runs.
func (b *Bot) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{Prefix: "set_lang:", Fn: b.cbSetLanguage},
		{Prefix: "plan:", Fn: b.cbSelectPlan},
		{Prefix: "pay:", Fn: b.cbBeginPayment},
		{Prefix: "claim_free:", Fn: b.cbClaimFree},
		{Prefix: "enter_promo:", Fn: b.cbEnterPromo},
	}
}

func (b *Bot) cbSetLanguage(ctx context.Context, chatID int64, from *tgbotapi.User, lang string) error {
	if err := b.verifUC.SetLanguage(ctx, from.ID, lang); err != nil {
		return b.sendPlain(chatID, "Failed to set language.")
	}
	confirm := "Language set to English."
	if lang == "mm" {
		confirm = "ဘာသာစကားကို မြန်မာသို့ ပြောင်းလဲလိုက်ပါပြီ။"
	}
	if err := b.sendPlain(chatID, confirm); err != nil {
		return err
	}
	return b.sendWelcome(ctx, chatID, from.ID)
}

func (b *Bot) cbSelectPlan(ctx context.Context, chatID int64, from *tgbotapi.User, planID string) error {
	t := b.t(ctx, from.ID)
	lang := b.verifUC.Language(ctx, from.ID)

	plan, discount, err := b.verifUC.SelectPlan(ctx, from.ID, planID)
	if err != nil {
		return b.sendPlain(chatID, t.T("plan_not_found"))
	}

	selectedLabel := "You selected:"
	if lang == "mm" {
		selectedLabel = "သင်ရွေးချယ်ထားသော ပလန်:"
	}
	var s strings.Builder
	s.WriteString("✅ *" + selectedLabel + "* " + plan.Name(lang) + "\n\n")
	s.WriteString("📝 *" + t.T("description_label") + ":*\n" + plan.Description(lang) + "\n\n")
	s.WriteString("📊 *" + t.T("plan_details_title") + ":*\n")
	s.WriteString("├ " + t.T("duration_label") + ": " + plan.DurationText(lang) + "\n")
	s.WriteString("└ " + t.T("data_label") + ": " + plan.DataLimit(lang) + "\n\n")
	s.WriteString(t.T("choose_payment"))

	var rows [][]InlineButton
	if discount == 100 {
		rows = [][]InlineButton{{{Text: t.T("claim_free_button"), Data: "claim_free:" + plan.ID}}}
	} else {
		rows = [][]InlineButton{}
		for _, m := range b.planUC.ListPaymentMethods() {
			rows = append(rows, []InlineButton{{Text: m.Emoji + " " + m.Name, Data: "pay:" + m.ID + ":" + plan.ID}})
		}
		rows = append(rows, []InlineButton{{Text: t.T("promo_button"), Data: "enter_promo:" + plan.ID}})
	}
	return b.sendButtons(chatID, s.String(), rows)
}

func (b *Bot) cbBeginPayment(ctx context.Context, chatID int64, from *tgbotapi.User, arg string) error {
	t := b.t(ctx, from.ID)

	// Format: pay:<method>:<planID>, prefix already stripped.
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return b.sendPlain(chatID, t.T("plan_not_found"))
	}
	methodID, planID := parts[0], parts[1]

	inst, err := b.verifUC.BeginPayment(ctx, from.ID, planID, methodID)
	if err != nil {
		return b.sendPlain(chatID, t.T("plan_not_found"))
	}
	return b.sendMarkdown(chatID, buildPaymentInstructions(t, inst))
}

func (b *Bot) cbClaimFree(ctx context.Context, chatID int64, from *tgbotapi.User, _ string) error {
	t := b.t(ctx, from.ID)

	claiming, err := b.bot.Send(markdownMessage(chatID, t.T("claiming_free")))
	if err != nil {
		return err
	}

	out, err := b.verifUC.ClaimFree(ctx, from.ID, from.UserName)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", from.ID).Msg("free claim failed")
		return b.sendMarkdown(chatID, t.T("unexpected_error"))
	}

	switch out.Status {
	case usecase.ProofVerified:
		lang := out.Language
		tr := b.bundle.For(lang)
		text := buildSuccessMessage(tr, lang, out, "0 MMK (Free Claim)")
		rows := [][]InlineButton{{{Text: tr.T("open_link_label"), URL: out.AccessKey.Key}}}
		return b.editMarkdownButtons(chatID, claiming.MessageID, text, rows)
	case usecase.ProofProvisionFailed:
		return b.editMarkdown(chatID, claiming.MessageID, t.T("unexpected_error")+"\n\n"+stripMarkdown(out.Reason))
	default:
		return b.editMarkdown(chatID, claiming.MessageID, t.T("use_start_first"))
	}
}

func (b *Bot) cbEnterPromo(ctx context.Context, chatID int64, from *tgbotapi.User, _ string) error {
	t := b.t(ctx, from.ID)
	if err := b.verifUC.AwaitPromo(ctx, from.ID); err != nil {
		return b.sendPlain(chatID, t.T("unexpected_error"))
	}
	return b.sendPlain(chatID, t.T("enter_promo_title")+":\n\n"+t.T("promo_prompt"))
}

// handleText consumes promo-code entry; other text is ignored.
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	tgID := message.From.ID
	t := b.t(ctx, tgID)

	code := strings.TrimSpace(message.Text)
	handled, promo, err := b.verifUC.ApplyPromo(ctx, tgID, code)
	if !handled {
		return nil
	}
	if err != nil {
		var reply string
		switch {
		case errors.Is(err, domain.ErrPromoWrongPlan):
			reply = t.T("promo_invalid_plan")
		case errors.Is(err, domain.ErrPromoExhausted), errors.Is(err, domain.ErrPromoExpired):
			reply = t.T("promo_expired")
		default:
			reply = t.T("promo_invalid")
		}
		if serr := b.sendPlain(message.Chat.ID, reply); serr != nil {
			return serr
		}
		return b.sendPlansMenu(ctx, message.Chat.ID, tgID)
	}

	if serr := b.sendPlain(message.Chat.ID, t.T("promo_applied", promo.DiscountPercent)); serr != nil {
		return serr
	}
	return b.sendPlansMenu(ctx, message.Chat.ID, tgID)
}

func (b *Bot) sendLanguagePicker(chatID int64) error {
	rows := [][]InlineButton{{
		{Text: "မြန်မာ 🇲🇲", Data: "set_lang:mm"},
		{Text: "English 🇺🇸", Data: "set_lang:en"},
	}}
	return b.sendButtons(chatID, "Please choose your language / ဘာသာစကား ရွေးချယ်ပေးပါ-", rows)
}

// sendWelcome shows the welcome text with one button per plan, grouped by
// duration, discounted prices struck through when a promo is attached.
func (b *Bot) sendWelcome(ctx context.Context, chatID, tgID int64) error {
	t := b.t(ctx, tgID)
	lang := b.verifUC.Language(ctx, tgID)
	discount := b.verifUC.CurrentDiscount(ctx, tgID)

	var rows [][]InlineButton
	for _, dur := range []model.PlanDuration{model.PlanOneMonth, model.PlanThreeMonths, model.PlanSixMonths} {
		for _, plan := range b.planUC.ListPlans() {
			if plan.Duration != dur {
				continue
			}
			rows = append(rows, []InlineButton{{
				Text: "📦 " + plan.Name(lang) + " - " + formatPlanPrice(plan, discount),
				Data: "plan:" + plan.ID,
			}})
		}
	}
	rows = append(rows, []InlineButton{{Text: t.T("contact_support"), URL: b.cfg.Support}})
	return b.sendButtons(chatID, t.T("welcome_message"), rows)
}

// sendPlansMenu is the flat catalog list used by /plans and after promo entry.
func (b *Bot) sendPlansMenu(ctx context.Context, chatID, tgID int64) error {
	t := b.t(ctx, tgID)
	lang := b.verifUC.Language(ctx, tgID)
	discount := b.verifUC.CurrentDiscount(ctx, tgID)

	var rows [][]InlineButton
	for _, plan := range b.planUC.ListPlans() {
		emoji := "📊"
		if strings.Contains(plan.DataLimitEN, "Unlimited") {
			emoji = "♾️"
		}
		rows = append(rows, []InlineButton{{
			Text: emoji + " " + plan.Name(lang) + " - " + formatPlanPrice(plan, discount),
			Data: "plan:" + plan.ID,
		}})
	}
	return b.sendButtons(chatID, t.T("choose_plan"), rows)
}

func markdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}
