package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-vpn-subscription/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (b *Bot) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    b.handleStartCommand,
		"plans":    b.handlePlansCommand,
		"help":     b.handleHelpCommand,
		"language": b.handleLanguageCommand,

		// These handlers are wrapped in our adminOnly middleware.
		"admin":         b.adminOnly(b.handleAdminCommand),
		"admin_tx":      b.adminOnly(b.handleAdminTxCommand),
		"addpromo":      b.adminOnly(b.handleAddPromoCommand),
		"admin_plans":   b.adminOnly(b.handleAdminPlansCommand),
		"admin_revenue": b.adminOnly(b.handleAdminRevenueCommand),
	}
}

// adminOnly drops the command silently for non-admins.
func (b *Bot) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if _, isAdmin := b.adminIDsMap[message.From.ID]; !isAdmin {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			b.log.Warn().Int64("tg_id", message.From.ID).Str("command", message.Command()).Msg("unauthorized admin command")
			return nil
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

func (b *Bot) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	tgID := message.From.ID
	if err := b.ledger.UpsertUser(ctx, strconv.FormatInt(tgID, 10), message.From.UserName); err != nil {
		b.log.Warn().Err(err).Int64("tg_id", tgID).Msg("user upsert failed")
	}

	_, isAdmin := b.adminIDsMap[tgID]
	if err := b.SetMenuCommands(message.Chat.ID, isAdmin); err != nil {
		b.log.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to set menu commands")
	}

	if !b.verifUC.HasLanguage(ctx, tgID) {
		return b.sendLanguagePicker(message.Chat.ID)
	}
	return b.sendWelcome(ctx, message.Chat.ID, tgID)
}

func (b *Bot) handlePlansCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.sendPlansMenu(ctx, message.Chat.ID, message.From.ID)
}

func (b *Bot) handleLanguageCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.sendLanguagePicker(message.Chat.ID)
}

func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	t := b.t(ctx, message.From.ID)

	var s strings.Builder
	s.WriteString(t.T("help_title") + "\n\n")
	s.WriteString(t.T("vpn_client_title") + "\n")
	s.WriteString("• [" + t.T("happ_proxy_android") + "](https://play.google.com/store/apps/details?id=com.happproxy&hl=en)\n")
	s.WriteString("• [" + t.T("happ_proxy_ios") + "](https://apps.apple.com/sg/app/happ-proxy-utility/id6504287215)\n\n")
	s.WriteString(t.T("commands_title") + "\n")
	s.WriteString(t.T("cmd_start") + "\n")
	s.WriteString(t.T("cmd_plans") + "\n")
	s.WriteString(t.T("cmd_help") + "\n\n")
	s.WriteString(t.T("how_to_get_key_title") + "\n")
	for _, key := range []string{"get_step_1", "get_step_2", "get_step_3", "get_step_4", "get_step_5"} {
		s.WriteString(t.T(key) + "\n")
	}
	s.WriteString("\n" + t.T("how_to_use_happ_title") + "\n")
	for _, key := range []string{"use_step_1", "use_step_2", "use_step_3", "use_step_4"} {
		s.WriteString(t.T(key) + "\n")
	}
	s.WriteString("\n" + t.T("contact_support_title") + "\n")
	s.WriteString(t.T("contact_support_msg"))

	rows := [][]InlineButton{{{Text: t.T("contact_support"), URL: b.cfg.Support}}}
	return b.sendButtons(message.Chat.ID, s.String(), rows)
}

func (b *Bot) handleAdminCommand(ctx context.Context, message *tgbotapi.Message) error {
	stats, err := b.statsUC.Overview(ctx)
	if err != nil {
		return b.sendPlain(message.Chat.ID, "Failed to load stats.")
	}

	text := fmt.Sprintf(`📊 *Wavy System Stats*

💰 *Transactions:*
• Total: `+"`%d`"+`
• Completed: ✅ `+"`%d`"+`
• Failed: ❌ `+"`%d`"+`
• Pending: ⏳ `+"`%d`"+`

🛠 *Admin Commands:*
`+"`/admin`"+` - This summary
`+"`/admin_tx`"+` - Recent 10 transactions
`+"`/addpromo <code> <%%discount> <limit> <days> [plan_id]`"+`
`+"`/admin_plans`"+` - List all plan IDs
`+"`/admin_revenue`"+` - Revenue report`,
		stats.Total, stats.Completed, stats.Failed, stats.Pending)

	return b.sendMarkdown(message.Chat.ID, text)
}

func (b *Bot) handleAdminTxCommand(ctx context.Context, message *tgbotapi.Message) error {
	recent, err := b.statsUC.Recent(ctx, 10)
	if err != nil {
		return b.sendPlain(message.Chat.ID, "Failed to load transactions.")
	}
	if len(recent) == 0 {
		return b.sendPlain(message.Chat.ID, "📭 No transactions found in database.")
	}

	var s strings.Builder
	s.WriteString("📜 *Recent Transactions (Top 10)*\n\n")
	for _, tx := range recent {
		marker := "⏳"
		switch tx.Status {
		case "completed":
			marker = "✅"
		case "failed":
			marker = "❌"
		}
		user := tx.TelegramName
		if user == "" {
			user = tx.TelegramUserID
		}
		s.WriteString(fmt.Sprintf("%s *ID:* `%d` | *User:* @%s\n", marker, tx.ID, escapeUnderscores(user)))
		s.WriteString(fmt.Sprintf("💵 *Plan:* `%s` (`%s` MMK)\n", tx.PlanName, formatMMK(tx.Amount)))
		s.WriteString(fmt.Sprintf("🆔 *TxID:* `%s`\n", nonEmpty(tx.TransactionRef, "N/A")))
		if tx.SubscriptionKey != "" {
			s.WriteString(fmt.Sprintf("🔑 *Key:* `%s`\n", tx.SubscriptionKey))
		}
		if tx.ErrorMessage != "" {
			s.WriteString("⚠️ *Error:* " + stripMarkdown(tx.ErrorMessage) + "\n")
		}
		s.WriteString("📅 *Date:* " + tx.CreatedAt.Format("02/01/2006, 15:04:05") + "\n")
		s.WriteString("──────────────────\n")
	}

	for _, chunk := range chunkMessage(s.String(), maxMessageLen) {
		if err := b.sendMarkdown(message.Chat.ID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleAddPromoCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())
	if len(args) < 4 {
		return b.sendMarkdown(chatID, "❌ Usage: `/addpromo <code> <discount%> <limit> <days_valid> [plan_id]`\nExample: `/addpromo SAVE10 10 50 7 1m-unlimited`")
	}

	code := strings.ToUpper(args[0])
	discount, err1 := strconv.Atoi(args[1])
	limit, err2 := strconv.Atoi(args[2])
	days, err3 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return b.sendPlain(chatID, "❌ Discount, limit, and days must be valid numbers.")
	}
	if discount < 1 || discount > 100 {
		return b.sendPlain(chatID, "❌ Discount must be between 1 and 100.")
	}
	if limit < 1 {
		return b.sendPlain(chatID, "❌ Usage limit must be at least 1.")
	}
	if days < 1 {
		return b.sendPlain(chatID, "❌ Days valid must be at least 1.")
	}

	var planIDs []string
	if len(args) > 4 {
		planID := args[4]
		if _, err := b.planUC.FindPlan(planID); err != nil {
			return b.sendMarkdown(chatID, fmt.Sprintf("❌ Invalid Plan ID: `%s`\nUse `/admin_plans` to see valid IDs.", planID))
		}
		planIDs = []string{planID}
	}

	promo, err := b.promoUC.Create(ctx, code, discount, limit, days, planIDs)
	if err != nil {
		b.log.Error().Err(err).Str("code", code).Msg("promo creation failed")
		return b.sendPlain(chatID, "❌ Failed to create promo code.")
	}

	confirm := fmt.Sprintf("✅ *Promo Code Created!*\n\n• Code: `%s`\n• Discount: `%d%%`\n• Limit: `%d` usages\n• Expires: `%s`",
		promo.Code, promo.DiscountPercent, promo.UsageLimit, promo.ExpiresAt.Format("02/01/2006"))
	if len(planIDs) > 0 {
		confirm += fmt.Sprintf("\n• Restricted to Plan: `%s`", planIDs[0])
	} else {
		confirm += "\n• Restricted to: `ALL PLANS`"
	}
	return b.sendMarkdown(chatID, confirm)
}

func (b *Bot) handleAdminPlansCommand(ctx context.Context, message *tgbotapi.Message) error {
	var s strings.Builder
	s.WriteString("📋 *Available Service Plans (IDs for Promo Codes)*\n\n")
	for _, plan := range b.planUC.ListPlans() {
		s.WriteString(fmt.Sprintf("• *ID:* `%s`\n", plan.ID))
		s.WriteString("  Name: " + plan.NameEN + "\n")
		s.WriteString("  Price: " + formatMMK(plan.Price) + " MMK\n")
		s.WriteString("──────────────────\n")
	}
	return b.sendMarkdown(message.Chat.ID, s.String())
}

func (b *Bot) handleAdminRevenueCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := b.statsUC.Revenue(ctx)
	if err != nil {
		return b.sendPlain(message.Chat.ID, "Failed to load revenue report.")
	}

	var s strings.Builder
	s.WriteString("💰 *Revenue Report*\n\n")
	s.WriteString(fmt.Sprintf("*Ledger (exact):*\n• Total: `%s` MMK\n• This month (since %s): `%s` MMK\n\n",
		formatMMK(rep.TotalRevenue), rep.MonthStart.Format("02/01/2006"), formatMMK(rep.MonthRevenue)))

	if len(rep.SalesByPlan) > 0 {
		s.WriteString("*Sales by plan:*\n")
		for _, sale := range rep.SalesByPlan {
			s.WriteString(fmt.Sprintf("• %s: %d × → `%s` MMK\n", sale.PlanName, sale.Count, formatMMK(sale.Amount)))
		}
		s.WriteString("\n")
	}

	if rep.UpstreamTotal > 0 {
		s.WriteString(fmt.Sprintf("*Panel accounts:* `%d` total, `%d` active\n", rep.UpstreamTotal, rep.UpstreamActive))
		for _, est := range rep.UpstreamEstimates {
			s.WriteString(fmt.Sprintf("• %s: %d accounts → `%s` MMK (est)\n", est.PlanName, est.Count, formatMMK(est.Amount)))
		}
		s.WriteString(fmt.Sprintf("• Panel revenue: `%s` MMK (est)\n", formatMMK(rep.UpstreamRevenue)))
	} else {
		s.WriteString("_Panel data unavailable, ledger numbers only._\n")
	}

	for _, chunk := range chunkMessage(s.String(), maxMessageLen) {
		if err := b.sendMarkdown(message.Chat.ID, chunk); err != nil {
			return err
		}
	}
	return nil
}
