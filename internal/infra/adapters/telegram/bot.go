package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/config"
	"telegram-vpn-subscription/internal/domain/ports/repository"
	"telegram-vpn-subscription/internal/infra/i18n"
	"telegram-vpn-subscription/internal/infra/logging"
	"telegram-vpn-subscription/internal/usecase"
)

// InlineButton is one inline keyboard entry. URL buttons open links, Data
// buttons post callbacks.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Bot polls Telegram updates and renders use-case outcomes into messages.
// Conversation decisions live in the use cases; this layer is presentation.
type Bot struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	verifUC usecase.VerificationUseCase
	statsUC usecase.StatsUseCase
	promoUC usecase.PromoUseCase
	planUC  usecase.PlanUseCase
	ledger  repository.LedgerStore
	bundle  *i18n.Bundle
	log     *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
	fileClient    *http.Client
}

func NewBot(
	cfg *config.BotConfig,
	verifUC usecase.VerificationUseCase,
	statsUC usecase.StatsUseCase,
	promoUC usecase.PromoUseCase,
	planUC usecase.PlanUseCase,
	ledger repository.LedgerStore,
	bundle *i18n.Bundle,
	logger *zerolog.Logger,
) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if verifUC == nil {
		return nil, errors.New("verification use case is nil")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	return &Bot{
		bot:           api,
		cfg:           cfg,
		verifUC:       verifUC,
		statsUC:       statsUC,
		promoUC:       promoUC,
		planUC:        planUC,
		ledger:        ledger,
		bundle:        bundle,
		log:           logger,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
		fileClient:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := b.handleUpdate(ctx, up); err != nil {
						b.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	b.log.Info().Str("bot", b.bot.Self.UserName).Int("workers", b.updateWorkers).Msg("bot polling started")

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error().Interface("panic", rec).Msg("update handler panicked")
		}
	}()

	// One trace id per update so log lines across layers correlate.
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.CallbackQuery != nil {
		if update.CallbackQuery.From != nil {
			ctx = logging.WithTgID(ctx, update.CallbackQuery.From.ID)
		}
		return b.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	ctx = logging.WithTgID(ctx, msg.From.ID)

	if msg.IsCommand() {
		if fn, ok := b.commandRoutes()[msg.Command()]; ok {
			return fn(ctx, msg)
		}
		return nil
	}
	if len(msg.Photo) > 0 {
		return b.handlePhoto(ctx, msg)
	}
	if msg.Text != "" {
		return b.handleText(ctx, msg)
	}
	return nil
}

func (b *Bot) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = b.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	chatID := int64(query.From.ID)
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	if chatID == 0 {
		return nil
	}

	data := strings.TrimSpace(query.Data)
	for _, pr := range b.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, chatID, query.From, strings.TrimPrefix(data, pr.Prefix))
		}
	}
	b.log.Debug().Str("data", data).Msg("unknown callback data")
	return nil
}

// t returns the translator for the user's stored language.
func (b *Bot) t(ctx context.Context, tgID int64) *i18n.Translator {
	return b.bundle.For(b.verifUC.Language(ctx, tgID))
}

func (b *Bot) sendPlain(tgID int64, text string) error {
	_, err := b.bot.Send(tgbotapi.NewMessage(tgID, text))
	return err
}

// sendMarkdown sends with legacy Markdown and falls back to plain text when
// Telegram rejects the entity parse.
func (b *Bot) sendMarkdown(tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.bot.Send(msg); err != nil {
		b.log.Warn().Err(err).Msg("markdown send failed, falling back to plain text")
		return b.sendPlain(tgID, stripMarkdown(text))
	}
	return nil
}

func (b *Bot) sendButtons(tgID int64, text string, rows [][]InlineButton) error {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			r = append(r, kb)
		}
		kbRows = append(kbRows, r)
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	if _, err := b.bot.Send(msg); err != nil {
		plain := tgbotapi.NewMessage(tgID, stripMarkdown(text))
		plain.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
		_, err = b.bot.Send(plain)
		return err
	}
	return nil
}

// editMarkdown rewrites a previously sent status message in place.
func (b *Bot) editMarkdown(tgID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(tgID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.bot.Send(edit); err != nil {
		return b.sendMarkdown(tgID, text)
	}
	return nil
}

func (b *Bot) editMarkdownButtons(tgID int64, messageID int, text string, rows [][]InlineButton) error {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		kbRows = append(kbRows, r)
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(tgID, messageID, text, tgbotapi.NewInlineKeyboardMarkup(kbRows...))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.bot.Send(edit); err != nil {
		return b.sendButtons(tgID, text, rows)
	}
	return nil
}

// SetMenuCommands installs the command menu, with the admin entries only for
// admin chats.
func (b *Bot) SetMenuCommands(chatID int64, isAdmin bool) error {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start and select a plan"},
		{Command: "plans", Description: "View all available plans"},
		{Command: "language", Description: "Change language"},
		{Command: "help", Description: "How to buy and use your key"},
	}
	if isAdmin {
		commands = append(commands,
			tgbotapi.BotCommand{Command: "admin", Description: "System stats"},
			tgbotapi.BotCommand{Command: "admin_tx", Description: "Recent transactions"},
			tgbotapi.BotCommand{Command: "admin_revenue", Description: "Revenue report"},
		)
	}
	scope := tgbotapi.NewBotCommandScopeChat(chatID)
	cfg := tgbotapi.NewSetMyCommandsWithScope(scope, commands...)
	_, err := b.bot.Request(cfg)
	return err
}
