package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/usecase"
)

// handlePhoto runs a payment screenshot through the verification pipeline and
// renders the outcome.
func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) error {
	tgID := message.From.ID
	chatID := message.Chat.ID
	t := b.t(ctx, tgID)

	// Largest rendition carries the most legible slip text.
	photo := message.Photo[len(message.Photo)-1]

	img, err := b.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("photo download failed")
		return b.sendMarkdown(chatID, t.T("unexpected_error"))
	}

	processing, err := b.bot.Send(markdownMessage(chatID, t.T("verifying_payment")+"\n\n"+t.T("please_wait")))
	if err != nil {
		return err
	}

	out, err := b.verifUC.SubmitProof(ctx, tgID, message.From.UserName, img)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("proof submission failed")
		return b.editMarkdown(chatID, processing.MessageID, t.T("unexpected_error"))
	}

	// Outcome language can differ from the pre-submission guess.
	tr := b.bundle.For(out.Language)
	supportRow := [][]InlineButton{{{Text: tr.T("contact_support"), URL: b.cfg.Support}}}

	switch out.Status {
	case usecase.ProofRateLimited:
		return b.editMarkdown(chatID, processing.MessageID,
			tr.T("slow_down")+"\n\n"+tr.T("wait_seconds", out.WaitSeconds))

	case usecase.ProofNotAwaiting:
		return b.editMarkdown(chatID, processing.MessageID,
			tr.T("not_expecting_photo")+"\n\n"+tr.T("use_start_first"))

	case usecase.ProofDuplicate:
		return b.editMarkdown(chatID, processing.MessageID,
			tr.T("duplicate_transaction")+"\n\n"+tr.T("duplicate_msg"))

	case usecase.ProofRejected:
		if err := b.editMarkdown(chatID, processing.MessageID, tr.T("verification_failed")); err != nil {
			return err
		}
		return b.sendButtons(chatID, buildRejectionMessage(tr, out), supportRow)

	case usecase.ProofProvisionFailed:
		if err := b.editMarkdown(chatID, processing.MessageID, tr.T("verification_failed")); err != nil {
			return err
		}
		return b.sendButtons(chatID, tr.T("unexpected_error")+"\n\n"+stripMarkdown(out.Reason), supportRow)

	case usecase.ProofVerified:
		if err := b.editMarkdown(chatID, processing.MessageID,
			tr.T("payment_verified")+"\n\n"+tr.T("generating_key")); err != nil {
			return err
		}
		text := buildSuccessMessage(tr, out.Language, out, formatMMK(out.AmountPaid)+" MMK")
		rows := [][]InlineButton{{{Text: tr.T("open_link_label"), URL: out.AccessKey.Key}}}
		return b.sendButtons(chatID, text, rows)

	default:
		return b.editMarkdown(chatID, processing.MessageID, tr.T("unexpected_error"))
	}
}

// downloadPhoto fetches the file bytes from Telegram's file API, retrying
// transient fetch failures.
func (b *Bot) downloadPhoto(ctx context.Context, fileID string) (adapter.SlipImage, error) {
	url, err := b.bot.GetFileDirectURL(fileID)
	if err != nil {
		return adapter.SlipImage{}, fmt.Errorf("resolve file url: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return adapter.SlipImage{}, ctx.Err()
			case <-time.After(time.Second):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return adapter.SlipImage{}, err
		}
		resp, err := b.fileClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("fetch photo: HTTP %d", resp.StatusCode)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return adapter.SlipImage{Data: data, MIMEType: "image/jpeg"}, nil
	}
	return adapter.SlipImage{}, lastErr
}
