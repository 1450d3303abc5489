package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/domain/ports/repository"
	"telegram-vpn-subscription/internal/infra/logging"
	"telegram-vpn-subscription/internal/infra/metrics"
)

// Compile-time check
var _ VerificationUseCase = (*verificationUC)(nil)

// ProofStatus is the terminal state of one submission attempt.
type ProofStatus string

const (
	ProofVerified        ProofStatus = "verified"
	ProofRejected        ProofStatus = "rejected"
	ProofDuplicate       ProofStatus = "duplicate"
	ProofRateLimited     ProofStatus = "rate_limited"
	ProofNotAwaiting     ProofStatus = "not_awaiting"
	ProofProvisionFailed ProofStatus = "provision_failed"
)

// ProofOutcome is everything the messaging surface needs to answer the user.
// Exactly one outcome is produced per submission; the use case never returns
// an error for a rejected slip, only for infrastructure faults.
type ProofOutcome struct {
	Status      ProofStatus
	Language    string
	WaitSeconds int // rate_limited only

	Reason        string // rejected / provision_failed
	QuotaExceeded bool   // classifier quota exhausted
	RegionBlocked bool   // classifier unavailable in region

	Plan           *model.ServicePlan
	AccessKey      *model.AccessKey
	TransactionRef string
	AmountPaid     int64
}

// PaymentInstructions is the data for the transfer-details message.
type PaymentInstructions struct {
	Plan            *model.ServicePlan
	Method          *model.PaymentMethod
	Amount          int64
	DiscountPercent int
}

// VerificationUseCase drives the sales conversation from plan selection to
// credential delivery. All state transitions run through here; the bot layer
// only renders outcomes.
type VerificationUseCase interface {
	// SelectPlan records the chosen plan and returns it with the discount
	// currently attached to the user's state.
	SelectPlan(ctx context.Context, tgID int64, planID string) (*model.ServicePlan, int, error)

	// BeginPayment arms proof collection for plan+method and returns the
	// transfer instructions.
	BeginPayment(ctx context.Context, tgID int64, planID, methodID string) (*PaymentInstructions, error)

	// AwaitPromo flags the user's state so the next text message is treated
	// as a promo code.
	AwaitPromo(ctx context.Context, tgID int64) error

	// ApplyPromo validates the code against the selected plan and attaches
	// the discount. A false return means no code was being awaited.
	ApplyPromo(ctx context.Context, tgID int64, code string) (bool, *model.PromoCode, error)

	// SubmitProof runs the full pipeline: rate limit, state check, pending
	// record, classification, duplicate check, provisioning, finalize.
	SubmitProof(ctx context.Context, tgID int64, tgUsername string, img adapter.SlipImage) (*ProofOutcome, error)

	// ClaimFree issues a credential without a slip. Requires a 100% discount
	// attached to the state; the ledger records a zero-amount sale.
	ClaimFree(ctx context.Context, tgID int64, tgUsername string) (*ProofOutcome, error)

	// SetLanguage persists the user's language choice in state.
	SetLanguage(ctx context.Context, tgID int64, lang string) error

	// Language returns the user's stored language, defaulting to English.
	Language(ctx context.Context, tgID int64) string

	// HasLanguage reports whether the user picked a language yet.
	HasLanguage(ctx context.Context, tgID int64) bool

	// CurrentDiscount returns the promo discount attached to the user's
	// state, 0 when none.
	CurrentDiscount(ctx context.Context, tgID int64) int
}

type verificationUC struct {
	ledger     repository.LedgerStore
	states     repository.StateRepository
	plans      PlanUseCase
	promos     PromoUseCase
	classifier adapter.SlipClassifier
	provision  ProvisionUseCase
	limiter    *UploadLimiter
	log        *zerolog.Logger

	classifyTimeout time.Duration
	now             func() time.Time
}

func NewVerificationUseCase(
	ledger repository.LedgerStore,
	states repository.StateRepository,
	plans PlanUseCase,
	promos PromoUseCase,
	classifier adapter.SlipClassifier,
	provision ProvisionUseCase,
	limiter *UploadLimiter,
	classifyTimeout time.Duration,
	logger *zerolog.Logger,
) *verificationUC {
	if classifyTimeout <= 0 {
		classifyTimeout = time.Minute
	}
	return &verificationUC{
		ledger:          ledger,
		states:          states,
		plans:           plans,
		promos:          promos,
		classifier:      classifier,
		provision:       provision,
		limiter:         limiter,
		log:             logger,
		classifyTimeout: classifyTimeout,
		now:             time.Now,
	}
}

func (u *verificationUC) state(ctx context.Context, tgID int64) *repository.ProofContext {
	st, err := u.states.GetState(ctx, tgID)
	if err != nil || st == nil {
		if err != nil {
			u.log.Warn().Err(err).Int64("tg_id", tgID).Msg("state read failed, starting empty")
		}
		return &repository.ProofContext{}
	}
	return st
}

func (u *verificationUC) SelectPlan(ctx context.Context, tgID int64, planID string) (*model.ServicePlan, int, error) {
	plan, err := u.plans.FindPlan(planID)
	if err != nil {
		return nil, 0, err
	}
	st := u.state(ctx, tgID)
	st.SelectedPlanID = plan.ID
	st.ExpectedAmount = plan.DiscountedPrice(st.DiscountPercent)
	st.AwaitingProof = false
	if err := u.states.SetState(ctx, tgID, st); err != nil {
		return nil, 0, err
	}
	return plan, st.DiscountPercent, nil
}

func (u *verificationUC) BeginPayment(ctx context.Context, tgID int64, planID, methodID string) (*PaymentInstructions, error) {
	plan, err := u.plans.FindPlan(planID)
	if err != nil {
		return nil, err
	}
	method, err := u.plans.FindPaymentMethod(methodID)
	if err != nil {
		return nil, err
	}

	st := u.state(ctx, tgID)
	st.SelectedPlanID = plan.ID
	st.ExpectedAmount = plan.DiscountedPrice(st.DiscountPercent)
	st.PaymentMethod = method.Provider
	st.AwaitingProof = true
	if err := u.states.SetState(ctx, tgID, st); err != nil {
		return nil, err
	}
	return &PaymentInstructions{
		Plan:            plan,
		Method:          method,
		Amount:          st.ExpectedAmount,
		DiscountPercent: st.DiscountPercent,
	}, nil
}

func (u *verificationUC) AwaitPromo(ctx context.Context, tgID int64) error {
	st := u.state(ctx, tgID)
	st.AwaitingPromo = true
	return u.states.SetState(ctx, tgID, st)
}

func (u *verificationUC) ApplyPromo(ctx context.Context, tgID int64, code string) (bool, *model.PromoCode, error) {
	st := u.state(ctx, tgID)
	if !st.AwaitingPromo {
		return false, nil, nil
	}
	st.AwaitingPromo = false

	promo, err := u.promos.Redeem(ctx, code, st.SelectedPlanID)
	if err != nil {
		// One shot per prompt, matching or not.
		if serr := u.states.SetState(ctx, tgID, st); serr != nil {
			u.log.Warn().Err(serr).Int64("tg_id", tgID).Msg("state write failed after promo rejection")
		}
		return true, nil, err
	}

	st.PromoCode = promo.Code
	st.DiscountPercent = promo.DiscountPercent
	if st.SelectedPlanID != "" {
		if plan, perr := u.plans.FindPlan(st.SelectedPlanID); perr == nil {
			st.ExpectedAmount = plan.DiscountedPrice(st.DiscountPercent)
		}
	}
	if err := u.states.SetState(ctx, tgID, st); err != nil {
		return true, nil, err
	}
	return true, promo, nil
}

func (u *verificationUC) SetLanguage(ctx context.Context, tgID int64, lang string) error {
	if lang != "en" && lang != "mm" {
		return domain.ErrInvalidArgument
	}
	st := u.state(ctx, tgID)
	st.Language = lang
	return u.states.SetState(ctx, tgID, st)
}

func (u *verificationUC) Language(ctx context.Context, tgID int64) string {
	if lang := u.state(ctx, tgID).Language; lang != "" {
		return lang
	}
	return "en"
}

func (u *verificationUC) HasLanguage(ctx context.Context, tgID int64) bool {
	return u.state(ctx, tgID).Language != ""
}

func (u *verificationUC) CurrentDiscount(ctx context.Context, tgID int64) int {
	return u.state(ctx, tgID).DiscountPercent
}

func (u *verificationUC) SubmitProof(ctx context.Context, tgID int64, tgUsername string, img adapter.SlipImage) (*ProofOutcome, error) {
	metrics.IncProofSubmission()
	st := u.state(ctx, tgID)
	out := &ProofOutcome{Language: u.langOf(st)}

	if ok, wait := u.limiter.Check(tgID); !ok {
		metrics.IncRateLimitBlock()
		out.Status = ProofRateLimited
		out.WaitSeconds = wait
		return out, nil
	}

	if !st.AwaitingProof || st.SelectedPlanID == "" || st.ExpectedAmount <= 0 {
		out.Status = ProofNotAwaiting
		return out, nil
	}
	plan, err := u.plans.FindPlan(st.SelectedPlanID)
	if err != nil {
		st.AwaitingProof = false
		if serr := u.states.SetState(ctx, tgID, st); serr != nil {
			u.log.Warn().Err(serr).Int64("tg_id", tgID).Msg("state write failed")
		}
		out.Status = ProofNotAwaiting
		return out, nil
	}
	out.Plan = plan

	if err := u.ledger.UpsertUser(ctx, strconv.FormatInt(tgID, 10), tgUsername); err != nil {
		u.log.Warn().Err(err).Int64("tg_id", tgID).Msg("user upsert failed")
	}

	recID, err := u.ledger.CreatePendingTransaction(ctx, model.TransactionRecord{
		TelegramUserID: strconv.FormatInt(tgID, 10),
		TelegramName:   tgUsername,
		PlanID:         plan.ID,
		PlanName:       plan.Name(out.Language),
		Amount:         st.ExpectedAmount,
		PaymentMethod:  st.PaymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create pending transaction: %w", err)
	}
	ctx = logging.WithTxRecordID(logging.WithTgID(ctx, tgID), recID)
	log := logging.With(ctx, u.log)

	expect := adapter.ClassifyExpectation{
		Amount:          st.ExpectedAmount,
		PaymentMethod:   st.PaymentMethod,
		DiscountPercent: st.DiscountPercent,
		Now:             u.now(),
	}
	if st.DiscountPercent > 0 {
		expect.OriginalAmount = plan.Price
	}

	cctx, cancel := context.WithTimeout(ctx, u.classifyTimeout)
	started := u.now()
	verdict, err := u.classifier.Classify(cctx, img, expect)
	cancel()
	metrics.ObserveClassifierLatency(u.now().Sub(started).Seconds(), verdict.IsValid)

	// Attempts that reached the classifier count against the burst.
	u.limiter.Record(tgID)

	if err != nil {
		// Only raw classifiers error; the checked wrapper folds failures
		// into verdicts. Treat it like one anyway.
		verdict = model.VerificationResult{IsValid: false, Reason: fmt.Sprintf("Verification failed: %v", err)}
	}

	if !verdict.IsValid {
		if ferr := u.ledger.FinalizeFailed(ctx, recID, nonEmpty(verdict.Reason, "Verification failed")); ferr != nil {
			log.Error().Err(ferr).Msg("finalize failed errored")
		}
		metrics.IncProofOutcome(string(ProofRejected))
		out.Status = ProofRejected
		out.Reason = verdict.Reason
		out.QuotaExceeded = strings.Contains(verdict.Reason, "429") || strings.Contains(verdict.Reason, "RESOURCE_EXHAUSTED")
		out.RegionBlocked = strings.Contains(verdict.Reason, "User location is not supported")
		log.Info().Str("reason", verdict.Reason).Msg("proof rejected")
		return out, nil
	}

	used, err := u.ledger.IsTransactionRefUsed(ctx, verdict.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if used {
		if ferr := u.ledger.FinalizeFailed(ctx, recID, "Duplicate transaction ID"); ferr != nil {
			log.Error().Err(ferr).Msg("finalize failed errored")
		}
		metrics.IncProofOutcome(string(ProofDuplicate))
		out.Status = ProofDuplicate
		out.TransactionRef = verdict.TransactionID
		log.Warn().Str("tx_ref", verdict.TransactionID).Msg("duplicate proof replay blocked")
		return out, nil
	}

	key, err := u.provision.IssueAccessKey(ctx, plan, out.Language, verdict.TransactionID, tgID, tgUsername)
	if err != nil {
		if ferr := u.ledger.FinalizeFailed(ctx, recID, err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("finalize failed errored")
		}
		metrics.IncProofOutcome(string(ProofProvisionFailed))
		out.Status = ProofProvisionFailed
		out.Reason = provisionFailureText(err)
		log.Error().Err(err).Msg("provisioning failed after valid proof")
		return out, nil
	}

	txRef := verdict.TransactionID
	if txRef == "" {
		txRef = fmt.Sprintf("auto_%d", u.now().UnixMilli())
	}
	if err := u.ledger.FinalizeVerified(ctx, recID, txRef, key.Key); err != nil {
		log.Error().Err(err).Msg("finalize verified errored")
	}
	if st.PromoCode != "" {
		if err := u.promos.ChargeUsage(ctx, st.PromoCode); err != nil {
			log.Warn().Err(err).Str("promo", st.PromoCode).Msg("promo usage charge failed")
		}
	}
	if err := u.states.ClearState(ctx, tgID); err != nil {
		log.Warn().Err(err).Msg("state clear failed")
	}

	metrics.IncProofOutcome(string(ProofVerified))
	out.Status = ProofVerified
	out.AccessKey = key
	out.TransactionRef = txRef
	out.AmountPaid = verdict.DetectedAmount
	if out.AmountPaid == 0 {
		out.AmountPaid = st.ExpectedAmount
	}
	log.Info().Str("tx_ref", txRef).Msg("proof verified and credential issued")
	return out, nil
}

func (u *verificationUC) ClaimFree(ctx context.Context, tgID int64, tgUsername string) (*ProofOutcome, error) {
	st := u.state(ctx, tgID)
	out := &ProofOutcome{Language: u.langOf(st)}

	if st.DiscountPercent != 100 || st.SelectedPlanID == "" {
		out.Status = ProofNotAwaiting
		return out, nil
	}
	plan, err := u.plans.FindPlan(st.SelectedPlanID)
	if err != nil {
		out.Status = ProofNotAwaiting
		return out, nil
	}
	out.Plan = plan

	recID, err := u.ledger.CreatePendingTransaction(ctx, model.TransactionRecord{
		TelegramUserID: strconv.FormatInt(tgID, 10),
		TelegramName:   tgUsername,
		PlanID:         plan.ID,
		PlanName:       plan.Name(out.Language),
		Amount:         0,
		PaymentMethod:  "PROMO_FREE",
	})
	if err != nil {
		return nil, fmt.Errorf("create pending transaction: %w", err)
	}

	txRef := "FREE_" + ulid.Make().String()
	key, err := u.provision.IssueAccessKey(ctx, plan, out.Language, txRef, tgID, tgUsername)
	if err != nil {
		if ferr := u.ledger.FinalizeFailed(ctx, recID, err.Error()); ferr != nil {
			u.log.Error().Err(ferr).Int64("tx_record_id", recID).Msg("finalize failed errored")
		}
		metrics.IncProofOutcome(string(ProofProvisionFailed))
		out.Status = ProofProvisionFailed
		out.Reason = provisionFailureText(err)
		return out, nil
	}

	if err := u.ledger.FinalizeVerified(ctx, recID, txRef, key.Key); err != nil {
		u.log.Error().Err(err).Int64("tx_record_id", recID).Msg("finalize verified errored")
	}
	if st.PromoCode != "" {
		if err := u.promos.ChargeUsage(ctx, st.PromoCode); err != nil {
			u.log.Warn().Err(err).Str("promo", st.PromoCode).Msg("promo usage charge failed")
		}
	}
	if err := u.states.ClearState(ctx, tgID); err != nil {
		u.log.Warn().Err(err).Int64("tg_id", tgID).Msg("state clear failed")
	}

	metrics.IncProofOutcome(string(ProofVerified))
	out.Status = ProofVerified
	out.AccessKey = key
	out.TransactionRef = txRef
	out.AmountPaid = 0
	return out, nil
}

func (u *verificationUC) langOf(st *repository.ProofContext) string {
	if st.Language != "" {
		return st.Language
	}
	return "en"
}

// provisionFailureText maps provisioning errors onto the user-facing wording.
func provisionFailureText(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "Duplicate user or transaction detected on the server."
	case errors.Is(err, domain.ErrUpstreamAuth):
		return "Server authentication error. Please contact support."
	case errors.Is(err, domain.ErrUpstreamValidation):
		return "The server rejected the request. Please contact support."
	case errors.Is(err, domain.ErrMalformedPayload):
		return "Server returned success but no subscription key was found."
	default:
		return "Server error. Please try again later."
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
