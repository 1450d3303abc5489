package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/infra/httpx"
	"telegram-vpn-subscription/internal/infra/metrics"
)

// Compile-time check
var _ ProvisionUseCase = (*provisionUC)(nil)

// ProvisionUseCase issues VPN credentials on the upstream panel.
type ProvisionUseCase interface {
	// IssueAccessKey creates an upstream account for the plan and returns the
	// subscription link. Transient upstream failures are retried with
	// exponential backoff; conflict, auth and validation errors abort
	// immediately with the matching domain error.
	IssueAccessKey(ctx context.Context, plan *model.ServicePlan, lang, txRef string, tgID int64, tgUsername string) (*model.AccessKey, error)
}

const (
	bytesPerGB       = 1 << 30
	maxCreateRetries = 3
	usernameBase     = "wavy"
)

type provisionUC struct {
	gateway   adapter.UpstreamGateway
	squadUUID string
	log       *zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewProvisionUseCase(gateway adapter.UpstreamGateway, squadUUID string, logger *zerolog.Logger) *provisionUC {
	return &provisionUC{
		gateway:   gateway,
		squadUUID: squadUUID,
		log:       logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *provisionUC) IssueAccessKey(ctx context.Context, plan *model.ServicePlan, lang, txRef string, tgID int64, tgUsername string) (*model.AccessKey, error) {
	username, rawTx := u.buildUsername(txRef, tgUsername)
	expireAt := u.now().AddDate(0, 0, plan.Duration.Days())

	req := adapter.CreateUserRequest{
		Username:             username,
		Status:               "ACTIVE",
		TrafficLimitBytes:    trafficLimitBytes(plan.DataLimitEN),
		TrafficLimitStrategy: "NO_RESET",
		ExpireAt:             expireAt.UTC().Format(time.RFC3339),
		Description:          fmt.Sprintf("Wavy: %s | TG: %d | Tx: %s", plan.Name(lang), tgID, rawTx),
		ActiveInternalSquads: []string{u.squadUUID},
	}

	var lastErr error
	for attempt := 1; attempt <= maxCreateRetries; attempt++ {
		metrics.IncProvisionAttempt()
		u.log.Info().Str("username", username).Str("plan", plan.ID).Int("attempt", attempt).Msg("creating upstream user")

		user, err := u.gateway.CreateUser(ctx, req)
		if err == nil {
			if user == nil || user.SubscriptionURL == "" {
				lastErr = domain.ErrMalformedPayload
				u.log.Error().Str("username", username).Msg("upstream returned success without subscription url")
			} else {
				return &model.AccessKey{
					Key:        user.SubscriptionURL,
					Protocol:   "Subscription URL",
					ExpiryDate: expireAt.UTC().Format("2006-01-02"),
				}, nil
			}
		} else {
			lastErr = classifyUpstreamError(err)
			u.log.Warn().Err(err).Int("attempt", attempt).Msg("upstream user creation failed")
			if !errors.Is(lastErr, domain.ErrUpstreamUnavailable) && !errors.Is(lastErr, domain.ErrMalformedPayload) {
				metrics.IncProvisionFailure(failureClass(lastErr))
				return nil, lastErr
			}
		}

		if attempt < maxCreateRetries {
			backoff := time.Duration(1<<attempt) * time.Second // 2s, 4s
			if err := u.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	metrics.IncProvisionFailure(failureClass(lastErr))
	return nil, lastErr
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, domain.ErrUpstreamAuth):
		return "auth"
	case errors.Is(err, domain.ErrUpstreamValidation):
		return "validation"
	case errors.Is(err, domain.ErrMalformedPayload):
		return "malformed"
	default:
		return "unavailable"
	}
}

// classifyUpstreamError maps transport errors onto domain sentinels. Only
// server errors and connection failures stay retryable.
func classifyUpstreamError(err error) error {
	var he *httpx.Error
	if !errors.As(err, &he) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	switch {
	case he.Status == nil:
		return fmt.Errorf("%w: cannot connect", domain.ErrUpstreamUnavailable)
	case he.StatusCode() == 409:
		return domain.ErrDuplicateTransaction
	case he.StatusCode() == 401 || he.StatusCode() == 403:
		return domain.ErrUpstreamAuth
	case he.StatusCode() >= 400 && he.StatusCode() < 500:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamValidation, he.Message)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, he.Message)
	}
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
var nonUsername = regexp.MustCompile(`[^a-zA-Z0-9_]`)
var gbPattern = regexp.MustCompile(`(?i)(\d+)\s*GB`)

// buildUsername derives a readable unique panel username, e.g.
// "ospeto_8175_a1b2": telegram handle, last digits of the transaction ref,
// random suffix to dodge collisions on resubmission.
func (u *provisionUC) buildUsername(txRef, tgUsername string) (username, rawTx string) {
	suffix := make([]byte, 2)
	rand.Read(suffix)

	rawTx = nonAlnum.ReplaceAllString(txRef, "")
	if rawTx == "" {
		rawTx = strconv.FormatInt(u.now().UnixMilli(), 10)
	}

	base := usernameBase
	if tgUsername != "" {
		base = nonUsername.ReplaceAllString(strings.TrimPrefix(tgUsername, "@"), "")
		if len(base) > 20 {
			base = base[:20]
		}
		if base == "" {
			base = usernameBase
		}
	}

	shortTx := rawTx
	if len(shortTx) > 4 {
		shortTx = shortTx[len(shortTx)-4:]
	}
	return fmt.Sprintf("%s_%s_%s", base, shortTx, hex.EncodeToString(suffix)), rawTx
}

// trafficLimitBytes parses a catalog data-limit label. Unlimited and
// unparseable labels both map to no cap.
func trafficLimitBytes(label string) int64 {
	if strings.Contains(strings.ToLower(label), "unlimited") {
		return 0
	}
	if m := gbPattern.FindStringSubmatch(label); m != nil {
		gb, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return gb * bytesPerGB
		}
	}
	return 0
}
