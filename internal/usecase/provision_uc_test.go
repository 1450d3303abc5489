package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/infra/httpx"
)

const testSquad = "87dfe20c-e812-4c43-b424-2f5bb6458329"

func testLog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestProvision(gw *fakeGateway) (*provisionUC, *[]time.Duration) {
	u := NewProvisionUseCase(gw, testSquad, testLog())
	u.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	var sleeps []time.Duration
	u.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return u, &sleeps
}

func limitedPlan() *model.ServicePlan {
	plans := model.DefaultServicePlans()
	for i := range plans {
		if plans[i].ID == "1m-100gb" {
			return &plans[i]
		}
	}
	return nil
}

func unlimitedPlan() *model.ServicePlan {
	plans := model.DefaultServicePlans()
	return &plans[0] // 1m-unlimited
}

func intp(n int) *int { return &n }

func TestIssueAccessKey_Success(t *testing.T) {
	gw := &fakeGateway{}
	u, sleeps := newTestProvision(gw)

	key, err := u.IssueAccessKey(context.Background(), limitedPlan(), "en", "TX-9981 75", 42, "@os peto!")
	if err != nil {
		t.Fatalf("IssueAccessKey: %v", err)
	}
	if len(*sleeps) != 0 {
		t.Errorf("no retries expected, slept %v", *sleeps)
	}
	if key.ExpiryDate != "2025-07-01" {
		t.Errorf("expiry = %q, want 2025-07-01", key.ExpiryDate)
	}
	if key.Protocol != "Subscription URL" {
		t.Errorf("protocol = %q", key.Protocol)
	}

	req := gw.requests[0]
	if req.Status != "ACTIVE" || req.TrafficLimitStrategy != "NO_RESET" {
		t.Errorf("req = %+v", req)
	}
	if req.TrafficLimitBytes != 100<<30 {
		t.Errorf("traffic = %d, want 100 GiB", req.TrafficLimitBytes)
	}
	if len(req.ActiveInternalSquads) != 1 || req.ActiveInternalSquads[0] != testSquad {
		t.Errorf("squads = %v", req.ActiveInternalSquads)
	}
	// Handle cleaned, short tx = last 4 alnum chars, 4 hex suffix.
	if ok, _ := regexp.MatchString(`^ospeto_8175_[0-9a-f]{4}$`, req.Username); !ok {
		t.Errorf("username = %q", req.Username)
	}
	if !strings.Contains(req.Description, "TG: 42") || !strings.Contains(req.Description, "Tx: TX998175") {
		t.Errorf("description = %q", req.Description)
	}
}

func TestIssueAccessKey_UnlimitedPlanHasNoCap(t *testing.T) {
	gw := &fakeGateway{}
	u, _ := newTestProvision(gw)

	if _, err := u.IssueAccessKey(context.Background(), unlimitedPlan(), "en", "TX1", 1, ""); err != nil {
		t.Fatalf("IssueAccessKey: %v", err)
	}
	if gw.requests[0].TrafficLimitBytes != 0 {
		t.Errorf("traffic = %d, want 0", gw.requests[0].TrafficLimitBytes)
	}
	if !strings.HasPrefix(gw.requests[0].Username, "wavy_") {
		t.Errorf("username fallback = %q", gw.requests[0].Username)
	}
}

func TestIssueAccessKey_RetriesServerErrors(t *testing.T) {
	gw := &fakeGateway{results: []fakeCreateResult{
		{err: &httpx.Error{Message: "boom", Status: intp(500)}},
		{err: &httpx.Error{Message: "still down"}}, // nil status = connection failure
		{user: &adapter.UpstreamUser{SubscriptionURL: "https://sub/ok"}},
	}}
	u, sleeps := newTestProvision(gw)

	key, err := u.IssueAccessKey(context.Background(), unlimitedPlan(), "en", "TX1", 1, "user")
	if err != nil {
		t.Fatalf("IssueAccessKey: %v", err)
	}
	if key.Key != "https://sub/ok" {
		t.Errorf("key = %q", key.Key)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("backoff = %v, want %v", *sleeps, want)
	}
}

func TestIssueAccessKey_ExhaustsRetries(t *testing.T) {
	gw := &fakeGateway{results: []fakeCreateResult{
		{err: &httpx.Error{Message: "down", Status: intp(502)}},
		{err: &httpx.Error{Message: "down", Status: intp(502)}},
		{err: &httpx.Error{Message: "down", Status: intp(502)}},
	}}
	u, sleeps := newTestProvision(gw)

	_, err := u.IssueAccessKey(context.Background(), unlimitedPlan(), "en", "TX1", 1, "user")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if len(gw.requests) != 3 {
		t.Errorf("attempts = %d, want 3", len(gw.requests))
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %v, want 2 backoffs", *sleeps)
	}
}

func TestIssueAccessKey_NonRetryableErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", 409, domain.ErrDuplicateTransaction},
		{"unauthorized", 401, domain.ErrUpstreamAuth},
		{"forbidden", 403, domain.ErrUpstreamAuth},
		{"bad request", 400, domain.ErrUpstreamValidation},
		{"not found", 404, domain.ErrUpstreamValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{results: []fakeCreateResult{
				{err: &httpx.Error{Message: "nope", Status: intp(tc.status)}},
			}}
			u, sleeps := newTestProvision(gw)

			_, err := u.IssueAccessKey(context.Background(), unlimitedPlan(), "en", "TX1", 1, "user")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if len(gw.requests) != 1 {
				t.Errorf("attempts = %d, want 1", len(gw.requests))
			}
			if len(*sleeps) != 0 {
				t.Errorf("non-retryable error must not back off, slept %v", *sleeps)
			}
		})
	}
}

func TestIssueAccessKey_MissingSubscriptionURLRetriesThenFails(t *testing.T) {
	gw := &fakeGateway{results: []fakeCreateResult{
		{user: &adapter.UpstreamUser{Username: "a"}},
		{user: &adapter.UpstreamUser{Username: "a"}},
		{user: &adapter.UpstreamUser{Username: "a"}},
	}}
	u, _ := newTestProvision(gw)

	_, err := u.IssueAccessKey(context.Background(), unlimitedPlan(), "en", "TX1", 1, "user")
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
	if len(gw.requests) != 3 {
		t.Errorf("attempts = %d, want 3", len(gw.requests))
	}
}

func TestTrafficLimitBytes(t *testing.T) {
	cases := []struct {
		label string
		want  int64
	}{
		{"Unlimited Data", 0},
		{"100 GB Data", 100 << 30},
		{"600 GB Data", 600 << 30},
		{"300GB", 300 << 30},
		{"weird label", 0},
	}
	for _, tc := range cases {
		if got := trafficLimitBytes(tc.label); got != tc.want {
			t.Errorf("trafficLimitBytes(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestBuildUsername_LongHandleTruncated(t *testing.T) {
	gw := &fakeGateway{}
	u, _ := newTestProvision(gw)

	username, rawTx := u.buildUsername("ABC123XYZ", "@a_very_long_telegram_handle_indeed")
	if rawTx != "ABC123XYZ" {
		t.Errorf("rawTx = %q", rawTx)
	}
	parts := strings.Split(username, "_")
	base := strings.Join(parts[:len(parts)-2], "_")
	if len(base) > 20 {
		t.Errorf("base %q longer than 20", base)
	}
	if parts[len(parts)-2] != "3XYZ" {
		t.Errorf("short tx = %q, want 3XYZ", parts[len(parts)-2])
	}
}

func TestBuildUsername_EmptyRefUsesTimestamp(t *testing.T) {
	gw := &fakeGateway{}
	u, _ := newTestProvision(gw)

	_, rawTx := u.buildUsername("", "user")
	if rawTx == "" {
		t.Error("rawTx must fall back to a timestamp")
	}
	if ok, _ := regexp.MatchString(`^\d+$`, rawTx); !ok {
		t.Errorf("rawTx = %q, want digits", rawTx)
	}
}
