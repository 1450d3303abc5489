package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

func newTestStats(gw *fakeGateway) (*statsUC, *memLedger, time.Time) {
	ledger := newMemLedger()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }
	plans := NewPlanUseCase(model.DefaultServicePlans(), model.DefaultPaymentMethods())
	u := NewStatsUseCase(ledger, gw, plans, testLog())
	u.now = func() time.Time { return now }
	return u, ledger, now
}

func seedSale(ctx context.Context, ledger *memLedger, planID, planName string, amount int64, ref string) {
	id, _ := ledger.CreatePendingTransaction(ctx, model.TransactionRecord{
		TelegramUserID: "1", PlanID: planID, PlanName: planName, Amount: amount,
	})
	ledger.FinalizeVerified(ctx, id, ref, "key")
}

func TestRevenue_LedgerAggregation(t *testing.T) {
	gw := &fakeGateway{}
	u, ledger, now := newTestStats(gw)
	ctx := context.Background()

	// Two sales this month, one last month.
	seedSale(ctx, ledger, "1m-unlimited", "1 Month Unlimited", 10000, "T1")
	seedSale(ctx, ledger, "1m-unlimited", "1 Month Unlimited", 10000, "T2")
	ledger.now = func() time.Time { return now.AddDate(0, -1, 0) }
	seedSale(ctx, ledger, "3m-unlimited", "3 Months Unlimited", 27000, "T3")
	ledger.now = func() time.Time { return now }

	// A failed attempt must not count.
	id, _ := ledger.CreatePendingTransaction(ctx, model.TransactionRecord{PlanID: "1m-unlimited", Amount: 10000})
	ledger.FinalizeFailed(ctx, id, "bad slip")

	rep, err := u.Revenue(ctx)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if rep.TotalRevenue != 47000 {
		t.Errorf("total = %d, want 47000", rep.TotalRevenue)
	}
	if rep.MonthRevenue != 20000 {
		t.Errorf("month = %d, want 20000", rep.MonthRevenue)
	}
	if len(rep.SalesByPlan) != 2 {
		t.Fatalf("plans = %d, want 2", len(rep.SalesByPlan))
	}
	if rep.SalesByPlan[0].PlanID != "3m-unlimited" || rep.SalesByPlan[0].Amount != 27000 {
		t.Errorf("top plan = %+v", rep.SalesByPlan[0])
	}
}

func TestRevenue_UpstreamEstimation(t *testing.T) {
	created := "2025-05-01T00:00:00Z"
	gw := &fakeGateway{users: []adapter.UpstreamUser{
		// Exact 30-day unlimited account.
		{Status: "ACTIVE", TrafficLimitByte: 0, CreatedAt: created, ExpireAt: "2025-05-31T00:00:00Z"},
		// 100GB account with a slightly extended expiry, still within tolerance.
		{Status: "ACTIVE", TrafficLimitByte: 100 << 30, CreatedAt: created, ExpireAt: "2025-06-02T00:00:00Z"},
		// Lifetime way off any plan length.
		{Status: "DISABLED", TrafficLimitByte: 0, CreatedAt: created, ExpireAt: "2026-05-01T00:00:00Z"},
	}}
	u, _, _ := newTestStats(gw)

	rep, err := u.Revenue(context.Background())
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if rep.UpstreamTotal != 3 || rep.UpstreamActive != 2 {
		t.Errorf("total=%d active=%d", rep.UpstreamTotal, rep.UpstreamActive)
	}

	byName := make(map[string]UpstreamEstimate)
	for _, e := range rep.UpstreamEstimates {
		byName[e.PlanName] = e
	}
	if e := byName["1 Month Unlimited"]; e.Count != 1 || e.Amount != 10000 {
		t.Errorf("unlimited estimate = %+v", e)
	}
	if e := byName["1 Month Lite"]; e.Count != 1 || e.Amount != 5000 {
		t.Errorf("lite estimate = %+v", e)
	}
	if e := byName["unknown"]; e.Count != 1 || e.Amount != 0 {
		t.Errorf("unknown bucket = %+v", e)
	}
	if rep.UpstreamRevenue != 15000 {
		t.Errorf("upstream revenue = %d, want 15000", rep.UpstreamRevenue)
	}
}

func TestRevenue_UpstreamFailureKeepsLedgerNumbers(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("panel down")}
	u, ledger, _ := newTestStats(gw)
	ctx := context.Background()

	seedSale(ctx, ledger, "1m-unlimited", "1 Month Unlimited", 10000, "T1")

	rep, err := u.Revenue(ctx)
	if err != nil {
		t.Fatalf("Revenue must not fail on panel errors: %v", err)
	}
	if rep.TotalRevenue != 10000 || rep.UpstreamTotal != 0 {
		t.Errorf("rep = %+v", rep)
	}
}

func TestOverviewAndRecent(t *testing.T) {
	gw := &fakeGateway{}
	u, ledger, _ := newTestStats(gw)
	ctx := context.Background()

	seedSale(ctx, ledger, "1m-unlimited", "1 Month Unlimited", 10000, "T1")
	id, _ := ledger.CreatePendingTransaction(ctx, model.TransactionRecord{PlanID: "1m-unlimited"})
	ledger.FinalizeFailed(ctx, id, "nope")
	ledger.CreatePendingTransaction(ctx, model.TransactionRecord{PlanID: "1m-unlimited"})

	stats, err := u.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Failed != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v", stats)
	}

	recent, err := u.Recent(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("recent = %v err=%v", recent, err)
	}
}
