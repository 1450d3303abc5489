package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PlanSales aggregates completed sales for one plan.
type PlanSales struct {
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`
	Count    int    `json:"count"`
	Amount   int64  `json:"amount"`
}

// UpstreamEstimate buckets panel accounts by the plan they most likely were
// sold under. Estimated: the panel stores no plan ids, so accounts are
// matched on traffic cap and subscription length.
type UpstreamEstimate struct {
	PlanName string // "unknown" for accounts matching no plan
	Count    int
	Amount   int64 // catalog price * count, 0 for unknown
}

// RevenueReport is the /admin_revenue payload: exact numbers from the
// ledger, estimated numbers from the panel.
type RevenueReport struct {
	TotalRevenue int64
	MonthRevenue int64
	MonthStart   time.Time
	SalesByPlan  []PlanSales

	UpstreamTotal     int
	UpstreamActive    int
	UpstreamEstimates []UpstreamEstimate
	UpstreamRevenue   int64 // sum over estimates, estimated
}

// StatsUseCase serves the admin reporting commands.
type StatsUseCase interface {
	Overview(ctx context.Context) (model.TransactionStats, error)
	Recent(ctx context.Context, limit int) ([]model.TransactionRecord, error)
	Revenue(ctx context.Context) (*RevenueReport, error)
}

type statsUC struct {
	ledger  repository.LedgerStore
	gateway adapter.UpstreamGateway
	plans   PlanUseCase
	log     *zerolog.Logger
	now     func() time.Time
}

func NewStatsUseCase(ledger repository.LedgerStore, gateway adapter.UpstreamGateway, plans PlanUseCase, logger *zerolog.Logger) *statsUC {
	return &statsUC{ledger: ledger, gateway: gateway, plans: plans, log: logger, now: time.Now}
}

func (u *statsUC) Overview(ctx context.Context) (model.TransactionStats, error) {
	return u.ledger.TransactionStats(ctx)
}

func (u *statsUC) Recent(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	return u.ledger.RecentTransactions(ctx, limit)
}

func (u *statsUC) Revenue(ctx context.Context) (*RevenueReport, error) {
	completed, err := u.ledger.CompletedTransactions(ctx)
	if err != nil {
		return nil, err
	}

	now := u.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	rep := &RevenueReport{MonthStart: monthStart}

	byPlan := make(map[string]*PlanSales)
	for _, tx := range completed {
		rep.TotalRevenue += tx.Amount
		if !tx.CreatedAt.Before(monthStart) {
			rep.MonthRevenue += tx.Amount
		}
		s := byPlan[tx.PlanID]
		if s == nil {
			s = &PlanSales{PlanID: tx.PlanID, PlanName: tx.PlanName}
			byPlan[tx.PlanID] = s
		}
		s.Count++
		s.Amount += tx.Amount
	}
	for _, s := range byPlan {
		rep.SalesByPlan = append(rep.SalesByPlan, *s)
	}
	sort.Slice(rep.SalesByPlan, func(i, j int) bool { return rep.SalesByPlan[i].Amount > rep.SalesByPlan[j].Amount })

	// Panel data is best-effort; the ledger numbers stand on their own.
	users, err := u.gateway.ListUsers(ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("upstream user listing failed, reporting ledger only")
		return rep, nil
	}
	rep.UpstreamTotal = len(users)

	estimates := make(map[string]*UpstreamEstimate)
	for _, user := range users {
		if user.Status == "ACTIVE" {
			rep.UpstreamActive++
		}
		plan := u.matchPlan(user)
		name := "unknown"
		var price int64
		if plan != nil {
			name = plan.NameEN
			price = plan.Price
		}
		e := estimates[name]
		if e == nil {
			e = &UpstreamEstimate{PlanName: name}
			estimates[name] = e
		}
		e.Count++
		e.Amount += price
	}
	for _, e := range estimates {
		rep.UpstreamEstimates = append(rep.UpstreamEstimates, *e)
		rep.UpstreamRevenue += e.Amount
	}
	sort.Slice(rep.UpstreamEstimates, func(i, j int) bool {
		return rep.UpstreamEstimates[i].Count > rep.UpstreamEstimates[j].Count
	})
	return rep, nil
}

// durationTolerance absorbs clock skew and manual expiry extensions when
// matching an account's lifetime against a plan length.
const durationTolerance = 0.15

func (u *statsUC) matchPlan(user adapter.UpstreamUser) *model.ServicePlan {
	created, err1 := time.Parse(time.RFC3339, user.CreatedAt)
	expire, err2 := time.Parse(time.RFC3339, user.ExpireAt)
	if err1 != nil || err2 != nil || !expire.After(created) {
		return nil
	}
	days := expire.Sub(created).Hours() / 24

	plans := u.plans.ListPlans()
	for i := range plans {
		p := &plans[i]
		if trafficLimitBytes(p.DataLimitEN) != user.TrafficLimitByte {
			continue
		}
		planDays := float64(p.Duration.Days())
		if days >= planDays*(1-durationTolerance) && days <= planDays*(1+durationTolerance) {
			return p
		}
	}
	return nil
}
