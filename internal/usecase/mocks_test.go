package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/domain/ports/repository"
)

// memLedger is a small in-memory implementation used by unit tests.
type memLedger struct {
	mu     sync.Mutex
	txs    []model.TransactionRecord
	users  map[string]string
	promos map[string]*model.PromoCode
	nextID int64

	createErr error
	now       func() time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{
		users:  make(map[string]string),
		promos: make(map[string]*model.PromoCode),
		nextID: 1,
		now:    time.Now,
	}
}

func (m *memLedger) CreatePendingTransaction(ctx context.Context, rec model.TransactionRecord) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	rec.Status = model.TransactionStatusPending
	rec.CreatedAt = m.now()
	m.txs = append(m.txs, rec)
	return rec.ID, nil
}

func (m *memLedger) FinalizeVerified(ctx context.Context, id int64, ref, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			now := m.now()
			m.txs[i].TransactionRef = ref
			m.txs[i].SubscriptionKey = key
			m.txs[i].Status = model.TransactionStatusCompleted
			m.txs[i].VerifiedAt = &now
		}
	}
	return nil
}

func (m *memLedger) FinalizeFailed(ctx context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			m.txs[i].Status = model.TransactionStatusFailed
			m.txs[i].ErrorMessage = reason
		}
	}
	return nil
}

func (m *memLedger) IsTransactionRefUsed(ctx context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].TransactionRef == ref && m.txs[i].Status == model.TransactionStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) GetTransaction(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			cp := m.txs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) RecentTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TransactionRecord, len(m.txs))
	copy(out, m.txs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) CompletedTransactions(ctx context.Context) ([]model.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransactionRecord
	for i := range m.txs {
		if m.txs[i].Status == model.TransactionStatusCompleted {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memLedger) TransactionStats(ctx context.Context) (model.TransactionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := model.TransactionStats{Total: len(m.txs)}
	for i := range m.txs {
		switch m.txs[i].Status {
		case model.TransactionStatusCompleted:
			st.Completed++
		case model.TransactionStatusFailed:
			st.Failed++
		default:
			st.Pending++
		}
	}
	return st, nil
}

func (m *memLedger) UpsertUser(ctx context.Context, telegramID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[telegramID] = username
	return nil
}

func (m *memLedger) GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, domain.ErrPromoNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) AddPromoCode(ctx context.Context, promo model.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))
	promo.UsageCount = 0
	m.promos[promo.Code] = &promo
	return nil
}

func (m *memLedger) IncrementPromoUsage(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return domain.ErrPromoNotFound
	}
	p.UsageCount++
	return nil
}

// memStates is an in-memory StateRepository.
type memStates struct {
	mu     sync.Mutex
	states map[int64]*repository.ProofContext
}

func newMemStates() *memStates {
	return &memStates{states: make(map[int64]*repository.ProofContext)}
}

func (m *memStates) GetState(ctx context.Context, tgID int64) (*repository.ProofContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[tgID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memStates) SetState(ctx context.Context, tgID int64, st *repository.ProofContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.states[tgID] = &cp
	return nil
}

func (m *memStates) ClearState(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, tgID)
	return nil
}

// fakeClassifier returns canned verdicts in submission order.
type fakeClassifier struct {
	mu       sync.Mutex
	verdicts []model.VerificationResult
	calls    int
}

func (f *fakeClassifier) Classify(ctx context.Context, img adapter.SlipImage, expect adapter.ClassifyExpectation) (model.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.verdicts[0]
	if len(f.verdicts) > 1 {
		f.verdicts = f.verdicts[1:]
	}
	f.calls++
	return v, nil
}

// fakeGateway serves CreateUser from a scripted list of responses.
type fakeGateway struct {
	mu       sync.Mutex
	requests []adapter.CreateUserRequest
	results  []fakeCreateResult
	users    []adapter.UpstreamUser
	listErr  error
}

type fakeCreateResult struct {
	user *adapter.UpstreamUser
	err  error
}

func (f *fakeGateway) CreateUser(ctx context.Context, req adapter.CreateUserRequest) (*adapter.UpstreamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return &adapter.UpstreamUser{Username: req.Username, SubscriptionURL: "https://sub/" + req.Username}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.user, r.err
}

func (f *fakeGateway) ListUsers(ctx context.Context) ([]adapter.UpstreamUser, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}
