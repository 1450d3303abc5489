package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/repository"
	"telegram-vpn-subscription/internal/infra/metrics"
)

const (
	defaultCacheTTL   = 5 * time.Second
	defaultFlushDelay = 100 * time.Millisecond
)

var _ repository.LedgerStore = (*Store)(nil)

// document is the on-disk shape: three collections plus the id counter.
type document struct {
	Transactions []model.TransactionRecord `json:"transactions"`
	Users        []model.User              `json:"users"`
	PromoCodes   []model.PromoCode         `json:"promocodes"`
	NextID       int64                     `json:"nextId"`
}

// Store is a file-backed ledger with read-your-writes semantics: every
// mutation updates the in-process cache immediately and schedules a debounced
// coalesced write. Losing the last debounce window on crash is accepted;
// Flush forces a synchronous write for shutdown and tests. Single-writer per
// process; multi-process deployments need an external lock.
type Store struct {
	path string
	log  *zerolog.Logger

	now        func() time.Time
	cacheTTL   time.Duration
	flushDelay time.Duration

	mu         sync.Mutex
	doc        *document
	cachedAt   time.Time
	dirty      bool
	flushTimer *time.Timer
}

func NewStore(path string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Store{
		path:       path,
		log:        logger,
		now:        time.Now,
		cacheTTL:   defaultCacheTTL,
		flushDelay: defaultFlushDelay,
	}, nil
}

// load returns the cached document, re-reading the file once the TTL lapses.
// Callers must hold s.mu.
func (s *Store) load() *document {
	now := s.now()
	if s.doc != nil && now.Sub(s.cachedAt) < s.cacheTTL {
		return s.doc
	}
	// A dirty cache is newer than the file; never reload over it.
	if s.doc != nil && s.dirty {
		s.cachedAt = now
		return s.doc
	}

	doc := &document{NextID: 1}
	if b, err := os.ReadFile(s.path); err == nil {
		if err := json.Unmarshal(b, doc); err != nil {
			s.log.Error().Err(err).Str("path", s.path).Msg("ledger: corrupt document, starting fresh")
			doc = &document{NextID: 1}
		}
	} else if !os.IsNotExist(err) {
		s.log.Error().Err(err).Str("path", s.path).Msg("ledger: read failed")
	}
	if doc.NextID <= 0 {
		doc.NextID = 1
		for _, t := range doc.Transactions {
			if t.ID >= doc.NextID {
				doc.NextID = t.ID + 1
			}
		}
	}
	s.doc = doc
	s.cachedAt = now
	return doc
}

// markDirty schedules the debounced flush. Callers must hold s.mu.
func (s *Store) markDirty() {
	s.dirty = true
	s.cachedAt = s.now()
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.flushDelay, func() {
		if err := s.Flush(); err != nil {
			// Disk errors must not surface mid-flow; the cache already
			// reflects the intended state.
			s.log.Error().Err(err).Msg("ledger: debounced flush failed")
		}
	})
}

// Flush writes the document synchronously if there are pending changes.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || s.doc == nil {
		return nil
	}
	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return err
	}
	metrics.IncLedgerFlush()
	s.dirty = false
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	return nil
}

func (s *Store) CreatePendingTransaction(ctx context.Context, rec model.TransactionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()

	rec.ID = doc.NextID
	doc.NextID++
	rec.Status = model.TransactionStatusPending
	rec.CreatedAt = s.now()
	doc.Transactions = append(doc.Transactions, rec)
	s.markDirty()
	return rec.ID, nil
}

func (s *Store) FinalizeVerified(ctx context.Context, id int64, transactionRef, subscriptionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	tx := findTx(doc, id)
	if tx == nil {
		s.log.Warn().Int64("id", id).Msg("ledger: finalize verified on unknown transaction")
		return nil
	}
	now := s.now()
	tx.TransactionRef = transactionRef
	tx.SubscriptionKey = subscriptionKey
	tx.Status = model.TransactionStatusCompleted
	tx.VerifiedAt = &now
	s.markDirty()
	return nil
}

func (s *Store) FinalizeFailed(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	tx := findTx(doc, id)
	if tx == nil {
		s.log.Warn().Int64("id", id).Msg("ledger: finalize failed on unknown transaction")
		return nil
	}
	tx.Status = model.TransactionStatusFailed
	tx.ErrorMessage = reason
	s.markDirty()
	return nil
}

func (s *Store) IsTransactionRefUsed(ctx context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	for i := range doc.Transactions {
		t := &doc.Transactions[i]
		if t.TransactionRef == ref && t.Status == model.TransactionStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := findTx(s.load(), id)
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	out := make([]model.TransactionRecord, len(doc.Transactions))
	copy(out, doc.Transactions)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CompletedTransactions(ctx context.Context) ([]model.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	var out []model.TransactionRecord
	for i := range doc.Transactions {
		if doc.Transactions[i].Status == model.TransactionStatusCompleted {
			out = append(out, doc.Transactions[i])
		}
	}
	return out, nil
}

func (s *Store) TransactionStats(ctx context.Context) (model.TransactionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	stats := model.TransactionStats{Total: len(doc.Transactions)}
	for i := range doc.Transactions {
		switch doc.Transactions[i].Status {
		case model.TransactionStatusCompleted:
			stats.Completed++
		case model.TransactionStatusFailed:
			stats.Failed++
		case model.TransactionStatusPending:
			stats.Pending++
		}
	}
	return stats, nil
}

func (s *Store) UpsertUser(ctx context.Context, telegramID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	for i := range doc.Users {
		if doc.Users[i].TelegramID == telegramID {
			doc.Users[i].Username = username
			s.markDirty()
			return nil
		}
	}
	doc.Users = append(doc.Users, model.User{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  s.now(),
	})
	s.markDirty()
	return nil
}

func (s *Store) GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	norm := normalizeCode(code)
	for i := range doc.PromoCodes {
		if doc.PromoCodes[i].Code == norm {
			cp := doc.PromoCodes[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrPromoNotFound
}

func (s *Store) AddPromoCode(ctx context.Context, promo model.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	promo.Code = normalizeCode(promo.Code)
	promo.UsageCount = 0

	kept := doc.PromoCodes[:0]
	for _, p := range doc.PromoCodes {
		if p.Code != promo.Code {
			kept = append(kept, p)
		}
	}
	doc.PromoCodes = append(kept, promo)
	s.markDirty()
	return nil
}

func (s *Store) IncrementPromoUsage(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	norm := normalizeCode(code)
	for i := range doc.PromoCodes {
		if doc.PromoCodes[i].Code == norm {
			doc.PromoCodes[i].UsageCount++
			s.markDirty()
			return nil
		}
	}
	return domain.ErrPromoNotFound
}

func findTx(doc *document, id int64) *model.TransactionRecord {
	for i := range doc.Transactions {
		if doc.Transactions[i].ID == id {
			return &doc.Transactions[i]
		}
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
