package repository

import (
	"context"

	"telegram-vpn-subscription/internal/domain/model"
)

// LedgerStore is the durable record of payment attempts, users and promo
// codes. Implementations must provide read-your-writes within the process;
// durability may lag by a short debounce window.
type LedgerStore interface {
	// CreatePendingTransaction assigns a unique id, stamps creation time and
	// stores the record with status pending.
	CreatePendingTransaction(ctx context.Context, rec model.TransactionRecord) (int64, error)

	// FinalizeVerified moves the record to completed and stores the extracted
	// transaction reference and issued credential. Unknown ids are logged and
	// ignored; calling twice leaves the state of the last write.
	FinalizeVerified(ctx context.Context, id int64, transactionRef, subscriptionKey string) error

	// FinalizeFailed moves the record to failed with a reason. Same unknown-id
	// and idempotence semantics as FinalizeVerified.
	FinalizeFailed(ctx context.Context, id int64, reason string) error

	// IsTransactionRefUsed reports whether any completed record carries ref.
	// This is the sole defense against replaying the same proof twice.
	IsTransactionRefUsed(ctx context.Context, ref string) (bool, error)

	GetTransaction(ctx context.Context, id int64) (*model.TransactionRecord, error)
	RecentTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error)
	CompletedTransactions(ctx context.Context) ([]model.TransactionRecord, error)
	TransactionStats(ctx context.Context) (model.TransactionStats, error)

	UpsertUser(ctx context.Context, telegramID, username string) error

	// GetPromoCode matches case-insensitively; returns domain.ErrPromoNotFound
	// when absent.
	GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error)
	// AddPromoCode upserts by normalized code, resetting the usage count.
	AddPromoCode(ctx context.Context, promo model.PromoCode) error
	IncrementPromoUsage(ctx context.Context, code string) error
}
