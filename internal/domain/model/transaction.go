package model

import "time"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // proof received, verification in flight
	TransactionStatusCompleted TransactionStatus = "completed" // verified and credential issued
	TransactionStatusFailed    TransactionStatus = "failed"    // rejected, duplicate, or provisioning error
)

// TransactionRecord is one payment attempt. The store assigns ID exactly once
// at creation; status only ever moves pending -> completed or pending -> failed.
// The (TransactionRef, completed) pair is the duplicate-spend prevention key.
type TransactionRecord struct {
	ID              int64             `json:"id"`
	TelegramUserID  string            `json:"telegram_user_id"`
	TelegramName    string            `json:"telegram_username,omitempty"`
	TransactionRef  string            `json:"transaction_id,omitempty"` // extracted from the slip
	PlanID          string            `json:"plan_id"`
	PlanName        string            `json:"plan_name"`
	Amount          int64             `json:"amount"` // MMK, integer
	PaymentMethod   string            `json:"payment_method,omitempty"`
	SubscriptionKey string            `json:"subscription_key,omitempty"`
	Status          TransactionStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

// TransactionStats is an aggregate snapshot for admin reporting.
type TransactionStats struct {
	Total     int
	Completed int
	Failed    int
	Pending   int
}

// User is the minimal registered-user record kept alongside transactions.
type User struct {
	TelegramID string    `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	IsPremium  bool      `json:"is_premium"`
	CreatedAt  time.Time `json:"created_at"`
}
