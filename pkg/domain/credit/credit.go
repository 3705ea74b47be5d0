// Package credit holds the credit ledger aggregate: per-user accounts with a
// consumable balance and their append-only transaction history.
package credit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientCredits is returned when a debit would drive the
	// balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrDuplicateTransaction is returned when a credit carries a
	// dedup key that has already been applied.
	ErrDuplicateTransaction = errors.New("duplicate credit transaction")
	// ErrAmountMustBePositive is returned when a debit or credit amount
	// is zero or negative.
	ErrAmountMustBePositive = errors.New("amount must be positive")
)

// TxType classifies a ledger transaction.
type TxType string

const (
	TxPurchase          TxType = "PURCHASE"
	TxSubscriptionGrant TxType = "SUBSCRIPTION_GRANT"
	TxAnalysisDebit     TxType = "ANALYSIS_DEBIT"
	TxRefund            TxType = "REFUND"
	TxAdjustment        TxType = "ADJUSTMENT"
)

// TxStatus is the lifecycle state of a ledger transaction. A transaction
// moves PENDING -> COMPLETED or PENDING -> FAILED exactly once and is never
// mutated afterwards.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxCompleted TxStatus = "COMPLETED"
	TxFailed    TxStatus = "FAILED"
)

// Account is a user's credit account.
//
// Invariants:
//   - Balance is never negative.
//   - Balance equals the sum of all COMPLETED transaction amounts for the
//     account; the two are only ever mutated together, atomically.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry. Amount is signed: debits are
// negative, credits positive.
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    int64
	Type      TxType
	Status    TxStatus
	// DedupKey carries the external event id for provider-driven credits
	// so redelivered events apply at most once. Empty for debits.
	DedupKey  string
	Metadata  map[string]string
	CreatedAt time.Time
}
