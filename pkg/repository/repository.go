// Package repository defines the data-access contracts for the application.
// Implementations live in infra/repository and are always obtained through a
// UnitOfWork so that related mutations share one transaction.
package repository

import (
	"context"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/knowledge"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/google/uuid"
)

// CreditAccountRepository provides access to credit accounts.
type CreditAccountRepository interface {
	// GetOrCreate returns the user's credit account, creating it with a
	// zero balance if none exists. Accounts are never created any other
	// way; the upsert-on-read of the original design is explicit here.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*credit.Account, error)

	// DebitGuarded atomically decrements the balance by amount if and only
	// if the current balance covers it, reporting whether the decrement was
	// applied. The guard runs inside the store (balance >= amount in the
	// UPDATE predicate) so concurrent debits cannot both pass.
	DebitGuarded(ctx context.Context, accountID uuid.UUID, amount int64) (bool, error)

	// Credit atomically increments the balance by amount.
	Credit(ctx context.Context, accountID uuid.UUID, amount int64) error
}

// CreditTransactionRepository provides access to the append-only ledger.
type CreditTransactionRepository interface {
	Create(ctx context.Context, tx *credit.Transaction) error
	// ExistsDedupKey reports whether a transaction with the given dedup
	// key has already been recorded.
	ExistsDedupKey(ctx context.Context, key string) (bool, error)
	// ListByAccount returns the account's transactions, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*credit.Transaction, error)
	// SumCompleted returns the sum of COMPLETED transaction amounts for
	// the account. Used by consistency checks.
	SumCompleted(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// AnalysisSessionRepository provides access to analysis sessions.
type AnalysisSessionRepository interface {
	Create(ctx context.Context, s *analysis.Session) error
	Get(ctx context.Context, id uuid.UUID) (*analysis.Session, error)
	// Touch bumps the session's updated_at timestamp.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AnalysisRecordRepository provides access to persisted analysis calls.
type AnalysisRecordRepository interface {
	Create(ctx context.Context, r *analysis.Record) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*analysis.Record, error)
}

// UserRepository provides access to users.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	// UpdateSubscription upserts the user's payment-provider linkage.
	UpdateSubscription(ctx context.Context, userID uuid.UUID, customerID, subscriptionID, priceID string, periodEnd time.Time) error
}

// KnowledgeRepository provides access to the trading-knowledge corpus.
type KnowledgeRepository interface {
	Add(ctx context.Context, e *knowledge.Entry) error
	// List returns entries in insertion order, optionally filtered by
	// category. Insertion order is the retrieval tie-break.
	List(ctx context.Context, category string) ([]*knowledge.Entry, error)
	CreateFeedback(ctx context.Context, f *knowledge.Feedback) error
}
