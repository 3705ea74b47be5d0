// Package ledger implements the credit ledger: per-user balances with an
// append-only transaction history. Every balance mutation and its matching
// transaction row are committed in one unit of work, so balance and history
// can never diverge.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// Service provides atomic debit/credit operations against credit accounts.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// New creates a ledger Service.
func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger}
}

// GetBalance returns the user's current balance, creating a zero-balance
// account on first access. It never fails for a missing account.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (balance int64, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.CreditAccountRepository()
		if err != nil {
			return err
		}
		acct, err := accounts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		balance = acct.Balance
		return nil
	})
	return
}

// Debit consumes amount credits for the given reason. It fails with
// credit.ErrInsufficientCredits when the balance does not cover the amount,
// leaving the balance unchanged. The guarded decrement and the COMPLETED
// ANALYSIS_DEBIT row commit together or not at all.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason string) (txID uuid.UUID, err error) {
	if amount <= 0 {
		return uuid.Nil, credit.ErrAmountMustBePositive
	}
	log := s.logger.With("operation", "ledger.Debit", "user_id", userID, "amount", amount)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.CreditAccountRepository()
		if err != nil {
			return err
		}
		txs, err := uow.CreditTransactionRepository()
		if err != nil {
			return err
		}
		acct, err := accounts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		applied, err := accounts.DebitGuarded(ctx, acct.ID, amount)
		if err != nil {
			return err
		}
		if !applied {
			log.Info("debit rejected", "balance", acct.Balance)
			return credit.ErrInsufficientCredits
		}
		tx := &credit.Transaction{
			ID:        uuid.New(),
			AccountID: acct.ID,
			Amount:    -amount,
			Type:      credit.TxAnalysisDebit,
			Status:    credit.TxCompleted,
			Metadata:  map[string]string{"reason": reason},
			CreatedAt: time.Now().UTC(),
		}
		if err := txs.Create(ctx, tx); err != nil {
			return err
		}
		txID = tx.ID
		return nil
	})
	if err == nil {
		log.Info("debit applied", "tx_id", txID)
	}
	return
}

// Credit grants amount credits of the given type. When dedupKey is
// non-empty and was seen before, the grant is rejected with
// credit.ErrDuplicateTransaction and nothing is applied; callers driven by
// at-least-once event delivery treat that as success.
func (s *Service) Credit(
	ctx context.Context,
	userID uuid.UUID,
	amount int64,
	txType credit.TxType,
	dedupKey string,
	metadata map[string]string,
) (txID uuid.UUID, err error) {
	if amount <= 0 {
		return uuid.Nil, credit.ErrAmountMustBePositive
	}
	log := s.logger.With(
		"operation", "ledger.Credit",
		"user_id", userID,
		"amount", amount,
		"type", txType,
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.CreditAccountRepository()
		if err != nil {
			return err
		}
		txs, err := uow.CreditTransactionRepository()
		if err != nil {
			return err
		}
		if dedupKey != "" {
			seen, err := txs.ExistsDedupKey(ctx, dedupKey)
			if err != nil {
				return err
			}
			if seen {
				log.Info("duplicate credit skipped", "dedup_key", dedupKey)
				return credit.ErrDuplicateTransaction
			}
		}
		acct, err := accounts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := accounts.Credit(ctx, acct.ID, amount); err != nil {
			return err
		}
		tx := &credit.Transaction{
			ID:        uuid.New(),
			AccountID: acct.ID,
			Amount:    amount,
			Type:      txType,
			Status:    credit.TxCompleted,
			DedupKey:  dedupKey,
			Metadata:  metadata,
			CreatedAt: time.Now().UTC(),
		}
		if err := txs.Create(ctx, tx); err != nil {
			return err
		}
		txID = tx.ID
		return nil
	})
	if err == nil {
		log.Info("credit applied", "tx_id", txID)
	}
	return
}

// Refund issues a compensating credit after a failed analysis consumed a
// debit. Refunds carry no dedup key; the caller decides when one is due.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int64, metadata map[string]string) (uuid.UUID, error) {
	return s.Credit(ctx, userID, amount, credit.TxRefund, "", metadata)
}

// ListHistory returns the user's transactions, newest first. A user without
// an account has an empty history, not an error.
func (s *Service) ListHistory(ctx context.Context, userID uuid.UUID) (history []*credit.Transaction, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.CreditAccountRepository()
		if err != nil {
			return err
		}
		txs, err := uow.CreditTransactionRepository()
		if err != nil {
			return err
		}
		acct, err := accounts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		history, err = txs.ListByAccount(ctx, acct.ID)
		return err
	})
	return
}
