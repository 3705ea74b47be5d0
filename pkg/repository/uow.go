package repository

import (
	"context"
)

// UnitOfWork defines the contract for transactional work and repository
// access. All repositories obtained from the same UnitOfWork inside Do share
// one DB transaction, which is what makes ledger mutations atomic: the
// balance update and the transaction-row insert either both commit or both
// roll back.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. The UnitOfWork passed
	// to fn hands out transaction-bound repositories. If fn returns an
	// error the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	CreditAccountRepository() (CreditAccountRepository, error)
	CreditTransactionRepository() (CreditTransactionRepository, error)
	AnalysisSessionRepository() (AnalysisSessionRepository, error)
	AnalysisRecordRepository() (AnalysisRecordRepository, error)
	UserRepository() (UserRepository, error)
	KnowledgeRepository() (KnowledgeRepository, error)
}
