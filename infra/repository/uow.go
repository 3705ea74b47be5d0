// Package repository implements the data-access contracts on postgres via
// gorm. All repositories are handed out by the UoW so related writes share
// one transaction.
package repository

import (
	"context"

	"github.com/amirasaad/tradelens/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides the transaction boundary and repository access in one
// abstraction. Repositories obtained inside Do use the transaction session;
// outside Do they fall back to the base connection for reads.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

var _ repository.UnitOfWork = (*UoW)(nil)

// NewUoW creates a UoW over the given connection.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn inside a database transaction. A nested Do joins the open
// transaction instead of starting a second one.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UoW) CreditAccountRepository() (repository.CreditAccountRepository, error) {
	return &creditAccountRepository{db: u.session()}, nil
}

func (u *UoW) CreditTransactionRepository() (repository.CreditTransactionRepository, error) {
	return &creditTransactionRepository{db: u.session()}, nil
}

func (u *UoW) AnalysisSessionRepository() (repository.AnalysisSessionRepository, error) {
	return &analysisSessionRepository{db: u.session()}, nil
}

func (u *UoW) AnalysisRecordRepository() (repository.AnalysisRecordRepository, error) {
	return &analysisRecordRepository{db: u.session()}, nil
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return &userRepository{db: u.session()}, nil
}

func (u *UoW) KnowledgeRepository() (repository.KnowledgeRepository, error) {
	return &knowledgeRepository{db: u.session()}, nil
}
