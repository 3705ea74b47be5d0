package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestUoW_RepositoriesShareTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		accounts, err := txUow.CreditAccountRepository()
		require.NoError(t, err)
		assert.NotNil(t, accounts)

		txs, err := txUow.CreditTransactionRepository()
		require.NoError(t, err)
		assert.NotNil(t, txs)

		sessions, err := txUow.AnalysisSessionRepository()
		require.NoError(t, err)
		assert.NotNil(t, sessions)

		records, err := txUow.AnalysisRecordRepository()
		require.NoError(t, err)
		assert.NotNil(t, records)

		users, err := txUow.UserRepository()
		require.NoError(t, err)
		assert.NotNil(t, users)

		corpus, err := txUow.KnowledgeRepository()
		require.NoError(t, err)
		assert.NotNil(t, corpus)
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_ErrorRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("boom")
	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_NestedDoJoinsTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	// exactly one begin/commit pair for the nested calls
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(outer repository.UnitOfWork) error {
		return outer.Do(context.Background(), func(inner repository.UnitOfWork) error {
			return nil
		})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitGuarded_PredicateInUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "credit_accounts" SET "balance"=balance - $1`)).
		WithArgs(int64(7), accountID, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		accounts, err := txUow.CreditAccountRepository()
		require.NoError(t, err)
		applied, err := accounts.DebitGuarded(context.Background(), accountID, 7)
		require.NoError(t, err)
		assert.True(t, applied)
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitGuarded_InsufficientBalanceMatchesNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "credit_accounts"`)).
		WithArgs(int64(7), accountID, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		accounts, err := txUow.CreditAccountRepository()
		require.NoError(t, err)
		applied, err := accounts.DebitGuarded(context.Background(), accountID, 7)
		require.NoError(t, err)
		assert.False(t, applied, "a guarded debit below balance must not apply")
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
