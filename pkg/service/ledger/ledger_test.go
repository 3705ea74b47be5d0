package ledger_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/amirasaad/tradelens/internal/fixtures"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*ledger.Service, *fixtures.MemoryUoW) {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	return ledger.New(uow, slog.Default()), uow
}

// balanceMatchesHistory asserts the core ledger invariant: the balance of
// every account equals the sum of its COMPLETED transaction amounts.
func balanceMatchesHistory(t *testing.T, uow *fixtures.MemoryUoW) {
	t.Helper()
	sums := make(map[uuid.UUID]int64)
	for _, tx := range uow.Transactions() {
		if tx.Status == credit.TxCompleted {
			sums[tx.AccountID] += tx.Amount
		}
	}
	for _, acct := range uow.Accounts() {
		assert.Equal(t, sums[acct.ID], acct.Balance,
			"account %s balance diverged from history", acct.ID)
	}
}

func TestGetBalance_CreatesZeroAccount(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	require.Len(t, uow.Accounts(), 1)
	assert.Equal(t, userID, uow.Accounts()[0].UserID)
}

func TestDebit_Succeeds(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 10, credit.TxPurchase, "evt_1", nil)
	require.NoError(t, err)

	txID, err := svc.Debit(context.Background(), userID, 7, "chart analysis")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, txID)

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, balance)

	history, err := svc.ListHistory(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	assert.Equal(t, credit.TxAnalysisDebit, history[0].Type)
	assert.EqualValues(t, -7, history[0].Amount)
	assert.Equal(t, credit.TxCompleted, history[0].Status)
	balanceMatchesHistory(t, uow)
}

func TestDebit_InsufficientBalance(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 3, credit.TxPurchase, "evt_1", nil)
	require.NoError(t, err)

	_, err = svc.Debit(context.Background(), userID, 7, "chart analysis")
	require.ErrorIs(t, err, credit.ErrInsufficientCredits)

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, balance)

	history, err := svc.ListHistory(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "no transaction recorded for a rejected debit")
	balanceMatchesHistory(t, uow)
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Debit(context.Background(), uuid.New(), 0, "x")
	assert.ErrorIs(t, err, credit.ErrAmountMustBePositive)
	_, err = svc.Debit(context.Background(), uuid.New(), -5, "x")
	assert.ErrorIs(t, err, credit.ErrAmountMustBePositive)
}

func TestCredit_DedupKeyAppliesOnce(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()

	_, err := svc.Credit(context.Background(), userID, 50, credit.TxPurchase, "evt_dup", map[string]string{"session": "cs_1"})
	require.NoError(t, err)

	_, err = svc.Credit(context.Background(), userID, 50, credit.TxPurchase, "evt_dup", map[string]string{"session": "cs_1"})
	require.ErrorIs(t, err, credit.ErrDuplicateTransaction)

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 50, balance, "redelivered event must credit exactly once")
	assert.Len(t, uow.Transactions(), 1)
	balanceMatchesHistory(t, uow)
}

func TestDebit_AtomicWithTransactionRow(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 10, credit.TxPurchase, "evt_1", nil)
	require.NoError(t, err)

	uow.FailNextTxCreate = errors.New("store unavailable")
	_, err = svc.Debit(context.Background(), userID, 4, "chart analysis")
	require.Error(t, err)

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, balance, "failed insert must roll back the decrement")
	balanceMatchesHistory(t, uow)
}

func TestRefund_CompensatesDebit(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 5, credit.TxPurchase, "evt_1", nil)
	require.NoError(t, err)
	_, err = svc.Debit(context.Background(), userID, 1, "chart analysis")
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), userID, 1, map[string]string{"reason": "model timeout"})
	require.NoError(t, err)

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance)

	history, err := svc.ListHistory(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, credit.TxRefund, history[0].Type)
	balanceMatchesHistory(t, uow)
}

func TestDebit_ConcurrentNeverOverdraws(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 5, credit.TxPurchase, "evt_1", nil)
	require.NoError(t, err)

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(context.Background(), userID, 1, "concurrent"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded, "exactly balance-many debits may pass")
	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	balanceMatchesHistory(t, uow)
}

func TestConcurrentCreditAndDebitSerialize(t *testing.T) {
	svc, uow := setup(t)
	userID := uuid.New()
	_, err := svc.Credit(context.Background(), userID, 100, credit.TxPurchase, "evt_seed", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		key := uuid.NewString()
		go func() {
			defer wg.Done()
			_, _ = svc.Credit(context.Background(), userID, 3, credit.TxPurchase, key, nil)
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(context.Background(), userID, 2, "concurrent")
		}()
	}
	wg.Wait()

	// 100 + 10*3 - 10*2 when every operation lands, which it must at this
	// starting balance
	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 110, balance)
	balanceMatchesHistory(t, uow)
}
