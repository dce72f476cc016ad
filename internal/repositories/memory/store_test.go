package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s *Store, userID uint, balance string) *models.Account {
	t.Helper()
	a := &models.Account{UserID: userID, Balance: decimal.RequireFromString(balance), Currency: "usd", IsActive: true}
	require.NoError(t, s.Accounts().Create(context.Background(), a))
	return a
}

func TestAccountCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := seedAccount(t, s, 7, "10")
	assert.NotZero(t, a.ID)
	assert.Equal(t, "USD", a.Currency)
	assert.False(t, a.DailyResetAt.IsZero())

	got, err := s.Accounts().GetByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	err = s.Accounts().Create(ctx, &models.Account{UserID: 7})
	assert.ErrorIs(t, err, repositories.ErrDuplicateAccount)

	_, err = s.Accounts().GetByID(ctx, 999)
	assert.ErrorIs(t, err, repositories.ErrAccountNotFound)
}

func TestAccountsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, 1, "10")

	got, err := s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(500)

	again, err := s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(10)))
}

func TestExecuteInTransaction_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, 1, "10")
	boom := errors.New("boom")

	err := s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Accounts().LockByIDs(ctx, a.ID)
		require.NoError(t, err)
		locked[0].Balance = decimal.Zero
		require.NoError(t, tx.Accounts().Update(ctx, locked[0]))
		require.NoError(t, tx.Transactions().Create(ctx, &models.Transaction{Reference: "TXN-1", SenderID: a.ID}))

		// visible inside the transaction only
		inside, err := tx.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, inside.Balance.IsZero())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10)))

	_, err = s.Transactions().GetByReference(ctx, "TXN-1")
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
}

func TestExecuteInTransaction_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, 1, "10")
	b := seedAccount(t, s, 2, "0")

	err := s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Accounts().LockByIDs(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.Len(t, locked, 2)
		assert.Equal(t, a.ID, locked[0].ID, "locks come back in id order")

		locked[0].Balance = locked[0].Balance.Sub(decimal.NewFromInt(4))
		locked[1].Balance = locked[1].Balance.Add(decimal.NewFromInt(4))
		require.NoError(t, tx.Accounts().Update(ctx, locked[0]))
		return tx.Accounts().Update(ctx, locked[1])
	})
	require.NoError(t, err)

	gotA, _ := s.Accounts().GetByID(ctx, a.ID)
	gotB, _ := s.Accounts().GetByID(ctx, b.ID)
	assert.True(t, gotA.Balance.Equal(decimal.NewFromInt(6)))
	assert.True(t, gotB.Balance.Equal(decimal.NewFromInt(4)))
}

func TestLockByIDs_TimesOutAsTransient(t *testing.T) {
	s := New()
	a := seedAccount(t, s, 1, "10")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.ExecuteInTransaction(context.Background(), func(tx repositories.Store) error {
			_, err := tx.Accounts().LockByIDs(context.Background(), a.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		_, err := tx.Accounts().LockByIDs(ctx, a.ID)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)
	assert.True(t, apperrors.Retryable(err))
}

func TestLockByIDs_SerializesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedAccount(t, s, 1, "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
				locked, err := tx.Accounts().LockByIDs(ctx, a.ID)
				if err != nil {
					return err
				}
				locked[0].Balance = locked[0].Balance.Add(decimal.NewFromInt(1))
				return tx.Accounts().Update(ctx, locked[0])
			})
		}()
	}
	wg.Wait()

	got, err := s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)), "got %s", got.Balance)
}

func TestTransactionFindAndAggregates(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	recipient := uint(2)

	records := []*models.Transaction{
		{Reference: "TXN-a", Kind: models.KindDeposit, Status: models.StatusCompleted, SenderID: 1, ConvertedAmount: decimal.NewFromInt(10), CreatedAt: base},
		{Reference: "TXN-b", Kind: models.KindTransfer, Status: models.StatusCompleted, SenderID: 1, RecipientID: &recipient, ConvertedAmount: decimal.NewFromInt(5), CreatedAt: base.Add(time.Hour)},
		{Reference: "TXN-c", Kind: models.KindWithdrawal, Status: models.StatusFailed, SenderID: 1, ConvertedAmount: decimal.NewFromInt(3), CreatedAt: base.Add(2 * time.Hour)},
		{Reference: "TXN-d", Kind: models.KindDeposit, SenderID: 2, ConvertedAmount: decimal.NewFromInt(1), CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, s.Transactions().Create(ctx, r))
	}
	assert.Equal(t, models.StatusPending, records[3].Status)

	all, err := s.Transactions().Find(ctx, repositories.TransactionQuery{AccountID: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "TXN-d", all[0].Reference)
	assert.Equal(t, "TXN-b", all[1].Reference)

	limited, err := s.Transactions().Find(ctx, repositories.TransactionQuery{SenderID: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "TXN-c", limited[0].Reference)

	count, err := s.Transactions().CountBySender(ctx, 1, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sum, err := s.Transactions().SumSentSince(ctx, 1, base, []models.TransactionStatus{models.StatusCompleted})
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(15)))
}

func TestUpdateStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := &models.Transaction{Reference: "TXN-x", SenderID: 1, Status: models.StatusPending}
	require.NoError(t, s.Transactions().Create(ctx, rec))

	now := time.Now()
	update := repositories.StatusUpdate{Status: models.StatusFlagged, RiskScore: 12, RiskLevel: models.RiskHigh, FlaggedAt: &now}
	require.NoError(t, s.Transactions().UpdateStatus(ctx, rec.ID, models.StatusPending, update))

	err := s.Transactions().UpdateStatus(ctx, rec.ID, models.StatusPending, update)
	assert.ErrorIs(t, err, repositories.ErrStatusConflict)

	got, err := s.Transactions().GetByReference(ctx, "TXN-x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, got.Status)
	assert.Equal(t, 12, got.RiskScore)
	assert.NotNil(t, got.FlaggedAt)

	err = s.Transactions().UpdateStatus(ctx, 404, models.StatusPending, update)
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
}

func TestCurrenciesReplaceAll(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Currencies().ReplaceAll(ctx, []models.Currency{
		{Code: "USD", Rates: models.Rates{"EUR": decimal.RequireFromString("0.9")}},
		{Code: "EUR", Rates: models.Rates{"USD": decimal.RequireFromString("1.1")}},
	}))

	list, err := s.Currencies().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EUR", list[0].Code)

	usd, err := s.Currencies().Get(ctx, "usd")
	require.NoError(t, err)
	assert.True(t, usd.Rates["EUR"].Equal(decimal.RequireFromString("0.9")))

	require.NoError(t, s.Currencies().ReplaceAll(ctx, []models.Currency{{Code: "GBP"}}))
	_, err = s.Currencies().Get(ctx, "USD")
	assert.ErrorIs(t, err, repositories.ErrCurrencyNotFound)
}
