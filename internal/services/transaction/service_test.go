package transaction

import (
	"context"
	"testing"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/services/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodDay, ParsePeriod("day"))
	assert.Equal(t, PeriodYear, ParsePeriod("year"))
	assert.Equal(t, PeriodMonth, ParsePeriod(""))
	assert.Equal(t, PeriodMonth, ParsePeriod("fortnight"))
}

func TestPeriodStart(t *testing.T) {
	end := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC), periodStart(end, PeriodDay))
	assert.Equal(t, time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC), periodStart(end, PeriodWeek))
	assert.Equal(t, time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC), periodStart(end, PeriodYear))
}

func TestReadOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.assessAs(low)
	a := f.open(t, 1, "USD", "100")
	f.open(t, 2, "EUR", "0")
	f.open(t, 3, "USD", "0")

	_, err := f.processor.Deposit(ctx, Request{UserID: 1, Amount: d("50"), Currency: "USD"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.processor.Withdraw(ctx, Request{UserID: 1, Amount: d("20"), Currency: "USD"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	transfer, err := f.processor.Transfer(ctx, Request{UserID: 1, RecipientID: 2, Amount: d("30"), Currency: "USD"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	t.Run("details", func(t *testing.T) {
		det, err := f.processor.GetDetails(ctx, 1)
		require.NoError(t, err)
		assert.True(t, det.Account.Balance.Equal(d("100")))
		assert.True(t, det.SpentToday.Equal(d("100")))
		assert.True(t, det.RemainingToday.Equal(d("900")))
		assert.True(t, det.Stats.TotalDeposits.Equal(d("50")))
		assert.True(t, det.Stats.TotalWithdrawals.Equal(d("20")))
		assert.True(t, det.Stats.TotalTransfersSent.Equal(d("30")))
		assert.Equal(t, 1, det.Stats.TransferCount)
		require.Len(t, det.RecentTransactions, 3)
		assert.Equal(t, transfer.Record.Reference, det.RecentTransactions[0].Reference)
	})

	t.Run("balance", func(t *testing.T) {
		snap, err := f.processor.GetBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, a.ID, snap.AccountID)
		assert.True(t, snap.Balance.Equal(d("100")))
	})

	t.Run("history", func(t *testing.T) {
		deposits, err := f.processor.History(ctx, 1, history.Filter{Kind: models.KindDeposit})
		require.NoError(t, err)
		assert.Len(t, deposits, 1)

		received, err := f.processor.History(ctx, 2, history.Filter{})
		require.NoError(t, err)
		assert.Len(t, received, 1)
	})

	t.Run("summary", func(t *testing.T) {
		s, err := f.processor.Summary(ctx, 2, PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, PeriodDay, s.Period)
		assert.Equal(t, 1, s.TransfersReceived.Count)
		assert.True(t, s.TransfersReceived.Amount.Equal(d("27")))
	})

	t.Run("report", func(t *testing.T) {
		now := f.clock.Now()
		_, err := f.processor.Report(ctx, 1, time.Time{}, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
		_, err = f.processor.Report(ctx, 1, now, now.Add(-time.Hour))
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)

		r, err := f.processor.Report(ctx, 1, now.Add(-150*time.Second), now)
		require.NoError(t, err)
		assert.Len(t, r.Transactions, 2, "deposit falls outside the range")
		assert.Equal(t, 0, r.Summary.Deposits.Count)
		assert.True(t, r.Summary.Net().Equal(d("-50")))
	})

	t.Run("get transaction", func(t *testing.T) {
		ref := transfer.Record.Reference
		got, err := f.processor.GetTransaction(ctx, 1, ref)
		require.NoError(t, err)
		assert.Equal(t, transfer.Record.ID, got.ID)

		_, err = f.processor.GetTransaction(ctx, 2, ref)
		assert.NoError(t, err, "recipient may view the transfer")

		_, err = f.processor.GetTransaction(ctx, 3, ref)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		_, err = f.processor.GetTransaction(ctx, 1, "TXN-NOPE")
		assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
	})

	t.Run("change currency", func(t *testing.T) {
		acct, err := f.processor.ChangeCurrency(ctx, 1, "eur")
		require.NoError(t, err)
		assert.Equal(t, "EUR", acct.Currency)
		assert.True(t, acct.Balance.Equal(d("90")))
	})
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	acct, err := f.processor.OpenAccount(ctx, 7, "")
	require.NoError(t, err)
	assert.Equal(t, "USD", acct.Currency)

	_, err = f.processor.OpenAccount(ctx, 7, "USD")
	assert.ErrorIs(t, err, apperrors.ErrAccountExists)
}
