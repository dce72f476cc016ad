package history

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func uptr(v uint) *uint { return &v }

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

func TestRecorder_CreateAssignsUniqueReferences(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.New(), nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tx, err := r.Create(ctx, NewRecord{
			Kind:            models.KindDeposit,
			Amount:          d("10"),
			Currency:        "usd",
			ConvertedAmount: d("10"),
			SenderID:        1,
			Status:          models.StatusCompleted,
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tx.Reference, ReferencePrefix))
		assert.False(t, seen[tx.Reference])
		assert.Equal(t, "USD", tx.Currency)
		seen[tx.Reference] = true
	}

	_, err := r.Create(ctx, NewRecord{Kind: "REFUND", SenderID: 1})
	assert.Error(t, err)
}

func TestRecorder_CreateKeepsClientMetadata(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.New(), nil)

	tx, err := r.Create(ctx, NewRecord{
		Kind:      models.KindWithdrawal,
		SenderID:  1,
		IPAddress: "10.1.1.1",
		UserAgent: "app/2",
		Location:  &models.Location{Latitude: 1.5, Longitude: -2.5},
		Risk:      RiskStamp{Score: 6, Level: models.RiskMedium},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	require.NotNil(t, tx.Latitude)
	assert.Equal(t, 1.5, *tx.Latitude)
	assert.Equal(t, -2.5, *tx.Longitude)
	assert.Equal(t, models.RiskMedium, tx.RiskLevel)
	assert.Nil(t, tx.FlaggedAt)
}

func TestRecorder_MarkFlaggedIsOneWay(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.New(), nil)

	pending, err := r.Create(ctx, NewRecord{Kind: models.KindTransfer, SenderID: 1, RecipientID: uptr(2)})
	require.NoError(t, err)

	flagged, err := r.MarkFlagged(ctx, pending.ID, RiskStamp{Score: 14, Level: models.RiskHigh, TimingAnomaly: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, flagged.Status)
	assert.Equal(t, 14, flagged.RiskScore)
	assert.True(t, flagged.TimingAnomaly)
	assert.NotNil(t, flagged.FlaggedAt)

	_, err = r.MarkFlagged(ctx, pending.ID, RiskStamp{Score: 1, Level: models.RiskLow})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	completed, err := r.Create(ctx, NewRecord{Kind: models.KindDeposit, SenderID: 1, Status: models.StatusCompleted})
	require.NoError(t, err)
	_, err = r.MarkFlagged(ctx, completed.ID, RiskStamp{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = r.MarkFlagged(ctx, 999, RiskStamp{})
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}

func TestRecorder_HistoryAndSummary(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	r := NewRecorder(memory.New(), clock.Now)

	create := func(rec NewRecord) *models.Transaction {
		tx, err := r.Create(ctx, rec)
		require.NoError(t, err)
		return tx
	}

	create(NewRecord{Kind: models.KindDeposit, Amount: d("50"), Currency: "USD", ConvertedAmount: d("50"), SenderID: 1, Status: models.StatusCompleted})
	create(NewRecord{Kind: models.KindDeposit, Amount: d("20"), Currency: "EUR", ConvertedAmount: d("22.22"), SenderID: 1, Status: models.StatusCompleted})
	create(NewRecord{Kind: models.KindWithdrawal, Amount: d("5"), Currency: "USD", ConvertedAmount: d("5"), SenderID: 1, Status: models.StatusFailed})
	create(NewRecord{Kind: models.KindTransfer, Amount: d("30"), Currency: "USD", ConvertedAmount: d("30"), RecipientAmount: d("27"), SenderID: 1, RecipientID: uptr(2), Status: models.StatusCompleted})
	create(NewRecord{Kind: models.KindTransfer, Amount: d("10"), Currency: "EUR", ConvertedAmount: d("10"), RecipientAmount: d("11.11"), SenderID: 2, RecipientID: uptr(1), Status: models.StatusCompleted})
	last := create(NewRecord{Kind: models.KindWithdrawal, Amount: d("7"), Currency: "USD", ConvertedAmount: d("7"), SenderID: 1, Status: models.StatusFlagged})

	all, err := r.History(ctx, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, last.Reference, all[0].Reference, "newest first")

	transfers, err := r.History(ctx, 1, Filter{Kind: models.KindTransfer})
	require.NoError(t, err)
	assert.Len(t, transfers, 2)

	failed, err := r.History(ctx, 1, Filter{Status: models.StatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	_, err = r.History(ctx, 1, Filter{From: clock.now, To: clock.now.Add(-time.Hour)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)

	s, err := r.Summarize(ctx, 1, time.Time{}, clock.now)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Deposits.Count)
	assert.True(t, s.Deposits.Amount.Equal(d("72.22")))
	assert.Equal(t, 0, s.Withdrawals.Count, "failed and flagged records are not summarized")
	assert.Equal(t, 1, s.TransfersSent.Count)
	assert.True(t, s.TransfersSent.Amount.Equal(d("30")))
	assert.Equal(t, 1, s.TransfersReceived.Count)
	assert.True(t, s.TransfersReceived.Amount.Equal(d("11.11")))
	assert.True(t, s.Net().Equal(d("53.33")))

	recipient, err := r.Summarize(ctx, 2, time.Time{}, clock.now)
	require.NoError(t, err)
	assert.True(t, recipient.TransfersReceived.Amount.Equal(d("27")))
	assert.True(t, recipient.TransfersSent.Amount.Equal(d("10")))
}

func TestRecorder_GetByReference(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.New(), nil)

	tx, err := r.Create(ctx, NewRecord{Kind: models.KindDeposit, SenderID: 3})
	require.NoError(t, err)

	got, err := r.GetByReference(ctx, tx.Reference)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = r.GetByReference(ctx, "TXN-missing")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}
