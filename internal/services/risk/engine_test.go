package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) GetAccount(ctx context.Context, accountID uint) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if a := args.Get(0); a != nil {
		return a.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistory) CountSent(ctx context.Context, accountID uint, since time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistory) SumSent(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, since, statuses)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockHistory) RecentSent(ctx context.Context, accountID uint, limit int, requireIP bool) ([]models.Transaction, error) {
	args := m.Called(ctx, accountID, limit, requireIP)
	if txs := args.Get(0); txs != nil {
		return txs.([]models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		DailyLimit: decimal.NewFromInt(10000),
		Clock:      func() time.Time { return fixedNow },
	}
}

func TestEngine_Assess(t *testing.T) {
	ctx := context.Background()
	h := new(MockHistory)

	isZero := mock.MatchedBy(func(t time.Time) bool { return t.IsZero() })
	lastHour := fixedNow.Add(-time.Hour)
	midnight := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	h.On("GetAccount", ctx, uint(1)).Return(&models.Account{ID: 1, CreatedAt: fixedNow.Add(-3 * day)}, nil)
	h.On("CountSent", ctx, uint(1), isZero).Return(int64(3), nil)
	h.On("CountSent", ctx, uint(1), lastHour).Return(int64(1), nil)
	h.On("SumSent", ctx, uint(1), midnight, mock.Anything).Return(decimal.NewFromInt(9500), nil)
	h.On("RecentSent", ctx, uint(1), timingWindow, false).Return([]models.Transaction{
		{ConvertedAmount: decimal.NewFromInt(100), CreatedAt: fixedNow.Add(-time.Hour)},
		{ConvertedAmount: decimal.NewFromInt(100), CreatedAt: fixedNow.Add(-2 * time.Hour)},
		{ConvertedAmount: decimal.NewFromInt(100), CreatedAt: fixedNow.Add(-3 * time.Hour)},
	}, nil)

	e := NewEngine(h, testConfig())
	a := e.Assess(ctx, 1, models.KindWithdrawal, decimal.NewFromInt(600), Metadata{})

	assert.True(t, a.Signals.NewAccount)
	assert.True(t, a.Signals.ThinHistory)
	assert.True(t, a.Signals.DailyLimitBreach)
	assert.True(t, a.Signals.UnusualAmount)
	assert.False(t, a.Signals.HighVelocity)
	assert.False(t, a.Signals.LocationAnomaly)
	assert.False(t, a.TimingAnomaly)
	assert.Equal(t, 3+5+3+5+4, a.Score)
	assert.Equal(t, models.RiskHigh, a.Level)

	// no metadata means no location lookup
	h.AssertNotCalled(t, "RecentSent", ctx, uint(1), locationWindow, true)
	h.AssertExpectations(t)
}

func TestEngine_FailsOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(h *MockHistory)
	}{
		{
			name: "missing account",
			setup: func(h *MockHistory) {
				h.On("GetAccount", ctx, uint(9)).Return(nil, errors.New("account not found"))
			},
		},
		{
			name: "history read fails",
			setup: func(h *MockHistory) {
				h.On("GetAccount", ctx, uint(9)).Return(&models.Account{ID: 9, CreatedAt: fixedNow.Add(-100 * day)}, nil)
				h.On("CountSent", ctx, uint(9), mock.Anything).Return(int64(0), errors.New("store down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := new(MockHistory)
			tt.setup(h)

			a := NewEngine(h, testConfig()).Assess(ctx, 9, models.KindTransfer, decimal.NewFromInt(50000), Metadata{})
			assert.Equal(t, Unknown, a)
			h.AssertExpectations(t)
		})
	}
}

func TestEngine_WithStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	account := &models.Account{UserID: 1, Currency: "USD", IsActive: true, CreatedAt: fixedNow.Add(-90 * day)}
	require.NoError(t, store.Accounts().Create(ctx, account))

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Transactions().Create(ctx, &models.Transaction{
			Reference:       "TXN-" + string(rune('a'+i)),
			Kind:            models.KindDeposit,
			Status:          models.StatusCompleted,
			SenderID:        account.ID,
			ConvertedAmount: decimal.NewFromInt(50),
			IPAddress:       "10.0.0.1",
			UserAgent:       "app/1",
			CreatedAt:       fixedNow.Add(-time.Duration(i+1) * 5 * time.Minute),
		}))
	}

	e := NewEngine(NewStoreHistory(store), testConfig())
	a := e.Assess(ctx, account.ID, models.KindTransfer, decimal.NewFromInt(100), Metadata{IPAddress: "8.8.8.8", UserAgent: "bot"})

	assert.False(t, a.Signals.NewAccount)
	assert.False(t, a.Signals.YoungAccount)
	assert.False(t, a.Signals.ThinHistory)
	assert.False(t, a.Signals.UnusualAmount)
	assert.True(t, a.Signals.HighVelocity)
	assert.True(t, a.Signals.LocationAnomaly)
	assert.Equal(t, 2+3+7, a.Score)
	assert.Equal(t, models.RiskHigh, a.Level)
}
