package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped cancel", fmt.Errorf("query: %w", context.Canceled), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"connect error", &pgconn.ConnectError{}, true},
		{"bad connection", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassifyError(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, classifyError(ctx, nil))

	err := classifyError(ctx, &pgconn.PgError{Code: "40P01"})
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)

	domain := apperrors.ErrInsufficientFunds.WithDetail("account 1")
	assert.Same(t, domain, classifyError(ctx, domain))

	plain := errors.New("constraint")
	assert.Equal(t, plain, classifyError(ctx, plain))

	expired, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	<-expired.Done()
	assert.ErrorIs(t, classifyError(expired, errors.New("driver: bad connection")), apperrors.ErrTransientStore)
}

func TestTransactionQuery_Matches(t *testing.T) {
	recipient := uint(2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tx := &models.Transaction{
		Kind:        models.KindTransfer,
		Status:      models.StatusCompleted,
		SenderID:    1,
		RecipientID: &recipient,
		CreatedAt:   now,
		IPAddress:   "10.0.0.1",
	}

	assert.True(t, TransactionQuery{AccountID: 2}.Matches(tx))
	assert.False(t, TransactionQuery{SenderID: 2}.Matches(tx))
	assert.True(t, TransactionQuery{Kinds: []models.TransactionKind{models.KindTransfer}}.Matches(tx))
	assert.False(t, TransactionQuery{Statuses: []models.TransactionStatus{models.StatusFlagged}}.Matches(tx))
	assert.False(t, TransactionQuery{From: now.Add(time.Minute)}.Matches(tx))
	assert.False(t, TransactionQuery{To: now.Add(-time.Minute)}.Matches(tx))
	assert.True(t, TransactionQuery{From: now, To: now, RequireIP: true}.Matches(tx))

	tx.IPAddress = ""
	assert.False(t, TransactionQuery{RequireIP: true}.Matches(tx))
}

func TestStoreError(t *testing.T) {
	ctx := context.Background()

	err := storeError(ctx, &pgconn.PgError{Code: "08006"}, "failed to get account")
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)
	assert.Contains(t, err.Error(), "failed to get account")

	err = storeError(ctx, &pgconn.PgError{Code: "23502"}, "failed to create transaction")
	assert.False(t, apperrors.Retryable(err))
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
}

// Reads outside a transaction against an unreachable server must come back
// retryable, not as plain failures.
func TestGormStore_UnreachableDatabaseIsTransient(t *testing.T) {
	db, err := gorm.Open(postgres.Open(
		"host=127.0.0.1 port=1 user=fx password=fx dbname=fx sslmode=disable connect_timeout=2",
	), &gorm.Config{Logger: gormlogger.Discard, DisableAutomaticPing: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store := NewGormStore(db)

	_, err = store.Accounts().GetByUserID(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)
	assert.True(t, apperrors.Retryable(err))

	_, err = store.Transactions().Find(ctx, TransactionQuery{AccountID: 1})
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)

	_, err = store.Transactions().SumSentSince(ctx, 1, time.Now().Add(-time.Hour), nil)
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)

	_, err = store.Currencies().List(ctx)
	assert.ErrorIs(t, err, apperrors.ErrTransientStore)
}
