package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	apperrors "fxwallet/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) Store {
	if db == nil {
		panic("db is required")
	}
	return &gormStore{db: db}
}

func (s *gormStore) Accounts() AccountRepository {
	return &accountRepository{db: s.db}
}

func (s *gormStore) Transactions() TransactionRepository {
	return &transactionRepository{db: s.db}
}

func (s *gormStore) Currencies() CurrencyRepository {
	return &currencyRepository{db: s.db}
}

func (s *gormStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if deadline, ok := ctx.Deadline(); ok {
			ms := time.Until(deadline).Milliseconds()
			if ms <= 0 {
				return context.DeadlineExceeded
			}
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)).Error; err != nil {
				return err
			}
		}
		return fn(&gormStore{db: tx, inTx: true})
	})
	return classifyError(ctx, err)
}

// Postgres error codes after which the whole transaction can be retried.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled
	"57P01": true, // admin_shutdown
}

// classifyError maps timeouts and retryable database failures to ErrTransientStore
// and leaves domain and unknown errors untouched.
func classifyError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if IsTransient(err) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}
	return err
}

// storeError annotates a failed database call and classifies it.
func storeError(ctx context.Context, err error, msg string) error {
	return classifyError(ctx, fmt.Errorf("%s: %w", msg, err))
}

// IsTransient reports whether err is a timeout, a lost connection or a
// retryable database failure.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] {
			return true
		}
		// class 08: connection exceptions
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
