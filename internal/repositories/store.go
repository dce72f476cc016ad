package repositories

import (
	"context"
	"errors"
	"slices"
	"time"

	"fxwallet/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicateAccount    = errors.New("account already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCurrencyNotFound    = errors.New("currency not found")
	ErrStatusConflict      = errors.New("transaction status changed concurrently")
)

// Store is the durable account/record store the ledger runs against.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Currencies() CurrencyRepository

	// ExecuteInTransaction runs fn against a store bound to a single transaction.
	// Nothing fn writes is visible to other callers unless fn returns nil.
	// Calling it on a store already bound to a transaction joins that transaction.
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

// AccountRepository defines the account operations of the store.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Account, error)

	// LockByIDs reads the accounts and holds an exclusive lock on each one until
	// the surrounding transaction ends. Locks are taken in ascending id order.
	LockByIDs(ctx context.Context, ids ...uint) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

// StatusUpdate is the only mutation allowed on a recorded transaction.
type StatusUpdate struct {
	Status        models.TransactionStatus
	RiskScore     int
	RiskLevel     models.RiskLevel
	TimingAnomaly bool
	FlaggedAt     *time.Time
}

// TransactionQuery selects records, newest first.
type TransactionQuery struct {
	AccountID uint // sender or recipient
	SenderID  uint // sender only
	Kinds     []models.TransactionKind
	Statuses  []models.TransactionStatus
	From      time.Time
	To        time.Time
	RequireIP bool
	Limit     int
}

// TransactionRepository defines the append-only record operations of the store.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)

	// UpdateStatus applies update only if the record is still in status from.
	UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, update StatusUpdate) error
	Find(ctx context.Context, q TransactionQuery) ([]models.Transaction, error)

	// CountBySender counts records sent by accountID since the given time (zero = all time).
	CountBySender(ctx context.Context, accountID uint, since time.Time) (int64, error)
	SumSentSince(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error)
}

// CurrencyRepository defines the rate table operations of the store.
type CurrencyRepository interface {
	List(ctx context.Context) ([]models.Currency, error)
	Get(ctx context.Context, code string) (*models.Currency, error)

	// ReplaceAll swaps the whole rate table in one transaction.
	ReplaceAll(ctx context.Context, currencies []models.Currency) error
}

// Matches reports whether tx satisfies q, ignoring Limit. Stores that filter
// in memory share it so both backends agree on query semantics.
func (q TransactionQuery) Matches(tx *models.Transaction) bool {
	if q.AccountID != 0 && !tx.Involves(q.AccountID) {
		return false
	}
	if q.SenderID != 0 && tx.SenderID != q.SenderID {
		return false
	}
	if len(q.Kinds) > 0 && !slices.Contains(q.Kinds, tx.Kind) {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, tx.Status) {
		return false
	}
	if !q.From.IsZero() && tx.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && tx.CreatedAt.After(q.To) {
		return false
	}
	if q.RequireIP && tx.IPAddress == "" {
		return false
	}
	return true
}
