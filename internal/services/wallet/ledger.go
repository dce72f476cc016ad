package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/logger"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"
	"fxwallet/internal/repositories/cache"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency   = "USD"
	DefaultDailyLimit = 10000
)

type Ledger struct {
	store     repositories.Store
	converter Converter
	cache     BalanceCache
	config    Config
}

// NewLedger creates a ledger over store. cache may be nil.
func NewLedger(store repositories.Store, converter Converter, balanceCache BalanceCache, config Config) *Ledger {
	if store == nil {
		panic("store is required")
	}
	if converter == nil {
		panic("converter is required")
	}
	if balanceCache == nil {
		balanceCache = noopCache{}
	}

	if config.DailyLimit.IsZero() {
		config.DailyLimit = decimal.NewFromInt(DefaultDailyLimit)
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Ledger{
		store:     store,
		converter: converter,
		cache:     balanceCache,
		config:    config,
	}
}

// WithStore returns a copy of the ledger that reads and writes through store,
// typically a store bound to a caller's transaction.
func (l *Ledger) WithStore(store repositories.Store) *Ledger {
	cp := *l
	cp.store = store
	return &cp
}

func (l *Ledger) DailyLimit() decimal.Decimal {
	return l.config.DailyLimit
}

func (l *Ledger) now() time.Time {
	return l.config.Clock().UTC()
}

func (l *Ledger) GetAccount(ctx context.Context, userID uint) (*models.Account, error) {
	account, err := l.store.Accounts().GetByUserID(ctx, userID)
	if err != nil {
		return nil, accountError(err, "user %d", userID)
	}
	return account, nil
}

func (l *Ledger) GetAccountByID(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := l.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, accountError(err, "account %d", accountID)
	}
	return account, nil
}

// OpenAccount creates the user's account with a zero balance.
func (l *Ledger) OpenAccount(ctx context.Context, userID uint, currency string) (*models.Account, error) {
	if currency == "" {
		currency = l.config.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if !l.converter.IsSupported(currency) {
		return nil, apperrors.ErrUnsupportedCurrency.WithDetail("currency %s is not supported", currency)
	}

	account := &models.Account{
		UserID:       userID,
		Balance:      decimal.Zero,
		Currency:     currency,
		IsActive:     true,
		DailySpent:   decimal.Zero,
		DailyResetAt: l.now(),
	}
	if err := l.store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateAccount) {
			return nil, apperrors.ErrAccountExists.WithDetail("user %d already has an account", userID)
		}
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	logger.Infof("Opened %s account %d for user %d", currency, account.ID, userID)
	return account, nil
}

// SpentToday returns the accumulator as it stands today: an accumulator last
// reset on an earlier calendar day counts as zero.
func (l *Ledger) SpentToday(account *models.Account) decimal.Decimal {
	return l.spentAt(account, l.now())
}

func (l *Ledger) spentAt(account *models.Account, now time.Time) decimal.Decimal {
	if l.rolledOver(account, now) {
		return decimal.Zero
	}
	return account.DailySpent
}

// WouldExceedDailyLimit reports whether spending amount now would take the
// account past limit. It never modifies account.
func (l *Ledger) WouldExceedDailyLimit(account *models.Account, amount, limit decimal.Decimal) bool {
	return l.SpentToday(account).Add(amount).GreaterThan(limit)
}

func (l *Ledger) rolledOver(account *models.Account, now time.Time) bool {
	return l.day(now).After(l.day(account.DailyResetAt))
}

func (l *Ledger) day(t time.Time) time.Time {
	t = t.In(l.config.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, l.config.Location)
}

// ApplyDelta adds delta to the account's balance. When spend is set |delta|
// also counts toward the daily accumulator, after resetting it if the day
// has changed. Funds, activity and the limit are checked under the account lock.
func (l *Ledger) ApplyDelta(ctx context.Context, accountID uint, delta decimal.Decimal, spend bool) (*models.Account, error) {
	var updated *models.Account
	err := l.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Accounts().LockByIDs(ctx, accountID)
		if err != nil {
			return accountError(err, "account %d", accountID)
		}
		account := locked[0]

		if err := l.mutate(account, delta, spend, l.now()); err != nil {
			return err
		}
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyTransfer debits the sender and credits the recipient in one store
// transaction. Only the debit counts toward the sender's accumulator.
func (l *Ledger) ApplyTransfer(ctx context.Context, senderID, recipientID uint, debit, credit decimal.Decimal) (*models.Account, *models.Account, error) {
	if senderID == recipientID {
		return nil, nil, apperrors.ErrSelfTransfer
	}

	var sender, recipient *models.Account
	err := l.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Accounts().LockByIDs(ctx, senderID, recipientID)
		if err != nil {
			return accountError(err, "transfer between %d and %d", senderID, recipientID)
		}
		for _, a := range locked {
			if a.ID == senderID {
				sender = a
			} else {
				recipient = a
			}
		}

		now := l.now()
		if err := l.mutate(sender, debit.Neg(), true, now); err != nil {
			return err
		}
		if err := l.mutate(recipient, credit, false, now); err != nil {
			if errors.Is(err, apperrors.ErrAccountInactive) {
				return apperrors.ErrAccountInactive.WithDetail("recipient account %d is not active", recipientID)
			}
			return err
		}

		if err := tx.Accounts().Update(ctx, sender); err != nil {
			return err
		}
		return tx.Accounts().Update(ctx, recipient)
	})
	if err != nil {
		return nil, nil, err
	}
	return sender, recipient, nil
}

// mutate applies one balance change to a locked account in memory.
func (l *Ledger) mutate(account *models.Account, delta decimal.Decimal, spend bool, now time.Time) error {
	if !account.IsActive {
		return apperrors.ErrAccountInactive.WithDetail("account %d is not active", account.ID)
	}

	balance := account.Balance.Add(delta)
	if balance.IsNegative() {
		return apperrors.ErrInsufficientFunds.WithDetail("balance %s %s, requested %s",
			account.Balance.String(), account.Currency, delta.Abs().String())
	}

	if spend {
		amount := delta.Abs()
		spent := l.spentAt(account, now)
		if spent.Add(amount).GreaterThan(l.config.DailyLimit) {
			return apperrors.ErrDailyLimitExceeded.WithDetail("spent %s of %s today",
				spent.String(), l.config.DailyLimit.String())
		}
		if l.rolledOver(account, now) {
			account.DailySpent = decimal.Zero
			account.DailyResetAt = now
		}
		account.DailySpent = account.DailySpent.Add(amount)
	}

	account.Balance = balance
	account.Version++
	return nil
}

// ChangeCurrency re-expresses the user's balance and accumulator in code and
// switches the account to it.
func (l *Ledger) ChangeCurrency(ctx context.Context, userID uint, code string) (*models.Account, error) {
	code = strings.ToUpper(code)
	if !l.converter.IsSupported(code) {
		return nil, apperrors.ErrUnsupportedCurrency.WithDetail("currency %s is not supported", code)
	}

	current, err := l.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	var updated *models.Account
	err = l.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Accounts().LockByIDs(ctx, current.ID)
		if err != nil {
			return accountError(err, "account %d", current.ID)
		}
		account := locked[0]
		if account.Currency == code {
			updated = account
			return nil
		}

		balance, err := l.converter.Convert(account.Balance, account.Currency, code)
		if err != nil {
			return err
		}
		spent, err := l.converter.Convert(account.DailySpent, account.Currency, code)
		if err != nil {
			return err
		}

		account.Balance = balance
		account.DailySpent = spent
		account.Currency = code
		account.Version++
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.RefreshCache(ctx, updated)
	return updated, nil
}

// GetBalance returns the user's balance, from cache when possible.
func (l *Ledger) GetBalance(ctx context.Context, userID uint) (*cache.BalanceSnapshot, error) {
	snap, found, err := l.cache.GetBalance(ctx, userID)
	if err != nil {
		logger.Warnf("Balance cache read failed for user %d: %v", userID, err)
	}
	if found {
		return snap, nil
	}

	account, err := l.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap = l.snapshotOf(account)
	if err := l.cache.SetBalance(ctx, userID, snap); err != nil {
		logger.Warnf("Balance cache write failed for user %d: %v", userID, err)
	}
	return snap, nil
}

// RefreshCache stores the snapshots of committed accounts. The cache keeps the
// higher version, so a reader caching an older read cannot overwrite them.
// A failed write falls back to invalidation.
func (l *Ledger) RefreshCache(ctx context.Context, accounts ...*models.Account) {
	for _, account := range accounts {
		if account == nil {
			continue
		}
		if err := l.cache.SetBalance(ctx, account.UserID, l.snapshotOf(account)); err != nil {
			logger.Warnf("Balance cache refresh failed for user %d: %v", account.UserID, err)
			l.InvalidateCache(ctx, account.UserID)
		}
	}
}

func (l *Ledger) snapshotOf(account *models.Account) *cache.BalanceSnapshot {
	return &cache.BalanceSnapshot{
		AccountID: account.ID,
		Balance:   account.Balance,
		Currency:  account.Currency,
		Version:   account.Version,
		CachedAt:  l.now(),
	}
}

// InvalidateCache drops cached balances. Failures are logged only.
func (l *Ledger) InvalidateCache(ctx context.Context, userIDs ...uint) {
	if len(userIDs) == 0 {
		return
	}
	if err := l.cache.InvalidateBalance(ctx, userIDs...); err != nil {
		logger.Warnf("Balance cache invalidation failed for users %v: %v", userIDs, err)
	}
}

func accountError(err error, format string, args ...interface{}) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return apperrors.ErrAccountNotFound.WithDetail(format, args...)
	}
	return err
}
