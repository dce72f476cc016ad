package wallet

import (
	"context"
	"time"

	"fxwallet/internal/repositories/cache"

	"github.com/shopspring/decimal"
)

// Converter is the part of the currency service the ledger needs.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	IsSupported(code string) bool
}

// BalanceCache stores balance snapshots per user. SetBalance must not replace
// a cached snapshot of a higher version.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID uint) (*cache.BalanceSnapshot, bool, error)
	SetBalance(ctx context.Context, userID uint, snap *cache.BalanceSnapshot) error
	InvalidateBalance(ctx context.Context, userIDs ...uint) error
}

// Config holds the ledger's limits and clock.
type Config struct {
	DailyLimit      decimal.Decimal
	DefaultCurrency string
	Location        *time.Location
	Clock           func() time.Time
}

type noopCache struct{}

func (noopCache) GetBalance(context.Context, uint) (*cache.BalanceSnapshot, bool, error) {
	return nil, false, nil
}
func (noopCache) SetBalance(context.Context, uint, *cache.BalanceSnapshot) error { return nil }
func (noopCache) InvalidateBalance(context.Context, ...uint) error               { return nil }
