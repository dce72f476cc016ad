// Package currency converts amounts between currencies using a swappable rate table.
package currency

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"fxwallet/internal/logger"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
)

var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true, "JPY": true,
	"KMF": true, "KRW": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

var threeDecimal = map[string]bool{
	"BHD": true, "IQD": true, "JOD": true, "KWD": true, "LYD": true, "OMR": true, "TND": true,
}

// MinorUnits returns the number of decimals amounts in code are kept to.
func MinorUnits(code string) int32 {
	code = strings.ToUpper(code)
	switch {
	case zeroDecimal[code]:
		return 0
	case threeDecimal[code]:
		return 3
	}
	return 2
}

// Round rounds amount half-to-even at code's minor unit.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.RoundBank(MinorUnits(code))
}

// Converter converts with whatever table was installed last. Each call reads a
// single snapshot, so a concurrent Replace never yields a mixed result.
type Converter struct {
	table atomic.Pointer[RateTable]
}

func NewConverter(table *RateTable) *Converter {
	if table == nil {
		table = NewRateTable(nil, time.Time{})
	}
	c := &Converter{}
	c.table.Store(table)
	return c
}

// Convert returns amount expressed in to. Same-code conversions return amount unchanged.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}
	rate, err := c.table.Load().Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(amount.Mul(rate), to), nil
}

func (c *Converter) IsSupported(code string) bool {
	return c.table.Load().Has(code)
}

// Replace installs a new table as a whole.
func (c *Converter) Replace(table *RateTable) {
	if table == nil {
		return
	}
	c.table.Store(table)
}

func (c *Converter) Snapshot() *RateTable {
	return c.table.Load()
}

// LoadTable reads the stored rate table.
func LoadTable(ctx context.Context, repo repositories.CurrencyRepository) (*RateTable, error) {
	rows, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}
	return TableFromModels(rows), nil
}

// Seed replaces the stored table with rows derived from quotes.
func Seed(ctx context.Context, repo repositories.CurrencyRepository, quotes map[string]decimal.Decimal) (*RateTable, error) {
	now := time.Now().UTC()
	rows := BuildCurrencies(quotes, now)
	if err := repo.ReplaceAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to seed currencies: %w", err)
	}
	logger.Infof("Seeded %d currencies", len(rows))
	return TableFromModels(rows), nil
}

// Refresher periodically reloads the stored table into a Converter.
type Refresher struct {
	repo      repositories.CurrencyRepository
	converter *Converter
	interval  time.Duration
}

func NewRefresher(repo repositories.CurrencyRepository, converter *Converter, interval time.Duration) *Refresher {
	if repo == nil || converter == nil {
		panic("currency repository and converter are required")
	}
	return &Refresher{repo: repo, converter: converter, interval: interval}
}

// Refresh loads the table once. A failed load or an empty table keeps the current one.
func (r *Refresher) Refresh(ctx context.Context) error {
	table, err := LoadTable(ctx, r.repo)
	if err != nil {
		return err
	}
	if len(table.Codes()) == 0 {
		return fmt.Errorf("currency table is empty")
	}
	r.converter.Replace(table)
	return nil
}

// Run refreshes every interval until ctx is done. A non-positive interval disables it.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				logger.Warnf("Failed to refresh currency rates: %v", err)
				continue
			}
			logger.Debugf("Currency rates refreshed")
		}
	}
}
