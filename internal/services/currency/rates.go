package currency

import (
	"slices"
	"strings"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"

	"github.com/shopspring/decimal"
)

// ratePrecision is the number of decimals kept when cross rates are derived.
const ratePrecision = 12

// RateTable is an immutable snapshot of every known rate.
type RateTable struct {
	rates       map[string]map[string]decimal.Decimal
	RefreshedAt time.Time
}

// NewRateTable copies rows into a table. Codes are upper-cased and every code
// gets rate 1 to itself regardless of what rows say.
func NewRateTable(rows map[string]map[string]decimal.Decimal, refreshedAt time.Time) *RateTable {
	t := &RateTable{
		rates:       make(map[string]map[string]decimal.Decimal, len(rows)),
		RefreshedAt: refreshedAt,
	}
	for from, targets := range rows {
		from = strings.ToUpper(from)
		row := make(map[string]decimal.Decimal, len(targets)+1)
		for to, rate := range targets {
			row[strings.ToUpper(to)] = rate
		}
		row[from] = decimal.NewFromInt(1)
		t.rates[from] = row
	}
	return t
}

// TableFromModels builds a table from stored currency rows.
func TableFromModels(rows []models.Currency) *RateTable {
	m := make(map[string]map[string]decimal.Decimal, len(rows))
	var refreshed time.Time
	for _, c := range rows {
		m[c.Code] = c.Rates
		if c.LastUpdated.After(refreshed) {
			refreshed = c.LastUpdated
		}
	}
	return NewRateTable(m, refreshed)
}

// Rate returns the multiplicative rate from one code to another.
func (t *RateTable) Rate(from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	row, ok := t.rates[from]
	if !ok {
		return decimal.Zero, apperrors.ErrCurrencyNotFound.WithDetail("currency %s not found", from)
	}
	rate, ok := row[to]
	if !ok {
		return decimal.Zero, apperrors.ErrRateUnavailable.WithDetail("no rate from %s to %s", from, to)
	}
	return rate, nil
}

func (t *RateTable) Has(code string) bool {
	_, ok := t.rates[strings.ToUpper(code)]
	return ok
}

// Codes returns the supported codes in sorted order.
func (t *RateTable) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Row returns a copy of the rates out of code.
func (t *RateTable) Row(code string) models.Rates {
	return models.Rates(t.rates[strings.ToUpper(code)]).Copy()
}

// CrossRates derives a full table from quotes against a single base currency:
// rate(A→B) = quote(B) / quote(A).
func CrossRates(quotes map[string]decimal.Decimal) map[string]map[string]decimal.Decimal {
	out := make(map[string]map[string]decimal.Decimal, len(quotes))
	for from, base := range quotes {
		if base.IsZero() {
			continue
		}
		row := make(map[string]decimal.Decimal, len(quotes))
		for to, target := range quotes {
			if from == to {
				row[to] = decimal.NewFromInt(1)
				continue
			}
			row[to] = target.DivRound(base, ratePrecision)
		}
		out[from] = row
	}
	return out
}

// DefaultBaseRates are USD quotes used when no live source is configured.
var DefaultBaseRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"JPY": decimal.RequireFromString("150.59"),
	"INR": decimal.RequireFromString("83.24"),
	"CAD": decimal.RequireFromString("1.35"),
	"AUD": decimal.RequireFromString("1.52"),
	"CNY": decimal.RequireFromString("7.21"),
	"CHF": decimal.RequireFromString("0.88"),
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CAD": "C$",
	"AUD": "A$",
	"CNY": "¥",
	"CHF": "CHF",
}

var names = map[string]string{
	"USD": "US Dollar",
	"EUR": "Euro",
	"GBP": "British Pound",
	"JPY": "Japanese Yen",
	"INR": "Indian Rupee",
	"CAD": "Canadian Dollar",
	"AUD": "Australian Dollar",
	"CNY": "Chinese Yuan",
	"CHF": "Swiss Franc",
}

// BuildCurrencies turns base quotes into storable rows.
func BuildCurrencies(quotes map[string]decimal.Decimal, now time.Time) []models.Currency {
	table := CrossRates(quotes)
	out := make([]models.Currency, 0, len(table))
	for _, code := range NewRateTable(table, now).Codes() {
		name, ok := names[code]
		if !ok {
			name = code + " Currency"
		}
		symbol, ok := symbols[code]
		if !ok {
			symbol = code
		}
		out = append(out, models.Currency{
			Code:        code,
			Name:        name,
			Symbol:      symbol,
			Rates:       models.Rates(table[code]),
			LastUpdated: now,
		})
	}
	return out
}
