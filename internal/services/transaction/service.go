package transaction

import (
	"context"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories/cache"
	"fxwallet/internal/services/history"

	"github.com/shopspring/decimal"
)

// PeriodSummary is a summary over the window ending now.
type PeriodSummary struct {
	Period Period `json:"period"`
	history.Summary
}

func (p *Processor) now() time.Time {
	return p.config.Clock().UTC()
}

func (p *Processor) OpenAccount(ctx context.Context, userID uint, currency string) (*models.Account, error) {
	return p.ledger.OpenAccount(ctx, userID, currency)
}

func (p *Processor) GetBalance(ctx context.Context, userID uint) (*cache.BalanceSnapshot, error) {
	return p.ledger.GetBalance(ctx, userID)
}

// ChangeCurrency switches the user's account to code, converting its balance.
func (p *Processor) ChangeCurrency(ctx context.Context, userID uint, code string) (*models.Account, error) {
	return p.ledger.ChangeCurrency(ctx, userID, code)
}

// GetDetails returns the account with its limit usage, all-time stats and
// latest records.
func (p *Processor) GetDetails(ctx context.Context, userID uint) (*Details, error) {
	account, err := p.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := p.recorder.Summarize(ctx, account.ID, time.Time{}, p.now())
	if err != nil {
		return nil, err
	}
	recent, err := p.recorder.Recent(ctx, account.ID, recentLimit)
	if err != nil {
		return nil, err
	}

	limit := p.ledger.DailyLimit()
	spent := p.ledger.SpentToday(account)
	remaining := decimal.Max(limit.Sub(spent), decimal.Zero)

	return &Details{
		Account:        account,
		DailyLimit:     limit,
		SpentToday:     spent,
		RemainingToday: remaining,
		Stats: Stats{
			TotalDeposits:          summary.Deposits.Amount,
			TotalWithdrawals:       summary.Withdrawals.Amount,
			TotalTransfersSent:     summary.TransfersSent.Amount,
			TotalTransfersReceived: summary.TransfersReceived.Amount,
			DepositCount:           summary.Deposits.Count,
			WithdrawalCount:        summary.Withdrawals.Count,
			TransferCount:          summary.TransfersSent.Count + summary.TransfersReceived.Count,
		},
		RecentTransactions: recent,
	}, nil
}

// History returns the user's records, newest first.
func (p *Processor) History(ctx context.Context, userID uint, f history.Filter) ([]models.Transaction, error) {
	account, err := p.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.recorder.History(ctx, account.ID, f)
}

// ParsePeriod maps a query value to a Period. Anything unrecognised is a month.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s)
	}
	return PeriodMonth
}

func periodStart(end time.Time, period Period) time.Time {
	switch period {
	case PeriodDay:
		return end.AddDate(0, 0, -1)
	case PeriodWeek:
		return end.AddDate(0, 0, -7)
	case PeriodYear:
		return end.AddDate(-1, 0, 0)
	default:
		return end.AddDate(0, -1, 0)
	}
}

// Summary totals the user's completed records over the period ending now.
func (p *Processor) Summary(ctx context.Context, userID uint, period Period) (*PeriodSummary, error) {
	account, err := p.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := p.now()
	s, err := p.recorder.Summarize(ctx, account.ID, periodStart(end, period), end)
	if err != nil {
		return nil, err
	}
	return &PeriodSummary{Period: period, Summary: *s}, nil
}

// Report summarizes [start, end] and lists every record in it.
func (p *Processor) Report(ctx context.Context, userID uint, start, end time.Time) (*Report, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperrors.ErrInvalidDateRange.WithDetail("start and end dates are required")
	}
	if end.Before(start) {
		return nil, apperrors.ErrInvalidDateRange.WithDetail("end date is before start date")
	}

	account, err := p.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := p.recorder.History(ctx, account.ID, history.Filter{From: start, To: end})
	if err != nil {
		return nil, err
	}
	summary, err := p.recorder.Summarize(ctx, account.ID, start, end)
	if err != nil {
		return nil, err
	}
	return &Report{Summary: summary, Transactions: records}, nil
}

// GetTransaction returns a record the user sent or received.
func (p *Processor) GetTransaction(ctx context.Context, userID uint, reference string) (*models.Transaction, error) {
	account, err := p.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := p.recorder.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !tx.Involves(account.ID) {
		return nil, apperrors.ErrForbidden
	}
	return tx, nil
}
