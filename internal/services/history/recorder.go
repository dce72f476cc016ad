// Package history keeps the append-only transaction record.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ReferencePrefix = "TXN-"

// NewRecord is what a caller supplies to create a record.
type NewRecord struct {
	Kind            models.TransactionKind
	Amount          decimal.Decimal
	Currency        string
	ConvertedAmount decimal.Decimal
	RecipientAmount decimal.Decimal
	SenderID        uint
	RecipientID     *uint
	Status          models.TransactionStatus
	Description     string
	Risk            RiskStamp
	IPAddress       string
	UserAgent       string
	Location        *models.Location
}

// RiskStamp is the risk metadata carried by a record.
type RiskStamp struct {
	Score         int
	Level         models.RiskLevel
	TimingAnomaly bool
}

// Filter narrows History. Zero fields match everything.
type Filter struct {
	Kind   models.TransactionKind
	Status models.TransactionStatus
	From   time.Time
	To     time.Time
	Limit  int
}

// Total is a count and a settlement-currency sum.
type Total struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (t *Total) add(amount decimal.Decimal) {
	t.Count++
	t.Amount = t.Amount.Add(amount)
}

// Summary aggregates an account's completed records over a range.
type Summary struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	Deposits          Total     `json:"deposits"`
	Withdrawals       Total     `json:"withdrawals"`
	TransfersSent     Total     `json:"transfers_sent"`
	TransfersReceived Total     `json:"transfers_received"`
}

// Net is money in minus money out.
func (s Summary) Net() decimal.Decimal {
	return s.Deposits.Amount.Add(s.TransfersReceived.Amount).
		Sub(s.Withdrawals.Amount).Sub(s.TransfersSent.Amount)
}

type Recorder struct {
	store repositories.Store
	clock func() time.Time
}

// NewRecorder creates a recorder. clock may be nil.
func NewRecorder(store repositories.Store, clock func() time.Time) *Recorder {
	if store == nil {
		panic("store is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{store: store, clock: clock}
}

// WithStore returns a recorder writing through store.
func (r *Recorder) WithStore(store repositories.Store) *Recorder {
	return &Recorder{store: store, clock: r.clock}
}

func NewReference() string {
	return ReferencePrefix + strings.ToUpper(uuid.NewString())
}

func (r *Recorder) Create(ctx context.Context, rec NewRecord) (*models.Transaction, error) {
	if !rec.Kind.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", rec.Kind)
	}
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("invalid transaction status %q", rec.Status)
	}

	now := r.clock().UTC()
	tx := &models.Transaction{
		Reference:       NewReference(),
		Kind:            rec.Kind,
		Amount:          rec.Amount,
		Currency:        strings.ToUpper(rec.Currency),
		ConvertedAmount: rec.ConvertedAmount,
		RecipientAmount: rec.RecipientAmount,
		SenderID:        rec.SenderID,
		RecipientID:     rec.RecipientID,
		Status:          rec.Status,
		Description:     rec.Description,
		RiskScore:       rec.Risk.Score,
		RiskLevel:       rec.Risk.Level,
		TimingAnomaly:   rec.Risk.TimingAnomaly,
		IPAddress:       rec.IPAddress,
		UserAgent:       rec.UserAgent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rec.Location != nil {
		lat, lng := rec.Location.Latitude, rec.Location.Longitude
		tx.Latitude, tx.Longitude = &lat, &lng
	}
	if rec.Status == models.StatusFlagged {
		tx.FlaggedAt = &now
	}

	if err := r.store.Transactions().Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// MarkFlagged moves a PENDING record to FLAGGED and stamps its risk metadata.
// Records in any other status are left alone.
func (r *Recorder) MarkFlagged(ctx context.Context, id uint, stamp RiskStamp) (*models.Transaction, error) {
	now := r.clock().UTC()
	err := r.store.Transactions().UpdateStatus(ctx, id, models.StatusPending, repositories.StatusUpdate{
		Status:        models.StatusFlagged,
		RiskScore:     stamp.Score,
		RiskLevel:     stamp.Level,
		TimingAnomaly: stamp.TimingAnomaly,
		FlaggedAt:     &now,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTransactionNotFound):
			return nil, apperrors.ErrTransactionNotFound.WithDetail("transaction %d", id)
		case errors.Is(err, repositories.ErrStatusConflict):
			return nil, apperrors.ErrInvalidTransition.WithDetail("transaction %d is no longer pending", id)
		}
		return nil, err
	}
	return r.store.Transactions().GetByID(ctx, id)
}

func (r *Recorder) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	tx, err := r.store.Transactions().GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, apperrors.ErrTransactionNotFound.WithDetail("reference %s", reference)
		}
		return nil, err
	}
	return tx, nil
}

// History returns records the account sent or received, newest first.
func (r *Recorder) History(ctx context.Context, accountID uint, f Filter) ([]models.Transaction, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, apperrors.ErrInvalidDateRange.WithDetail("end date is before start date")
	}

	q := repositories.TransactionQuery{
		AccountID: accountID,
		From:      f.From,
		To:        f.To,
		Limit:     f.Limit,
	}
	if f.Kind != "" {
		q.Kinds = []models.TransactionKind{f.Kind}
	}
	if f.Status != "" {
		q.Statuses = []models.TransactionStatus{f.Status}
	}
	return r.store.Transactions().Find(ctx, q)
}

// Recent returns the account's latest records.
func (r *Recorder) Recent(ctx context.Context, accountID uint, limit int) ([]models.Transaction, error) {
	return r.History(ctx, accountID, Filter{Limit: limit})
}

// Summarize totals the account's COMPLETED records created in [from, to].
func (r *Recorder) Summarize(ctx context.Context, accountID uint, from, to time.Time) (*Summary, error) {
	records, err := r.store.Transactions().Find(ctx, repositories.TransactionQuery{
		AccountID: accountID,
		Statuses:  []models.TransactionStatus{models.StatusCompleted},
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}
	s := Summarize(accountID, records)
	s.From, s.To = from, to
	return s, nil
}

// Summarize folds records into a Summary from the point of view of accountID.
// Sent amounts are in the sender's currency, received amounts in the recipient's.
func Summarize(accountID uint, records []models.Transaction) *Summary {
	s := &Summary{}
	for i := range records {
		t := &records[i]
		switch t.Kind {
		case models.KindDeposit:
			s.Deposits.add(t.ConvertedAmount)
		case models.KindWithdrawal:
			s.Withdrawals.add(t.ConvertedAmount)
		case models.KindTransfer:
			if t.SenderID == accountID {
				s.TransfersSent.add(t.ConvertedAmount)
			} else if t.Involves(accountID) {
				s.TransfersReceived.add(t.RecipientAmount)
			}
		}
	}
	return s
}
