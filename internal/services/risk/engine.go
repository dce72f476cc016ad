// Package risk scores prospective transactions for fraud.
//
// Signals are computed from the sender's record history by independent
// predicates and combined by Score into a single number; Classify turns the
// number into a level. The Engine never blocks a transaction because of its
// own failures: if history cannot be read it reports score 0 and level UNKNOWN.
package risk

import (
	"context"
	"fmt"
	"time"

	"fxwallet/internal/logger"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Metadata describes the client a request came from.
type Metadata struct {
	IPAddress string
	UserAgent string
	Location  *models.Location
}

// Assessment is the engine's verdict on one request.
type Assessment struct {
	Score         int              `json:"score"`
	Level         models.RiskLevel `json:"level"`
	TimingAnomaly bool             `json:"timing_anomaly"`
	Signals       Signals          `json:"signals"`
}

// Unknown is returned whenever the engine cannot assess a request.
var Unknown = Assessment{Score: 0, Level: models.RiskUnknown}

// History is the read-only view of past activity the engine needs.
type History interface {
	GetAccount(ctx context.Context, accountID uint) (*models.Account, error)
	CountSent(ctx context.Context, accountID uint, since time.Time) (int64, error)
	SumSent(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error)

	// RecentSent returns up to limit records sent by accountID, newest first.
	RecentSent(ctx context.Context, accountID uint, limit int, requireIP bool) ([]models.Transaction, error)
}

type Config struct {
	DailyLimit decimal.Decimal
	Weights    Weights
	Thresholds Thresholds
	Location   *time.Location
	Clock      func() time.Time
}

type Engine struct {
	history History
	config  Config
}

func NewEngine(history History, config Config) *Engine {
	if history == nil {
		panic("history is required")
	}
	if config.Weights.Kind == nil {
		config.Weights = DefaultWeights()
	}
	if config.Thresholds.Medium == 0 && config.Thresholds.High == 0 {
		config.Thresholds = DefaultThresholds()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Engine{history: history, config: config}
}

// Assess scores a prospective transaction of amount (in the account's currency).
func (e *Engine) Assess(ctx context.Context, accountID uint, kind models.TransactionKind, amount decimal.Decimal, meta Metadata) Assessment {
	signals, err := e.collect(ctx, accountID, kind, amount, meta)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"account_id": accountID,
			"kind":       kind,
		}).Errorf("Error calculating risk score: %v", err)
		return Unknown
	}

	score := Score(signals, e.config.Weights)
	a := Assessment{
		Score:         score,
		Level:         Classify(score, e.config.Thresholds),
		TimingAnomaly: signals.TimingAnomaly,
		Signals:       signals,
	}

	fields := logrus.Fields{
		"account_id": accountID,
		"kind":       kind,
		"amount":     amount.String(),
		"score":      a.Score,
		"flags":      signals,
	}
	switch a.Level {
	case models.RiskHigh:
		logger.WithFields(fields).Warn("High risk transaction detected")
	case models.RiskMedium:
		logger.WithFields(fields).Info("Medium risk transaction detected")
	}
	return a
}

func (e *Engine) collect(ctx context.Context, accountID uint, kind models.TransactionKind, amount decimal.Decimal, meta Metadata) (Signals, error) {
	now := e.config.Clock()
	s := Signals{Kind: kind, Amount: amount}

	account, err := e.history.GetAccount(ctx, accountID)
	if err != nil {
		return s, fmt.Errorf("load account: %w", err)
	}
	age := now.Sub(account.CreatedAt)
	s.NewAccount = IsNewAccount(age)
	s.YoungAccount = IsYoungAccount(age)

	total, err := e.history.CountSent(ctx, accountID, time.Time{})
	if err != nil {
		return s, fmt.Errorf("count history: %w", err)
	}
	s.ThinHistory = IsThinHistory(total)

	spent, err := e.history.SumSent(ctx, accountID, startOfDay(now, e.config.Location), []models.TransactionStatus{
		models.StatusCompleted, models.StatusPending, models.StatusFlagged,
	})
	if err != nil {
		return s, fmt.Errorf("sum today: %w", err)
	}
	s.DailyLimitBreach = IsDailyLimitBreach(spent, amount, e.config.DailyLimit)

	recent, err := e.history.RecentSent(ctx, accountID, timingWindow, false)
	if err != nil {
		return s, fmt.Errorf("load recent: %w", err)
	}
	amounts := make([]decimal.Decimal, 0, unusualAmountWindow)
	for i := 0; i < len(recent) && i < unusualAmountWindow; i++ {
		amounts = append(amounts, recent[i].ConvertedAmount)
	}
	s.UnusualAmount = IsUnusualAmount(amount, amounts)

	times := make([]time.Time, len(recent))
	for i := range recent {
		times[i] = recent[i].CreatedAt
	}
	s.TimingAnomaly = IsTimingAnomaly(now, times)

	lastHour, err := e.history.CountSent(ctx, accountID, now.Add(-velocityWindow))
	if err != nil {
		return s, fmt.Errorf("count last hour: %w", err)
	}
	s.HighVelocity = IsHighVelocity(lastHour)

	if meta.IPAddress != "" && meta.UserAgent != "" {
		located, err := e.history.RecentSent(ctx, accountID, locationWindow, true)
		if err != nil {
			return s, fmt.Errorf("load located: %w", err)
		}
		s.LocationAnomaly = IsLocationAnomaly(meta, located)
	}

	return s, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

type storeHistory struct {
	store repositories.Store
}

// NewStoreHistory reads history straight from store.
func NewStoreHistory(store repositories.Store) History {
	return &storeHistory{store: store}
}

func (h *storeHistory) GetAccount(ctx context.Context, accountID uint) (*models.Account, error) {
	return h.store.Accounts().GetByID(ctx, accountID)
}

func (h *storeHistory) CountSent(ctx context.Context, accountID uint, since time.Time) (int64, error) {
	return h.store.Transactions().CountBySender(ctx, accountID, since)
}

func (h *storeHistory) SumSent(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error) {
	return h.store.Transactions().SumSentSince(ctx, accountID, since, statuses)
}

func (h *storeHistory) RecentSent(ctx context.Context, accountID uint, limit int, requireIP bool) ([]models.Transaction, error) {
	return h.store.Transactions().Find(ctx, repositories.TransactionQuery{
		SenderID:  accountID,
		RequireIP: requireIP,
		Limit:     limit,
	})
}
