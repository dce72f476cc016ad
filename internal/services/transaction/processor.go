package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/logger"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"
	"fxwallet/internal/services/currency"
	"fxwallet/internal/services/history"
	"fxwallet/internal/services/risk"
	"fxwallet/internal/services/wallet"
	"fxwallet/internal/stream"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators a Processor drives. Events and Metrics may be nil.
type Deps struct {
	Store     repositories.Store
	Ledger    *wallet.Ledger
	Recorder  *history.Recorder
	Converter wallet.Converter
	Risk      RiskAssessor
	Events    EventPublisher
	Metrics   MetricsCollector
}

type Processor struct {
	store     repositories.Store
	ledger    *wallet.Ledger
	recorder  *history.Recorder
	converter wallet.Converter
	risk      RiskAssessor
	events    EventPublisher
	metrics   MetricsCollector
	config    Config
}

func NewProcessor(deps Deps, config Config) *Processor {
	if deps.Store == nil {
		panic("store is required")
	}
	if deps.Ledger == nil {
		panic("ledger is required")
	}
	if deps.Recorder == nil {
		panic("recorder is required")
	}
	if deps.Converter == nil {
		panic("converter is required")
	}
	if deps.Risk == nil {
		panic("risk assessor is required")
	}
	if deps.Events == nil {
		deps.Events = NoopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}

	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = DefaultProcessingTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Processor{
		store:     deps.Store,
		ledger:    deps.Ledger,
		recorder:  deps.Recorder,
		converter: deps.Converter,
		risk:      deps.Risk,
		events:    deps.Events,
		metrics:   deps.Metrics,
		config:    config,
	}
}

// prepared is a request that has passed its pre-checks.
type prepared struct {
	kind      models.TransactionKind
	req       Request
	state     State
	sender    *models.Account
	recipient *models.Account
	debit     decimal.Decimal // in the sender's currency
	credit    decimal.Decimal // in the recipient's currency, transfers only
	risk      risk.Assessment
}

func (p *Processor) Deposit(ctx context.Context, req Request) (*Result, error) {
	return p.process(ctx, opDeposit, models.KindDeposit, req)
}

func (p *Processor) Withdraw(ctx context.Context, req Request) (*Result, error) {
	return p.process(ctx, opWithdraw, models.KindWithdrawal, req)
}

// Transfer moves money from req.UserID to req.RecipientID. The amount is
// converted independently into each side's currency.
func (p *Processor) Transfer(ctx context.Context, req Request) (*Result, error) {
	return p.process(ctx, opTransfer, models.KindTransfer, req)
}

func (p *Processor) process(ctx context.Context, op string, kind models.TransactionKind, req Request) (*Result, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordOperationDuration(op, time.Since(start))
	}()

	pr := &prepared{kind: kind, req: req, state: StateReceived}
	res, err := p.run(ctx, pr)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": op,
			"user_id":   req.UserID,
			"state":     pr.state,
		}).Debugf("Transaction rejected: %v", err)
		p.metrics.RecordOperationResult(op, resultRejected)
		p.metrics.RecordError(op, errorCode(err))
		return nil, err
	}

	if res.State == StateFlagged {
		p.metrics.RecordOperationResult(op, resultFlagged)
	} else {
		p.metrics.RecordOperationResult(op, resultCommitted)
	}
	return res, nil
}

func (p *Processor) run(ctx context.Context, pr *prepared) (*Result, error) {
	if err := p.prepare(ctx, pr); err != nil {
		return nil, err
	}

	pr.risk = p.risk.Assess(ctx, pr.sender.ID, pr.kind, pr.debit, pr.req.Metadata)
	pr.state = StateRiskScored
	p.metrics.RecordRiskLevel(pr.risk.Level)

	if pr.risk.Level == models.RiskHigh {
		return p.flag(ctx, pr)
	}
	return p.commit(ctx, pr)
}

// prepare loads the accounts, converts the amount and runs the balance and
// daily-limit pre-checks. Nothing is recorded for a request it rejects.
func (p *Processor) prepare(ctx context.Context, pr *prepared) error {
	if err := p.validateRequest(pr); err != nil {
		return err
	}
	transfer := pr.kind == models.KindTransfer

	sender, err := p.ledger.GetAccount(ctx, pr.req.UserID)
	if err != nil {
		if transfer && errors.Is(err, apperrors.ErrAccountNotFound) {
			return apperrors.ErrAccountNotFound.WithDetail("sender user %d", pr.req.UserID)
		}
		return err
	}
	if !sender.IsActive {
		return apperrors.ErrAccountInactive.WithDetail("account %d is not active", sender.ID)
	}
	pr.sender = sender

	if transfer {
		recipient, err := p.ledger.GetAccount(ctx, pr.req.RecipientID)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				return apperrors.ErrAccountNotFound.WithDetail("recipient user %d", pr.req.RecipientID)
			}
			return err
		}
		if recipient.ID == sender.ID {
			return apperrors.ErrSelfTransfer
		}
		if !recipient.IsActive {
			return apperrors.ErrAccountInactive.WithDetail("recipient account %d is not active", recipient.ID)
		}
		pr.recipient = recipient
	}

	pr.debit, err = p.converter.Convert(pr.req.Amount, pr.req.Currency, sender.Currency)
	if err != nil {
		return err
	}
	if !pr.debit.IsPositive() {
		return apperrors.ErrInvalidAmount.WithDetail("%s %s is zero in %s",
			pr.req.Amount.String(), pr.req.Currency, sender.Currency)
	}
	if transfer {
		pr.credit, err = p.converter.Convert(pr.req.Amount, pr.req.Currency, pr.recipient.Currency)
		if err != nil {
			return err
		}
	}
	pr.state = StateConverted

	if pr.kind != models.KindDeposit && sender.Balance.LessThan(pr.debit) {
		return apperrors.ErrInsufficientFunds.WithDetail("balance %s %s, requested %s",
			sender.Balance.String(), sender.Currency, pr.debit.String())
	}
	limit := p.ledger.DailyLimit()
	if p.ledger.WouldExceedDailyLimit(sender, pr.debit, limit) {
		return apperrors.ErrDailyLimitExceeded.WithDetail("spent %s of %s today",
			p.ledger.SpentToday(sender).String(), limit.String())
	}
	pr.state = StateLimitChecked
	return nil
}

func (p *Processor) validateRequest(pr *prepared) error {
	pr.req.Currency = strings.ToUpper(strings.TrimSpace(pr.req.Currency))

	if !pr.req.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if pr.req.Currency == "" || !p.converter.IsSupported(pr.req.Currency) {
		return apperrors.ErrUnsupportedCurrency.WithDetail("currency %q is not supported", pr.req.Currency)
	}
	if !pr.req.Amount.Equal(currency.Round(pr.req.Amount, pr.req.Currency)) {
		return apperrors.ErrInvalidAmount.WithDetail("%s %s is finer than %d decimal places",
			pr.req.Amount.String(), pr.req.Currency, currency.MinorUnits(pr.req.Currency))
	}
	if pr.kind == models.KindTransfer {
		if pr.req.RecipientID == 0 {
			return apperrors.ErrAccountNotFound.WithDetail("recipient is required")
		}
		if pr.req.RecipientID == pr.req.UserID {
			return apperrors.ErrSelfTransfer
		}
	}
	return nil
}

// flag records a HIGH risk request for review without touching any balance.
// The PENDING record and its move to FLAGGED commit together, so a failed
// transition leaves no PENDING record behind.
func (p *Processor) flag(ctx context.Context, pr *prepared) (*Result, error) {
	flagCtx, cancel := context.WithTimeout(ctx, p.config.ProcessingTimeout)
	defer cancel()

	var rec *models.Transaction
	err := p.store.ExecuteInTransaction(flagCtx, func(tx repositories.Store) error {
		recorder := p.recorder.WithStore(tx)
		pending, err := recorder.Create(flagCtx, p.newRecord(pr, models.StatusPending))
		if err != nil {
			return err
		}
		rec, err = recorder.MarkFlagged(flagCtx, pending.ID, stampOf(pr.risk))
		return err
	})
	if err != nil {
		return nil, err
	}
	pr.state = StateFlagged

	logger.WithFields(logrus.Fields{
		"reference":  rec.Reference,
		"account_id": pr.sender.ID,
		"score":      pr.risk.Score,
	}).Warn("Transaction flagged for review")
	p.publish(ctx, rec)

	return &Result{
		Record:    rec,
		Account:   pr.sender,
		Recipient: pr.recipient,
		State:     StateFlagged,
		Risk:      pr.risk,
	}, nil
}

// commit applies the balance change and writes the COMPLETED record in one
// store transaction bounded by the processing timeout.
func (p *Processor) commit(ctx context.Context, pr *prepared) (*Result, error) {
	commitCtx, cancel := context.WithTimeout(ctx, p.config.ProcessingTimeout)
	defer cancel()

	res := &Result{State: StateCommitted, Risk: pr.risk}
	err := p.store.ExecuteInTransaction(commitCtx, func(tx repositories.Store) error {
		ledger := p.ledger.WithStore(tx)

		var err error
		switch pr.kind {
		case models.KindDeposit:
			res.Account, err = ledger.ApplyDelta(commitCtx, pr.sender.ID, pr.debit, true)
		case models.KindWithdrawal:
			res.Account, err = ledger.ApplyDelta(commitCtx, pr.sender.ID, pr.debit.Neg(), true)
		case models.KindTransfer:
			res.Account, res.Recipient, err = ledger.ApplyTransfer(commitCtx, pr.sender.ID, pr.recipient.ID, pr.debit, pr.credit)
		}
		if err != nil {
			return err
		}

		res.Record, err = p.recorder.WithStore(tx).Create(commitCtx, p.newRecord(pr, models.StatusCompleted))
		return err
	})
	if err != nil {
		if rejectedAtCommit(err) {
			p.recordFailure(ctx, pr)
		}
		return nil, err
	}
	pr.state = StateCommitted

	p.ledger.RefreshCache(ctx, res.Account, res.Recipient)
	p.publish(ctx, res.Record)
	p.metrics.RecordTransaction(pr.kind, pr.debit)

	logger.WithFields(logrus.Fields{
		"reference":  res.Record.Reference,
		"kind":       pr.kind,
		"account_id": pr.sender.ID,
		"amount":     pr.debit.String(),
		"currency":   pr.sender.Currency,
		"risk_level": pr.risk.Level,
	}).Info("Transaction completed")
	return res, nil
}

// recordFailure writes a FAILED record for a request the commit rejected.
// Failures here are logged and never replace the rejection.
func (p *Processor) recordFailure(ctx context.Context, pr *prepared) {
	rec, err := p.recorder.Create(ctx, p.newRecord(pr, models.StatusFailed))
	if err != nil {
		logger.Errorf("Failed to record rejected %s for account %d: %v", pr.kind, pr.sender.ID, err)
		return
	}
	p.publish(ctx, rec)
}

func (p *Processor) newRecord(pr *prepared, status models.TransactionStatus) history.NewRecord {
	rec := history.NewRecord{
		Kind:            pr.kind,
		Amount:          pr.req.Amount,
		Currency:        pr.req.Currency,
		ConvertedAmount: pr.debit,
		SenderID:        pr.sender.ID,
		Status:          status,
		Description:     pr.req.Description,
		Risk:            stampOf(pr.risk),
		IPAddress:       pr.req.Metadata.IPAddress,
		UserAgent:       pr.req.Metadata.UserAgent,
		Location:        pr.req.Metadata.Location,
	}
	if pr.recipient != nil {
		id := pr.recipient.ID
		rec.RecipientID = &id
		rec.RecipientAmount = pr.credit
	}
	return rec
}

func (p *Processor) publish(ctx context.Context, rec *models.Transaction) {
	e, ok := stream.EventFor(rec)
	if !ok {
		return
	}
	if err := p.events.Publish(ctx, e); err != nil {
		logger.Warnf("Failed to publish %s event for %s: %v", e.Type, rec.Reference, err)
	}
}

func stampOf(a risk.Assessment) history.RiskStamp {
	return history.RiskStamp{
		Score:         a.Score,
		Level:         a.Level,
		TimingAnomaly: a.TimingAnomaly,
	}
}
