package transaction

import (
	"context"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/services/risk"
	"fxwallet/internal/stream"

	"github.com/shopspring/decimal"
)

type RiskAssessor interface {
	Assess(ctx context.Context, accountID uint, kind models.TransactionKind, amount decimal.Decimal, meta risk.Metadata) risk.Assessment
}

// EventPublisher receives the outcome of every recorded request.
type EventPublisher interface {
	Publish(ctx context.Context, e stream.Event) error
}

type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation string, result string)
	RecordError(operation string, code string)
	RecordTransaction(kind models.TransactionKind, amount decimal.Decimal)
	RecordRiskLevel(level models.RiskLevel)
}
