package transaction

import (
	"context"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/stream"

	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration)            {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)                     {}
func (n *NoopMetricsCollector) RecordError(string, string)                               {}
func (n *NoopMetricsCollector) RecordTransaction(models.TransactionKind, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordRiskLevel(models.RiskLevel)                         {}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, stream.Event) error { return nil }
