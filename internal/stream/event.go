// Package stream publishes ledger events to Kafka.
package stream

import (
	"time"

	"fxwallet/internal/models"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCompleted EventType = "completed"
	EventFlagged   EventType = "flagged"
	EventFailed    EventType = "failed"
)

const topicPrefix = "wallet.transaction."

// Topic returns the topic events of type t are published to.
func Topic(t EventType) string {
	return topicPrefix + string(t)
}

// Event describes the outcome of one recorded transaction.
type Event struct {
	Type            EventType                `json:"type"`
	Reference       string                   `json:"reference"`
	Kind            models.TransactionKind   `json:"kind"`
	Status          models.TransactionStatus `json:"status"`
	Amount          decimal.Decimal          `json:"amount"`
	Currency        string                   `json:"currency"`
	ConvertedAmount decimal.Decimal          `json:"converted_amount"`
	RecipientAmount decimal.Decimal          `json:"recipient_amount,omitempty"`
	SenderID        uint                     `json:"sender_id"`
	RecipientID     *uint                    `json:"recipient_id,omitempty"`
	RiskScore       int                      `json:"risk_score"`
	RiskLevel       models.RiskLevel         `json:"risk_level,omitempty"`
	OccurredAt      time.Time                `json:"occurred_at"`
}

// EventFor builds the event for a record. ok is false for records that have
// no outcome yet.
func EventFor(tx *models.Transaction) (Event, bool) {
	var t EventType
	switch tx.Status {
	case models.StatusCompleted:
		t = EventCompleted
	case models.StatusFlagged:
		t = EventFlagged
	case models.StatusFailed:
		t = EventFailed
	default:
		return Event{}, false
	}

	return Event{
		Type:            t,
		Reference:       tx.Reference,
		Kind:            tx.Kind,
		Status:          tx.Status,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		ConvertedAmount: tx.ConvertedAmount,
		RecipientAmount: tx.RecipientAmount,
		SenderID:        tx.SenderID,
		RecipientID:     tx.RecipientID,
		RiskScore:       tx.RiskScore,
		RiskLevel:       tx.RiskLevel,
		OccurredAt:      tx.UpdatedAt,
	}, true
}
