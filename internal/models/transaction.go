package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
)

// Valid reports whether k is one of the ledger's transaction kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusFlagged   TransactionStatus = "FLAGGED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusFlagged:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Transaction is the immutable audit record of one attempted operation.
// Only Status and the risk stamp change after creation, and only out of PENDING.
type Transaction struct {
	ID              uint              `gorm:"primarykey" json:"id"`
	Reference       string            `gorm:"uniqueIndex;not null" json:"reference"`
	Kind            TransactionKind   `gorm:"type:varchar(16);not null;index" json:"kind"`
	Amount          decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"amount"`
	Currency        string            `gorm:"type:varchar(3);not null" json:"currency"`
	ConvertedAmount decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"converted_amount"`
	RecipientAmount decimal.Decimal   `gorm:"type:numeric(20,8);not null;default:0" json:"recipient_amount"`
	SenderID        uint              `gorm:"not null;index:idx_sender_created,priority:1" json:"sender_id"`
	RecipientID     *uint             `gorm:"index:idx_recipient_created,priority:1" json:"recipient_id,omitempty"`
	Status          TransactionStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Description     string            `json:"description"`
	RiskScore       int               `gorm:"not null;default:0" json:"risk_score"`
	RiskLevel       RiskLevel         `gorm:"type:varchar(16)" json:"risk_level,omitempty"`
	TimingAnomaly   bool              `gorm:"not null;default:false" json:"timing_anomaly"`
	FlaggedAt       *time.Time        `json:"flagged_at,omitempty"`
	IPAddress       string            `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
	Latitude        *float64          `json:"latitude,omitempty"`
	Longitude       *float64          `json:"longitude,omitempty"`
	CreatedAt       time.Time         `gorm:"index:idx_sender_created,priority:2;index:idx_recipient_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Involves reports whether accountID is the sender or the recipient.
func (t *Transaction) Involves(accountID uint) bool {
	return t.SenderID == accountID || (t.RecipientID != nil && *t.RecipientID == accountID)
}

// Location is a lat/lng pair reported by the client device.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}
