package transaction

import (
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/services/history"
	"fxwallet/internal/services/risk"

	"github.com/shopspring/decimal"
)

// State is the position of a request in the processing state machine.
type State string

const (
	StateReceived     State = "RECEIVED"
	StateConverted    State = "CONVERTED"
	StateLimitChecked State = "LIMIT_CHECKED"
	StateRiskScored   State = "RISK_SCORED"
	StateCommitted    State = "COMMITTED"
	StateFlagged      State = "FLAGGED"
	StateRejected     State = "REJECTED"
)

// Request is one deposit, withdrawal or transfer. UserID is the verified
// caller; RecipientID is the recipient's user id and is only read by Transfer.
type Request struct {
	UserID      uint
	RecipientID uint
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    risk.Metadata
}

// Result is a settled request. Account is the sender's account after the
// operation; Recipient is set for transfers.
type Result struct {
	Record    *models.Transaction `json:"transaction"`
	Account   *models.Account     `json:"account"`
	Recipient *models.Account     `json:"-"`
	State     State               `json:"state"`
	Risk      risk.Assessment     `json:"risk"`
}

// Config holds the processor's limits.
type Config struct {
	ProcessingTimeout time.Duration
	Clock             func() time.Time
}

// Period selects the window of a summary.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Stats are all-time totals over an account's completed records.
type Stats struct {
	TotalDeposits          decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals       decimal.Decimal `json:"total_withdrawals"`
	TotalTransfersSent     decimal.Decimal `json:"total_transfers_sent"`
	TotalTransfersReceived decimal.Decimal `json:"total_transfers_received"`
	DepositCount           int             `json:"deposit_count"`
	WithdrawalCount        int             `json:"withdrawal_count"`
	TransferCount          int             `json:"transfer_count"`
}

// Details is an account with its limit usage, stats and latest records.
type Details struct {
	Account            *models.Account      `json:"account"`
	DailyLimit         decimal.Decimal      `json:"daily_limit"`
	SpentToday         decimal.Decimal      `json:"spent_today"`
	RemainingToday     decimal.Decimal      `json:"remaining_today"`
	Stats              Stats                `json:"stats"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// Report is a summary over an explicit range plus the records in it.
type Report struct {
	Summary      *history.Summary     `json:"summary"`
	Transactions []models.Transaction `json:"transactions"`
}
