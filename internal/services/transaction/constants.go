package transaction

import "time"

const (
	DefaultProcessingTimeout = 30 * time.Second

	// recentLimit is how many records GetDetails returns.
	recentLimit = 5
)

// Operation names used for metrics and logs
const (
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opTransfer = "transfer"
)

// Operation results
const (
	resultCommitted = "committed"
	resultFlagged   = "flagged"
	resultRejected  = "rejected"
)
