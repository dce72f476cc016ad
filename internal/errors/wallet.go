package errors

import "net/http"

var (
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
		Status:  http.StatusNotFound,
	}
	ErrAccountExists = &DomainError{
		Code:    "ACCOUNT_EXISTS",
		Message: "account already exists",
		Status:  http.StatusConflict,
	}
	ErrAccountInactive = &DomainError{
		Code:    "ACCOUNT_INACTIVE",
		Message: "account is not active",
		Status:  http.StatusForbidden,
	}
	ErrCurrencyNotFound = &DomainError{
		Code:    "CURRENCY_NOT_FOUND",
		Message: "currency not found",
		Status:  http.StatusNotFound,
	}
	ErrRateUnavailable = &DomainError{
		Code:    "RATE_UNAVAILABLE",
		Message: "exchange rate not available",
		Status:  http.StatusBadRequest,
	}
	ErrUnsupportedCurrency = &DomainError{
		Code:    "UNSUPPORTED_CURRENCY",
		Message: "currency is not supported",
		Status:  http.StatusBadRequest,
	}
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
		Status:  http.StatusBadRequest,
	}
	ErrDailyLimitExceeded = &DomainError{
		Code:    "DAILY_LIMIT_EXCEEDED",
		Message: "transaction exceeds daily limit",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
		Status:  http.StatusBadRequest,
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER",
		Message: "cannot transfer to self",
		Status:  http.StatusBadRequest,
	}
	ErrTransientStore = &DomainError{
		Code:    "TRANSIENT_STORE_ERROR",
		Message: "store temporarily unavailable, retry the request",
		Status:  http.StatusServiceUnavailable,
	}
)

var (
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Status:  http.StatusNotFound,
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "you do not have permission to view this transaction",
		Status:  http.StatusForbidden,
	}
	ErrInvalidDateRange = &DomainError{
		Code:    "INVALID_DATE_RANGE",
		Message: "invalid date range",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_STATUS_TRANSITION",
		Message: "invalid transaction status transition",
		Status:  http.StatusConflict,
	}
)
