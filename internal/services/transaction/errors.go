package transaction

import (
	"errors"

	apperrors "fxwallet/internal/errors"
)

// rejectedAtCommit reports whether err is a business rejection raised inside
// the commit, as opposed to a store failure. Only these get a FAILED record.
func rejectedAtCommit(err error) bool {
	return errors.Is(err, apperrors.ErrInsufficientFunds) ||
		errors.Is(err, apperrors.ErrDailyLimitExceeded) ||
		errors.Is(err, apperrors.ErrAccountInactive)
}

// errorCode labels err for metrics.
func errorCode(err error) string {
	if code := apperrors.Code(err); code != "" {
		return code
	}
	return "INTERNAL"
}
