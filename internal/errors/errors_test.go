package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesOnCode(t *testing.T) {
	err := ErrAccountNotFound.WithDetail("recipient %d", 7)

	assert.True(t, stderrors.Is(err, ErrAccountNotFound))
	assert.False(t, stderrors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, "account not found: recipient 7", err.Error())
	assert.Equal(t, "", ErrAccountNotFound.Detail, "WithDetail must not mutate the kind")
}

func TestDomainError_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("withdraw: %w", ErrDailyLimitExceeded)

	de, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus())
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", Code(wrapped))
	assert.Equal(t, "", Code(stderrors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("commit: %w", ErrTransientStore.WithDetail("deadline"))))
	assert.False(t, Retryable(ErrInsufficientFunds))
	assert.False(t, Retryable(nil))
}
