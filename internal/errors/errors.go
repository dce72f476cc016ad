// Package errors defines the domain error kinds reported by the wallet services.
// Every kind carries a stable code and the HTTP status the API layer renders it with.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// DomainError is a typed, user-renderable failure.
type DomainError struct {
	Code    string
	Message string
	Detail  string
	Status  int
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Is matches on Code so detailed copies still satisfy errors.Is against the kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the kind carrying extra context.
func (e *DomainError) WithDetail(format string, args ...interface{}) *DomainError {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// HTTPStatus returns the status the error should be rendered with.
func (e *DomainError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// As extracts a DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Code returns the domain code of err, or "" if err is not a DomainError.
func Code(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// Retryable reports whether the caller may retry the request unchanged.
func Retryable(err error) bool {
	return stderrors.Is(err, ErrTransientStore)
}
