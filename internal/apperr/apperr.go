// Package apperr holds the settlement error taxonomy and its HTTP mapping.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthenticity    = errors.New("payment signature mismatch")
	ErrProvider        = errors.New("payment provider error")
	ErrUserCancelled   = errors.New("payment cancelled")
	ErrTimeoutExceeded = errors.New("payment timeout")
	ErrPersistence     = errors.New("order could not be recorded")
	ErrNotVerified     = errors.New("payment not verified")
	ErrDuplicate       = errors.New("order for this payment already exists")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation_error"

	case errors.Is(err, ErrAuthenticity):
		return "authenticity_error"

	case errors.Is(err, ErrProvider):
		return "provider_error"

	case errors.Is(err, ErrUserCancelled):
		return "cancelled"

	case errors.Is(err, ErrTimeoutExceeded), errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, ErrPersistence):
		return "persistence_error"

	case errors.Is(err, ErrNotVerified):
		return "payment_not_verified"

	case errors.Is(err, ErrDuplicate):
		return "duplicate"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrAuthenticity):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, ErrNotVerified):
		return http.StatusPaymentRequired

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, ErrTimeoutExceeded),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}

// FromKind maps a wire kind back to its sentinel. Unknown kinds yield nil.
func FromKind(kind string) error {
	switch kind {
	case "validation_error":
		return ErrValidation
	case "authenticity_error":
		return ErrAuthenticity
	case "provider_error":
		return ErrProvider
	case "cancelled":
		return ErrUserCancelled
	case "timeout":
		return ErrTimeoutExceeded
	case "persistence_error":
		return ErrPersistence
	case "payment_not_verified":
		return ErrNotVerified
	case "duplicate":
		return ErrDuplicate
	case "not_found":
		return ErrNotFound
	case "unauthorized":
		return ErrUnauthorized
	default:
		return nil
	}
}
