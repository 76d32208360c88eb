package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_food/internal/apperr"
)

// StatusError is a non-2xx backend answer. It unwraps to the apperr
// sentinel named by its code, or implied by its status.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, msg)
}

// PublicMessage is the message the backend meant for the user.
func (e *StatusError) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if err := apperr.FromKind(e.Code); err != nil {
		return err
	}
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return apperr.ErrValidation
	case e.StatusCode == http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case e.StatusCode == http.StatusPaymentRequired:
		return apperr.ErrNotVerified
	case e.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return apperr.ErrDuplicate
	case e.StatusCode == http.StatusGatewayTimeout:
		return apperr.ErrTimeoutExceeded
	default:
		return nil
	}
}

// errorBody covers both the {error, code, details} and the
// {success, message, error, code} shapes.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

func newStatusError(status int, raw []byte) *StatusError {
	se := &StatusError{StatusCode: status}
	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		return se
	}
	se.Code = body.Code
	switch {
	case body.Message != "":
		se.Message = body.Message
		if body.Error != "" && body.Error != body.Message {
			se.Details = body.Error
		}
	default:
		se.Message = body.Error
		se.Details = body.Details
	}
	return se
}
