package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondAppError maps err onto its status and kind. Server-side failures
// are logged and their cause is not echoed to the caller.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	resp := api.ErrorResponse{Code: apperr.Kind(err)}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
		resp.Error = publicMessage(err)
	} else {
		resp.Error = err.Error()
	}
	respondJSON(w, status, resp)
}

func publicMessage(err error) string {
	for _, sentinel := range []error{apperr.ErrPersistence, apperr.ErrProvider, apperr.ErrTimeoutExceeded} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.ErrTimeoutExceeded.Error()
	}
	return "internal server error"
}
