package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// RequestIDMiddleware reuses the caller's X-Request-ID or mints one, and
// exposes it through chi's request id context key.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := r.Context()
		ctx = contextWithRequestID(ctx, requestID)
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerMiddleware puts a request-scoped logger in the context and writes
// one access log line per request.
func LoggerMiddleware(base zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := base.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ctx := logger.WithContext(r.Context(), reqLog)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := logger.FromContext(ctx).Info()
			if status >= http.StatusInternalServerError {
				ev = logger.FromContext(ctx).Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}

// AuthMiddleware validates the bearer token and stores its user in the
// request context.
func AuthMiddleware(tokens *auth.Tokens) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			user, err := tokens.Parse(token)
			if err != nil {
				logger.FromContext(r.Context()).Debug().Err(err).Msg("token rejected")
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), *user)))
		})
	}
}
