package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, middleware.RequestIDKey, id)
}

func getUserFromContext(ctx context.Context) (auth.User, bool) {
	u, ok := auth.UserFromContext(ctx)
	if !ok || u.ID == "" {
		return auth.User{}, false
	}
	return u, true
}

func loggerFrom(r *http.Request) *zerolog.Logger {
	return logger.FromContext(r.Context())
}
