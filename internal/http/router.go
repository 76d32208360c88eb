package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Payments           PaymentService
	Orders             OrdersService
	Tokens             *auth.Tokens
	Logger             zerolog.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	FrontendURL        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	paymentHandler := NewPaymentHandler(cfg.Payments, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowedOrigin(cfg.FrontendURL),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", headerRequestID},
		ExposedHeaders:   []string{headerRequestID},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get(api.PathHealth, Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Post(api.PathCreatePaymentOrder, paymentHandler.CreateOrder)
		r.Post(api.PathVerifyPayment, paymentHandler.VerifyPayment)

		r.Route(api.PathOrders, func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/my-orders", ordersHandler.ListMyOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
		})
	})

	return otelhttp.NewHandler(r, "food-api")
}

// allowedOrigin admits local development, the configured frontend and
// Vercel preview deployments.
func allowedOrigin(frontendURL string) func(r *http.Request, origin string) bool {
	frontendURL = strings.TrimRight(frontendURL, "/")
	return func(_ *http.Request, origin string) bool {
		if origin == "http://localhost:3000" || (frontendURL != "" && origin == frontendURL) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Scheme == "https" && strings.HasSuffix(u.Hostname(), ".vercel.app")
	}
}

// GET /api/health
func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
