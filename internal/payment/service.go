package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/pkg/circuitbreaker"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/rs/zerolog"
)

// Ledger remembers which provider orders passed signature verification so
// the order endpoint can refuse unverified commits.
type Ledger interface {
	MarkVerified(ctx context.Context, providerOrderID, paymentID string) error
	IsVerified(ctx context.Context, providerOrderID, paymentID string) (bool, error)
}

type Service struct {
	provider Provider
	breaker  *circuitbreaker.Breaker[*Order]
	verifier *Verifier
	ledger   Ledger
	now      func() time.Time
}

func NewService(provider Provider, verifier *Verifier, ledger Ledger, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		breaker: circuitbreaker.New[*Order](circuitbreaker.Settings{
			Name:         "payment-provider",
			IsSuccessful: isClientError,
			Logger:       &log,
		}),
		verifier: verifier,
		ledger:   ledger,
		now:      time.Now,
	}
}

// A rejected request says nothing about provider health.
func isClientError(err error) bool {
	if err == nil {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500
}

// CreateOrder opens a provider order for amountMinor paise. The receipt is
// receipt_<unix millis>.
func (s *Service) CreateOrder(ctx context.Context, amountMinor int64, currency string) (*Order, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer in minor units, got %d", apperr.ErrValidation, amountMinor)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	req := OrderRequest{
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     fmt.Sprintf("receipt_%d", s.now().UnixMilli()),
	}

	order, err := s.breaker.Execute(func() (*Order, error) {
		return s.provider.CreateOrder(ctx, req)
	})
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("amount", amountMinor).Msg("provider order creation failed")
		return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}

	got, err := order.Amount.MinorUnits()
	if err != nil {
		return nil, fmt.Errorf("%w: provider order amount: %v", apperr.ErrProvider, err)
	}
	if got != amountMinor {
		return nil, fmt.Errorf("%w: provider order amount %d, requested %d", apperr.ErrProvider, got, amountMinor)
	}

	logger.FromContext(ctx).Info().
		Str("provider_order_id", order.ProviderOrderID).
		Int64("amount", amountMinor).
		Str("receipt", order.Receipt).
		Msg("provider order created")
	return order, nil
}

// VerifyPayment recomputes the signature. A verified payment is recorded in
// the ledger; a ledger failure is returned alongside the Verified outcome.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (Outcome, error) {
	outcome := s.verifier.Verify(orderID, paymentID, signature)
	log := logger.FromContext(ctx).With().
		Str("provider_order_id", orderID).
		Str("payment_id", paymentID).
		Str("outcome", outcome.String()).
		Logger()

	if outcome != Verified {
		log.Warn().Msg("payment verification rejected")
		return outcome, nil
	}

	if s.ledger != nil {
		if err := s.ledger.MarkVerified(ctx, orderID, paymentID); err != nil {
			log.Error().Err(err).Msg("failed to record verified payment")
			return outcome, fmt.Errorf("record verified payment: %w", err)
		}
	}
	log.Info().Msg("payment verified")
	return outcome, nil
}

// IsVerified reports whether the pair passed VerifyPayment. Without a ledger
// every pair is accepted.
func (s *Service) IsVerified(ctx context.Context, orderID, paymentID string) (bool, error) {
	if s.ledger == nil {
		return true, nil
	}
	return s.ledger.IsVerified(ctx, orderID, paymentID)
}
