// Package circuitbreaker wraps sony/gobreaker with the defaults used for
// outbound calls. A breaker never retries; when open it fails fast.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// ConsecutiveFailures trips the breaker. Defaults to 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a half-open probe. Defaults to 30s.
	OpenTimeout time.Duration
	// IsSuccessful classifies errors that should not count as failures (e.g. validation).
	IsSuccessful func(err error) bool
	Logger       *zerolog.Logger
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](s Settings) *Breaker[T] {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}
	log := zerolog.Nop()
	if s.Logger != nil {
		log = *s.Logger
	}
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		IsSuccessful: s.IsSuccessful,
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn through the breaker. Rejections are reported as ErrOpen.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrOpen
	}
	return res, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
