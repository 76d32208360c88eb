package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/payment"
	"github.com/rs/zerolog"
)

const (
	DefaultWidgetTimeout = 5 * time.Minute

	merchantName       = "FoodExpress"
	paymentDescription = "Food Order Payment"
	themeColor         = "#3399cc"
)

type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultCancelled
	ResultTimeout
	ResultFailed
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultCancelled:
		return "cancelled"
	case ResultTimeout:
		return "timeout"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PaymentResult is produced exactly once per Collect call. The provider
// fields are only set for ResultSuccess, Reason only for ResultFailed.
type PaymentResult struct {
	Kind            ResultKind
	ProviderOrderID string
	PaymentID       string
	Signature       string
	Reason          string
}

type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Options is what the widget is opened with.
type Options struct {
	Key         string
	Amount      int64
	Currency    string
	OrderID     string
	Name        string
	Description string
	Prefill     Prefill
	ThemeColor  string
}

type SuccessResponse struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Handlers are invoked by the widget, possibly more than once and from any goroutine.
type Handlers struct {
	OnSuccess func(SuccessResponse)
	OnDismiss func()
}

type Handle interface {
	Close()
}

// Widget is the third-party checkout surface.
type Widget interface {
	Load(ctx context.Context) error
	Open(opts Options, h Handlers) (Handle, error)
}

type Mediator struct {
	widget  Widget
	key     string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	loaded bool
}

func NewMediator(widget Widget, publicKey string, log zerolog.Logger) *Mediator {
	return &Mediator{
		widget:  widget,
		key:     publicKey,
		timeout: DefaultWidgetTimeout,
		log:     log,
	}
}

// Collect opens the widget for order and waits for the first of success,
// dismissal, the timeout ceiling or ctx cancellation.
func (m *Mediator) Collect(ctx context.Context, order *payment.Order, user auth.User) PaymentResult {
	m.ensureLoaded(ctx)

	results := make(chan PaymentResult, 1)
	var once sync.Once
	resolve := func(r PaymentResult) {
		once.Do(func() { results <- r })
	}

	handle, err := m.widget.Open(m.options(order, user), Handlers{
		OnSuccess: func(resp SuccessResponse) {
			resolve(PaymentResult{
				Kind:            ResultSuccess,
				ProviderOrderID: resp.OrderID,
				PaymentID:       resp.PaymentID,
				Signature:       resp.Signature,
			})
		},
		OnDismiss: func() {
			resolve(PaymentResult{Kind: ResultCancelled})
		},
	})
	if err != nil {
		m.log.Error().Err(err).Str("provider_order_id", order.ProviderOrderID).Msg("failed to open payment widget")
		return PaymentResult{Kind: ResultFailed, Reason: err.Error()}
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		return r
	case <-timer.C:
		resolve(PaymentResult{Kind: ResultTimeout})
	case <-ctx.Done():
		resolve(PaymentResult{Kind: ResultFailed, Reason: ctx.Err().Error()})
	}

	// a widget callback may have won the race against the timer or ctx
	r := <-results
	if r.Kind != ResultSuccess {
		handle.Close()
	}
	if r.Kind == ResultTimeout {
		m.log.Warn().Str("provider_order_id", order.ProviderOrderID).Dur("after", m.timeout).Msg("payment widget timed out")
	}
	return r
}

func (m *Mediator) ensureLoaded(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return
	}
	if err := m.widget.Load(ctx); err != nil {
		m.log.Warn().Err(err).Msg("payment widget script failed to load")
		return
	}
	m.loaded = true
}

func (m *Mediator) options(order *payment.Order, user auth.User) Options {
	currency := order.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	return Options{
		Key:         m.key,
		Amount:      order.AmountMinor(),
		Currency:    currency,
		OrderID:     order.ProviderOrderID,
		Name:        merchantName,
		Description: paymentDescription,
		Prefill: Prefill{
			Name:    user.Name,
			Email:   user.Email,
			Contact: user.Phone,
		},
		ThemeColor: themeColor,
	}
}
