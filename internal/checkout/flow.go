package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/cart"
	"github.com/fjod/go_food/internal/notify"
	"github.com/fjod/go_food/internal/payment"
	"github.com/fjod/go_food/internal/pricing"
	"github.com/rs/zerolog"
)

type FlowConfig struct {
	Backend     Backend
	Widget      Widget
	Session     *auth.Session
	Cart        *cart.Store
	Notifier    notify.Notifier
	Logger      zerolog.Logger
	PublicKey   string
	CallTimeout time.Duration
}

// Result describes how one attempt ended. The Flow itself is back in Idle by
// the time a Result is returned.
type Result struct {
	State        State
	OrderID      string
	Breakdown    pricing.Breakdown
	PaymentOrder *payment.Order
	Proof        *PaymentProof
}

type pendingCommit struct {
	state cart.State
	user  auth.User
	proof PaymentProof
}

// Flow chains Initiator, Mediator, verification and Committer for one cart.
// Only one attempt runs at a time.
type Flow struct {
	backend   Backend
	session   *auth.Session
	cart      *cart.Store
	initiator *Initiator
	mediator  *Mediator
	committer *Committer
	notifier  notify.Notifier
	timeout   time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	busy    bool
	state   State
	banner  string
	pending *pendingCommit
}

func NewFlow(cfg FlowConfig) *Flow {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	f := &Flow{
		backend:   cfg.Backend,
		session:   cfg.Session,
		cart:      cfg.Cart,
		initiator: NewInitiator(cfg.Backend, timeout),
		mediator:  NewMediator(cfg.Widget, cfg.PublicKey, cfg.Logger),
		committer: NewCommitter(cfg.Backend, cfg.Cart, notifier, timeout, cfg.Logger),
		notifier:  notifier,
		timeout:   timeout,
		log:       cfg.Logger,
		state:     StateIdle,
	}
	cfg.Session.OnLogout(func() {
		cfg.Cart.Reset()
		f.mu.Lock()
		f.pending = nil
		f.banner = ""
		f.mu.Unlock()
	})
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Banner is the inline message left by the last failed attempt.
func (f *Flow) Banner() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banner
}

func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// CanRetryCommit reports whether a verified payment is waiting for its order.
func (f *Flow) CanRetryCommit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

// Checkout runs one settlement attempt for the current cart. Cancellation by
// the user is returned as a StatePaymentCancelled result with a nil error.
func (f *Flow) Checkout(ctx context.Context) (Result, error) {
	if err := f.acquire(); err != nil {
		return Result{State: StateIdle}, err
	}
	defer f.release()

	user, ok := f.session.User()
	if !ok || !f.session.IsAuthenticated() {
		return Result{State: StateIdle}, ErrNotAuthenticated
	}
	snapshot := f.cart.State()
	if snapshot.IsEmpty() {
		return Result{State: StateIdle}, ErrEmptyCart
	}

	res := Result{Breakdown: pricing.ComputeBreakdown(snapshot.Total)}
	log := f.log.With().Str("user_id", user.ID).Str("grand_total", res.Breakdown.GrandTotal.String()).Logger()

	order, err := f.initiator.CreatePaymentOrder(ctx, res.Breakdown.GrandTotal)
	if err != nil {
		log.Error().Err(err).Msg("failed to create payment order")
		return f.fail(res, StatePaymentFailed, userMessage(err), err)
	}
	res.PaymentOrder = order
	f.transition(StateOrderCreated)
	log = log.With().Str("provider_order_id", order.ProviderOrderID).Logger()

	collected := f.mediator.Collect(ctx, order, user)
	switch collected.Kind {
	case ResultCancelled:
		log.Info().Msg("payment cancelled by user")
		res, _ = f.fail(res, StatePaymentCancelled, "Payment cancelled", nil)
		return res, nil
	case ResultTimeout:
		return f.fail(res, StatePaymentTimeout, "Payment timeout", apperr.ErrTimeoutExceeded)
	case ResultFailed:
		reason := collected.Reason
		if reason == "" {
			reason = "Payment failed or was cancelled"
		}
		return f.fail(res, StatePaymentFailed, reason, fmt.Errorf("%w: %s", apperr.ErrProvider, reason))
	}
	f.transition(StatePaymentSuccess)

	f.transition(StateVerifying)
	// the proof always names the order created above
	if collected.ProviderOrderID != "" && collected.ProviderOrderID != order.ProviderOrderID {
		log.Warn().Str("widget_order_id", collected.ProviderOrderID).Msg("widget reported a different provider order")
		return f.fail(res, StateVerificationFailed, "Payment verification failed",
			fmt.Errorf("%w: payment is for order %s", apperr.ErrAuthenticity, collected.ProviderOrderID))
	}
	collected.ProviderOrderID = order.ProviderOrderID
	outcome, err := f.verify(ctx, collected)
	if err != nil {
		log.Error().Err(err).Msg("payment verification request failed")
		return f.fail(res, StateVerificationFailed, "Error verifying payment", err)
	}
	if outcome != payment.Verified {
		log.Warn().Str("outcome", outcome.String()).Msg("payment rejected by verification")
		verr := apperr.ErrAuthenticity
		if outcome == payment.MissingFields {
			verr = apperr.ErrValidation
		}
		return f.fail(res, StateVerificationFailed, "Payment verification failed",
			fmt.Errorf("%w: %s", verr, outcome))
	}

	proof := PaymentProof{
		ProviderOrderID: collected.ProviderOrderID,
		PaymentID:       collected.PaymentID,
		Signature:       collected.Signature,
		Outcome:         outcome,
	}
	res.Proof = &proof
	return f.commit(ctx, res, pendingCommit{state: snapshot, user: user, proof: proof})
}

// RetryCommit replays the last verified payment against the Committer after
// a failed commit. Nothing is re-charged or re-verified.
func (f *Flow) RetryCommit(ctx context.Context) (Result, error) {
	if err := f.acquire(); err != nil {
		return Result{State: StateIdle}, err
	}
	defer f.release()

	f.mu.Lock()
	p := f.pending
	f.mu.Unlock()
	if p == nil {
		return Result{State: StateIdle}, ErrNothingToRetry
	}

	proof := p.proof
	res := Result{Breakdown: pricing.ComputeBreakdown(p.state.Total), Proof: &proof}
	f.transition(StateVerifying)
	return f.commit(ctx, res, *p)
}

func (f *Flow) commit(ctx context.Context, res Result, p pendingCommit) (Result, error) {
	id, err := f.committer.PlaceOrder(ctx, p.state, p.user, p.proof)
	if err != nil {
		f.log.Error().Err(err).
			Str("provider_order_id", p.proof.ProviderOrderID).
			Str("payment_id", p.proof.PaymentID).
			Msg("verified payment has no recorded order")
		f.mu.Lock()
		if !errors.Is(err, apperr.ErrValidation) {
			f.pending = &p
		}
		f.banner = userMessage(err)
		f.mu.Unlock()
		f.transition(StateCommitFailed)
		res.State = StateCommitFailed
		return res, err
	}

	f.mu.Lock()
	f.pending = nil
	f.banner = ""
	f.mu.Unlock()
	f.transition(StateCommitted)
	f.log.Info().Str("order_id", id).Str("provider_order_id", p.proof.ProviderOrderID).Msg("order committed")

	res.State = StateCommitted
	res.OrderID = id
	return res, nil
}

func (f *Flow) verify(ctx context.Context, r PaymentResult) (payment.Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.backend.VerifyPayment(callCtx, r.ProviderOrderID, r.PaymentID, r.Signature)
}

// fail ends the attempt in a non-committed state. The cart is left untouched.
func (f *Flow) fail(res Result, state State, message string, err error) (Result, error) {
	f.transition(state)
	f.mu.Lock()
	f.banner = message
	f.mu.Unlock()
	f.notifier.Notify(notify.Notification{
		Title:   "Payment Failed",
		Message: message,
		Variant: notify.VariantDanger,
	})
	res.State = state
	return res, err
}

func (f *Flow) acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrCheckoutInProgress
	}
	f.busy = true
	f.banner = ""
	return nil
}

func (f *Flow) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.state = StateIdle
}

func (f *Flow) transition(next State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !CanTransitionTo(f.state, next) {
		f.log.Error().Err(ErrIllegalTransition).Str("from", f.state.String()).Str("to", next.String()).Send()
		return
	}
	f.state = next
}
