package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/cart"
	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/payment"
	"github.com/stretchr/testify/require"
)

const testSecret = "rzp_test_secret"

// fakeBackend echoes payment orders, verifies with a real Verifier and
// records every order it is asked to create.
type fakeBackend struct {
	mu          sync.Mutex
	verifier    *payment.Verifier
	createErr   error
	verifyErr   error
	orderErrs   []error
	paymentReqs []int64
	verifies    int
	orders      []api.OrderRequest
	echoAmount  func(int64) int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{verifier: payment.NewVerifier(testSecret)}
}

func (b *fakeBackend) CreatePaymentOrder(_ context.Context, amountMinor int64, currency string) (*payment.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paymentReqs = append(b.paymentReqs, amountMinor)
	if b.createErr != nil {
		return nil, b.createErr
	}
	echoed := amountMinor
	if b.echoAmount != nil {
		echoed = b.echoAmount(amountMinor)
	}
	return &payment.Order{
		ProviderOrderID: "ord_1",
		Amount:          money.Minor(echoed),
		Currency:        currency,
		Receipt:         "receipt_1",
		Status:          "created",
	}, nil
}

func (b *fakeBackend) VerifyPayment(_ context.Context, orderID, paymentID, signature string) (payment.Outcome, error) {
	b.mu.Lock()
	b.verifies++
	b.mu.Unlock()
	if b.verifyErr != nil {
		return "", b.verifyErr
	}
	return b.verifier.Verify(orderID, paymentID, signature), nil
}

// CreateOrder fails with the queued errors first, then succeeds.
func (b *fakeBackend) CreateOrder(_ context.Context, order api.OrderRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, order)
	if len(b.orderErrs) > 0 {
		err := b.orderErrs[0]
		b.orderErrs = b.orderErrs[1:]
		return "", err
	}
	return "order-1", nil
}

func (b *fakeBackend) verifyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.verifies
}

func (b *fakeBackend) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

type handleFunc func()

func (f handleFunc) Close() { f() }

// fakeWidget runs onOpen in its own goroutine, the way a real widget calls back later.
type fakeWidget struct {
	mu       sync.Mutex
	loadErrs []error
	loads    int
	openErr  error
	opts     Options
	closed   int
	onOpen   func(Options, Handlers)
}

func (w *fakeWidget) Load(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loads++
	if len(w.loadErrs) > 0 {
		err := w.loadErrs[0]
		w.loadErrs = w.loadErrs[1:]
		return err
	}
	return nil
}

func (w *fakeWidget) Open(opts Options, h Handlers) (Handle, error) {
	w.mu.Lock()
	w.opts = opts
	onOpen := w.onOpen
	err := w.openErr
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if onOpen != nil {
		go onOpen(opts, h)
	}
	return handleFunc(func() {
		w.mu.Lock()
		w.closed++
		w.mu.Unlock()
	}), nil
}

func (w *fakeWidget) closedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func paySuccessfully(secret string) func(Options, Handlers) {
	return func(o Options, h Handlers) {
		h.OnSuccess(SuccessResponse{
			OrderID:   o.OrderID,
			PaymentID: "pay_1",
			Signature: payment.Sign(secret, o.OrderID, "pay_1"),
		})
	}
}

func testUser() auth.User {
	return auth.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Phone: "9999999999", Address: "12 MG Road"}
}

func loggedIn(t *testing.T) *auth.Session {
	t.Helper()
	s := auth.NewSession(&auth.MemoryStore{})
	require.NoError(t, s.Login(context.Background(), "token", testUser()))
	return s
}

// cartWithPizzas holds [{id:"a", price:200, qty:2}].
func cartWithPizzas(t *testing.T) *cart.Store {
	t.Helper()
	s := cart.NewStore(nil)
	item := cart.Item{ID: "a", Name: "Margherita", UnitPrice: money.MajorFromInt(200), RestaurantID: "r1"}
	require.NoError(t, s.AddItem(item))
	require.NoError(t, s.AddItem(item))
	return s
}
