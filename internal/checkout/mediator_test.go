package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/payment"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *payment.Order {
	return &payment.Order{ProviderOrderID: "ord_1", Amount: money.Minor(46000), Currency: "INR"}
}

func newTestMediator(w Widget) *Mediator {
	m := NewMediator(w, "rzp_test_key", zerolog.Nop())
	m.timeout = time.Second
	return m
}

func TestCollect_Success(t *testing.T) {
	w := &fakeWidget{onOpen: paySuccessfully(testSecret)}
	r := newTestMediator(w).Collect(context.Background(), testOrder(), testUser())

	require.Equal(t, ResultSuccess, r.Kind)
	assert.Equal(t, "ord_1", r.ProviderOrderID)
	assert.Equal(t, "pay_1", r.PaymentID)
	assert.Equal(t, payment.Sign(testSecret, "ord_1", "pay_1"), r.Signature)
	assert.Zero(t, w.closedCount())
}

func TestCollect_Options(t *testing.T) {
	w := &fakeWidget{onOpen: func(_ Options, h Handlers) { h.OnDismiss() }}
	newTestMediator(w).Collect(context.Background(), testOrder(), testUser())

	assert.Equal(t, Options{
		Key:         "rzp_test_key",
		Amount:      46000,
		Currency:    "INR",
		OrderID:     "ord_1",
		Name:        "FoodExpress",
		Description: "Food Order Payment",
		Prefill:     Prefill{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"},
		ThemeColor:  "#3399cc",
	}, w.opts)
}

func TestCollect_Dismissed(t *testing.T) {
	w := &fakeWidget{onOpen: func(_ Options, h Handlers) { h.OnDismiss() }}
	r := newTestMediator(w).Collect(context.Background(), testOrder(), testUser())
	assert.Equal(t, ResultCancelled, r.Kind)
}

func TestCollect_TimeoutClosesWidget(t *testing.T) {
	w := &fakeWidget{}
	m := newTestMediator(w)
	m.timeout = 20 * time.Millisecond

	r := m.Collect(context.Background(), testOrder(), testUser())
	assert.Equal(t, ResultTimeout, r.Kind)
	assert.Equal(t, 1, w.closedCount())
}

func TestCollect_LateCallbacksAfterTimeoutAreIgnored(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	w := &fakeWidget{onOpen: func(o Options, h Handlers) {
		<-release
		paySuccessfully(testSecret)(o, h)
		h.OnDismiss()
		close(done)
	}}
	m := newTestMediator(w)
	m.timeout = 10 * time.Millisecond

	r := m.Collect(context.Background(), testOrder(), testUser())
	close(release)
	<-done
	assert.Equal(t, ResultTimeout, r.Kind)
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &fakeWidget{onOpen: func(Options, Handlers) { cancel() }}

	r := newTestMediator(w).Collect(ctx, testOrder(), testUser())
	assert.Equal(t, ResultFailed, r.Kind)
	assert.Equal(t, context.Canceled.Error(), r.Reason)
	assert.Equal(t, 1, w.closedCount())
}

func TestCollect_OpenErrorFailsImmediately(t *testing.T) {
	w := &fakeWidget{openErr: errors.New("widget unavailable")}
	m := newTestMediator(w)
	m.timeout = time.Hour

	start := time.Now()
	r := m.Collect(context.Background(), testOrder(), testUser())
	assert.Equal(t, ResultFailed, r.Kind)
	assert.Equal(t, "widget unavailable", r.Reason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCollect_LoadFailureToleratedAndRetried(t *testing.T) {
	w := &fakeWidget{
		loadErrs: []error{errors.New("script blocked")},
		onOpen:   func(_ Options, h Handlers) { h.OnDismiss() },
	}
	m := newTestMediator(w)

	for i := 0; i < 3; i++ {
		r := m.Collect(context.Background(), testOrder(), testUser())
		assert.Equal(t, ResultCancelled, r.Kind)
	}
	// failed once, succeeded once, cached afterwards
	assert.Equal(t, 2, w.loads)
}

// Success, dismiss and the timer fire concurrently; exactly one result is
// observed and it is one of the three.
func TestCollect_ResolvesExactlyOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		var fired sync.WaitGroup
		fired.Add(2)
		w := &fakeWidget{onOpen: func(o Options, h Handlers) {
			go func() { defer fired.Done(); paySuccessfully(testSecret)(o, h) }()
			go func() { defer fired.Done(); h.OnDismiss() }()
		}}
		m := newTestMediator(w)
		m.timeout = time.Microsecond

		r := m.Collect(context.Background(), testOrder(), testUser())
		fired.Wait()
		assert.Contains(t, []ResultKind{ResultSuccess, ResultCancelled, ResultTimeout}, r.Kind)
		if r.Kind == ResultSuccess {
			assert.Equal(t, "pay_1", r.PaymentID)
		} else {
			assert.Empty(t, r.PaymentID)
		}
	}
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "cancelled", ResultCancelled.String())
	assert.Equal(t, "timeout", ResultTimeout.String())
	assert.Equal(t, "failed", ResultFailed.String())
}
