package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/fjod/go_food/internal/payment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type paymentsMock struct {
	order      *payment.Order
	createErr  error
	outcome    payment.Outcome
	verifyErr  error
	lastAmount int64
}

func (m *paymentsMock) CreateOrder(_ context.Context, amount int64, currency string) (*payment.Order, error) {
	m.lastAmount = amount
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.order, nil
}

func (m *paymentsMock) VerifyPayment(context.Context, string, string, string) (payment.Outcome, error) {
	return m.outcome, m.verifyErr
}

type ordersMock struct {
	placed  *domain.Order
	err     error
	orders  []*domain.Order
	lastReq *domain.Order
}

func (m *ordersMock) PlaceOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	m.lastReq = o
	if m.err != nil {
		return nil, m.err
	}
	o.ID = uuid.MustParse("7f1d1c1e-9a55-4f3e-9d8b-0c3a4c1e2f10")
	return o, nil
}

func (m *ordersMock) ListMyOrders(context.Context, string) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *ordersMock) GetOrder(_ context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id && o.UserID == userID {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
}

// --- helpers ---

var testUser = auth.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Address: "12 MG Road"}

type testServer struct {
	handler  http.Handler
	token    string
	payments *paymentsMock
	orders   *ordersMock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := auth.NewTokens("jwt-secret", time.Hour)
	tok, err := tokens.Issue(testUser)
	require.NoError(t, err)

	ts := &testServer{
		token:    tok,
		payments: &paymentsMock{},
		orders:   &ordersMock{},
	}
	ts.handler = NewRouter(RouterConfig{
		Payments:           ts.payments,
		Orders:             ts.orders,
		Tokens:             tokens,
		Logger:             zerolog.Nop(),
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		FrontendURL:        "https://food.example.com",
	})
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// --- Health / auth / CORS ---

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	rec := ts.do(http.MethodGet, api.PathHealth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.HealthResponse](t, rec)
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "Server is running", resp.Message)
	assert.NotEmpty(t, resp.Timestamp)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	ts.token = ""
	rec := ts.do(http.MethodGet, api.PathMyOrders, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.token = "garbage"
	rec = ts.do(http.MethodGet, api.PathMyOrders, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[api.ErrorResponse](t, rec).Code)
}

func TestRequestID_Propagated(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, api.PathHealth, nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:3000", true},
		{"https://food.example.com", true},
		{"https://food-git-main.vercel.app", true},
		{"https://evil.example.org", false},
		{"https://vercel.app.evil.org", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, api.PathCreatePaymentOrder, nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.Equal(t, tt.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

// --- Payment ---

func TestCreatePaymentOrder_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.order = &payment.Order{
		ProviderOrderID: "order_1", Amount: money.Minor(46000), Currency: "INR", Receipt: "receipt_1", Status: "created",
	}

	rec := ts.do(http.MethodPost, api.PathCreatePaymentOrder, api.CreatePaymentOrderRequest{Amount: 46000, Currency: "INR"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.PaymentOrderResponse](t, rec)
	assert.Equal(t, "order_1", resp.ProviderOrderID)
	assert.Equal(t, int64(46000), resp.Amount)
	assert.Equal(t, "receipt_1", resp.Receipt)
	assert.Equal(t, int64(46000), ts.payments.lastAmount)
}

func TestCreatePaymentOrder_InvalidAmount(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`{"amount":0}`, `{"amount":-5}`, `{"amount":460.5}`, `not json`} {
		rec := ts.do(http.MethodPost, api.PathCreatePaymentOrder, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreatePaymentOrder_ProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.createErr = fmt.Errorf("%w: connection refused", apperr.ErrProvider)

	rec := ts.do(http.MethodPost, api.PathCreatePaymentOrder, api.CreatePaymentOrderRequest{Amount: 100})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[api.PaymentErrorResponse](t, rec)
	assert.Equal(t, "Error creating order", resp.Message)
	assert.Equal(t, "provider_error", resp.Code)
	assert.Contains(t, resp.Error, "connection refused")
}

func TestVerifyPayment_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome payment.Outcome
		err     error
		status  int
		success bool
		code    string
		message string
	}{
		{"verified", payment.Verified, nil, http.StatusOK, true, "", "Payment verified successfully"},
		{"missing", payment.MissingFields, nil, http.StatusBadRequest, false, api.CodeMissingFields, "Missing required fields: order_id, payment_id, or signature"},
		{"mismatch", payment.SignatureMismatch, nil, http.StatusBadRequest, false, api.CodeSignatureMismatch, "Payment verification failed"},
		{"ledger error", payment.Verified, errors.New("redis down"), http.StatusInternalServerError, false, "internal", "Error verifying payment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.payments.outcome = tt.outcome
			ts.payments.verifyErr = tt.err

			rec := ts.do(http.MethodPost, api.PathVerifyPayment, api.VerifyPaymentRequest{OrderID: "o", PaymentID: "p", Signature: "s"})
			require.Equal(t, tt.status, rec.Code)
			resp := decode[api.VerifyPaymentResponse](t, rec)
			assert.Equal(t, tt.success, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

// --- Orders ---

func orderRequest() api.OrderRequest {
	return api.OrderRequest{
		Restaurant: "r1",
		Items: []api.LineItem{
			{FoodItem: "f1", Quantity: 2, Price: money.MajorFromInt(200)},
		},
		PaymentStatus:   "paid",
		PaymentID:       "pay_1",
		RazorpayOrderID: "order_1",
		TotalAmount:     money.MajorFromInt(460),
	}
}

func TestCreateOrder_Created(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, api.PathOrders, orderRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "7f1d1c1e-9a55-4f3e-9d8b-0c3a4c1e2f10", decode[api.CreateOrderResponse](t, rec).ID)

	got := ts.orders.lastReq
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "12 MG Road", got.DeliveryAddress, "falls back to profile address")
	assert.Equal(t, "order_1", got.ProviderOrderID)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.True(t, got.TotalAmount.Equal(money.MajorFromInt(460)))
	assert.True(t, got.Items[0].Price.Equal(money.MajorFromInt(200)))
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: no items", apperr.ErrValidation), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: order_1", apperr.ErrNotVerified), http.StatusPaymentRequired, "payment_not_verified"},
		{fmt.Errorf("%w: order_1", apperr.ErrDuplicate), http.StatusConflict, "duplicate"},
		{fmt.Errorf("%w: pq: connection refused", apperr.ErrPersistence), http.StatusInternalServerError, "persistence_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ts := newTestServer(t)
			ts.orders.err = tt.err

			rec := ts.do(http.MethodPost, api.PathOrders, orderRequest())
			require.Equal(t, tt.status, rec.Code)
			resp := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Error, "pq:", "server errors must not leak causes")
		})
	}
}

func TestListMyOrders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, api.PathMyOrders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	ts.orders.orders = []*domain.Order{{
		ID: uuid.New(), UserID: "user-1", RestaurantID: "r1",
		Items:         []domain.LineItem{{FoodItemID: "f1", Quantity: 1, Price: money.MajorFromFloat(45.5)}},
		PaymentStatus: domain.PaymentStatusPaid, PaymentID: "pay_1", ProviderOrderID: "order_1",
		TotalAmount: money.MajorFromFloat(87.78), CreatedAt: time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
	}}
	rec = ts.do(http.MethodGet, api.PathMyOrders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]api.Order](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, "order_1", orders[0].RazorpayOrderID)
	assert.Equal(t, "2026-02-12T10:00:00Z", orders[0].CreatedAt)
	assert.True(t, orders[0].TotalAmount.Equal(money.MajorFromFloat(87.78)))
}

func TestGetOrder(t *testing.T) {
	ts := newTestServer(t)
	mine := &domain.Order{ID: uuid.New(), UserID: "user-1", RestaurantID: "r1", TotalAmount: money.MajorFromInt(1)}
	theirs := &domain.Order{ID: uuid.New(), UserID: "user-2", RestaurantID: "r1", TotalAmount: money.MajorFromInt(1)}
	ts.orders.orders = []*domain.Order{mine, theirs}

	rec := ts.do(http.MethodGet, api.PathOrders+"/"+mine.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mine.ID.String(), decode[api.Order](t, rec).ID)

	rec = ts.do(http.MethodGet, api.PathOrders+"/"+theirs.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, api.PathOrders+"/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
