// Package client is the storefront's HTTP client for the food API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/payment"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client attaches the session's bearer token to every call.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session
}

func New(baseURL string, session *auth.Session, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		session: session,
	}
}

func (c *Client) CreatePaymentOrder(ctx context.Context, amountMinor int64, currency string) (*payment.Order, error) {
	var resp api.PaymentOrderResponse
	status, err := c.do(ctx, http.MethodPost, api.PathCreatePaymentOrder,
		api.CreatePaymentOrderRequest{Amount: amountMinor, Currency: currency}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("create payment order: unexpected status %d", status)
	}
	return &payment.Order{
		ProviderOrderID: resp.ProviderOrderID,
		Amount:          money.Minor(resp.Amount),
		Currency:        resp.Currency,
		Receipt:         resp.Receipt,
		Status:          resp.Status,
	}, nil
}

// VerifyPayment maps the backend answer onto an Outcome. Rejections are
// outcomes, not errors.
func (c *Client) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (payment.Outcome, error) {
	var resp api.VerifyPaymentResponse
	_, err := c.do(ctx, http.MethodPost, api.PathVerifyPayment,
		api.VerifyPaymentRequest{OrderID: orderID, PaymentID: paymentID, Signature: signature}, &resp)

	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
		switch se.Code {
		case api.CodeMissingFields:
			return payment.MissingFields, nil
		case api.CodeSignatureMismatch:
			return payment.SignatureMismatch, nil
		}
	}
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return payment.SignatureMismatch, nil
	}
	return payment.Verified, nil
}

// CreateOrder returns the new order id.
func (c *Client) CreateOrder(ctx context.Context, order api.OrderRequest) (string, error) {
	var resp api.CreateOrderResponse
	if _, err := c.do(ctx, http.MethodPost, api.PathOrders, order, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) ListMyOrders(ctx context.Context) ([]api.Order, error) {
	var resp []api.Order
	if _, err := c.do(ctx, http.MethodGet, api.PathMyOrders, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	var resp api.Order
	if _, err := c.do(ctx, http.MethodGet, api.PathOrders+"/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if tok := c.session.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, newStatusError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
