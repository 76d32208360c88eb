package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_food/internal/money"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
}

// Provider opens payment orders at the payment provider.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// RazorpayClient is a minimal client for the Razorpay orders API.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createOrderBody struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	payload, err := json.Marshal(createOrderBody{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create provider order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := &ProviderError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			pe.Code = er.Error.Code
			pe.Description = er.Error.Description
		}
		return nil, pe
	}

	var out orderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode provider order: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("provider order has no id")
	}

	return &Order{
		ProviderOrderID: out.ID,
		Amount:          money.Minor(out.Amount),
		Currency:        out.Currency,
		Receipt:         out.Receipt,
		Status:          out.Status,
	}, nil
}
