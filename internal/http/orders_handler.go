package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrdersService interface {
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	ListMyOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersService
	timeout time.Duration
}

func NewOrdersHandler(orders OrdersService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := getUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req api.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order := &domain.Order{
		UserID:              user.ID,
		RestaurantID:        req.Restaurant,
		Items:               make([]domain.LineItem, 0, len(req.Items)),
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: req.SpecialInstructions,
		PaymentStatus:       domain.PaymentStatus(req.PaymentStatus),
		PaymentID:           req.PaymentID,
		ProviderOrderID:     req.RazorpayOrderID,
		TotalAmount:         req.TotalAmount,
	}
	if order.DeliveryAddress == "" {
		order.DeliveryAddress = user.Address
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, domain.LineItem{
			FoodItemID: it.FoodItem,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      it.Price,
		})
	}

	placed, err := h.orders.PlaceOrder(ctx, order)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, api.CreateOrderResponse{ID: placed.ID.String()})
}

// GET /api/orders/my-orders
func (h *OrdersHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := getUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListMyOrders(ctx, user.ID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	dtos := make([]api.Order, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := getUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.orders.GetOrder(ctx, user.ID, orderID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

func convertOrder(o *domain.Order) api.Order {
	items := make([]api.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, api.LineItem{
			FoodItem: it.FoodItemID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}
	return api.Order{
		ID:                  o.ID.String(),
		Restaurant:          o.RestaurantID,
		Items:               items,
		DeliveryAddress:     o.DeliveryAddress,
		SpecialInstructions: o.SpecialInstructions,
		PaymentStatus:       string(o.PaymentStatus),
		PaymentID:           o.PaymentID,
		RazorpayOrderID:     o.ProviderOrderID,
		TotalAmount:         o.TotalAmount,
		CreatedAt:           o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
