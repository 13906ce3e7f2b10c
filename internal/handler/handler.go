// Package handler exposes the order engine and the cart over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/order"
)

// OrderService is the order engine surface used by the handlers.
type OrderService interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error)
	UpdateLifecycle(ctx context.Context, u order.LifecycleUpdate) (*order.View, error)
	View(ctx context.Context, q order.ViewQuery) (*order.View, error)
}

// CartService is the cart surface used by the handlers.
type CartService interface {
	Get(ctx context.Context, customerID int64) (*cart.Cart, error)
	AddItem(ctx context.Context, customerID, vendorID int64, k cart.Key, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, customerID int64, k cart.Key, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, customerID int64, k cart.Key) (*cart.Cart, error)
	Clear(ctx context.Context, customerID int64) error
	MergeGuest(ctx context.Context, customerID int64, guest cart.Cart) (*cart.Cart, error)
}

var (
	_ OrderService = (*order.Service)(nil)
	_ CartService  = (*cart.Service)(nil)
)

// Handler serves the /api routes.
type Handler struct {
	orders OrderService
	carts  CartService
}

// New constructs a Handler.
func New(orders OrderService, carts CartService) *Handler {
	return &Handler{orders: orders, carts: carts}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", h.UpdateOrder)

	mux.HandleFunc("GET /api/carts/{customer_id}", h.GetCart)
	mux.HandleFunc("DELETE /api/carts/{customer_id}", h.ClearCart)
	mux.HandleFunc("POST /api/carts/{customer_id}/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/carts/{customer_id}/items", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/carts/{customer_id}/items", h.RemoveCartItem)
	mux.HandleFunc("POST /api/carts/{customer_id}/merge", h.MergeCart)
}
