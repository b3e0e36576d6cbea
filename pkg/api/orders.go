package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
)

// IdempotencyHeader carries the key the server uses to deduplicate order
// submissions.
const IdempotencyHeader = "Idempotency-Key"

// CreatePaymentOrder asks the server for a payment intent covering amount
// (major currency units).
func (c *Client) CreatePaymentOrder(ctx context.Context, amount float64) (*models.PaymentOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("api: create payment order: amount must be positive, got %v", amount)
	}
	var out models.PaymentOrder
	body := map[string]float64{"amount": amount}
	if err := c.post("/api/payment/create-order").Body(body).JSON(ctx, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &Error{Method: "POST", Path: "/api/payment/create-order", Status: 200, Message: "response carried no order id"}
	}
	return &out, nil
}

// CreateOrder records a paid order. Resubmitting with the same
// idempotencyKey must not create a second order.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.Order, error) {
	r := c.post("/api/orders").Authenticated().Body(req)
	if idempotencyKey != "" {
		r.Header(IdempotencyHeader, idempotencyKey)
	}
	var out models.Order
	if err := r.JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyOrders returns the buyer's order history.
func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.get("/api/orders/my").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FarmerOrders returns orders containing the farmer's products.
func (c *Client) FarmerOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.get("/api/orders/farmer").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder returns one order with its tracking history.
func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var out models.Order
	if err := c.get("/api/orders/" + url.PathEscape(id)).Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTracking moves an order to status. Only Processing, Shipped,
// Delivered and Cancelled are accepted; anything else fails before the call.
func (c *Client) UpdateTracking(ctx context.Context, id string, status string) (*models.Order, error) {
	st, err := models.ParseTrackingStatus(status)
	if err != nil {
		return nil, fmt.Errorf("api: update tracking: %w", err)
	}
	var out struct {
		Order models.Order `json:"order"`
	}
	body := map[string]models.OrderStatus{"status": st}
	if err := c.patch("/api/orders/" + url.PathEscape(id) + "/track").Authenticated().Body(body).JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// Invoice downloads the PDF invoice of an order.
func (c *Client) Invoice(ctx context.Context, id string) ([]byte, error) {
	return c.get("/api/orders/"+url.PathEscape(id)+"/invoice").
		Header("Accept", "application/pdf").
		Authenticated().
		Send(ctx)
}
