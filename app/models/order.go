package models

import (
	"fmt"
	"time"
)

// OrderStatus is the tracking state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// TrackableStatuses are the values a farmer or admin may set.
var TrackableStatuses = []OrderStatus{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseTrackingStatus accepts one of TrackableStatuses.
func ParseTrackingStatus(s string) (OrderStatus, error) {
	for _, st := range TrackableStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q (allowed: Processing, Shipped, Delivered, Cancelled)", s)
}

// OrderItem is a product line of a recorded order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// TrackingEntry is one status change in an order's history.
type TrackingEntry struct {
	Status OrderStatus `json:"status"`
	Date   time.Time   `json:"date"`
}

// Order is a durable order record owned by the API server.
type Order struct {
	ID              string          `json:"_id"`
	Buyer           *Owner          `json:"buyer,omitempty"`
	Products        []OrderItem     `json:"products"`
	TotalAmount     float64         `json:"totalAmount"`
	PaymentID       string          `json:"paymentId"`
	Status          OrderStatus     `json:"status"`
	TrackingHistory []TrackingEntry `json:"trackingHistory,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderRequest is the body of the order submission call.
type OrderRequest struct {
	Cart      []CartItem `json:"cart"`
	Total     float64    `json:"total"`
	PaymentID string     `json:"paymentId"`
}

// PaymentOrder is the payment intent issued for the hosted widget. Amount is
// in the gateway's minor unit as returned by the server.
type PaymentOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}
