package models

// CartItem is one line of the cart. Stock is the availability captured when
// the product was first added and only limits client-side increments.
type CartItem struct {
	ProductID   string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Subtotal is price × quantity.
func (c CartItem) Subtotal() float64 { return c.Price * float64(c.Quantity) }

// CartTotal sums the subtotals of items.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
