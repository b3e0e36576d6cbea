package models

import "time"

// Owner is the farmer a product was listed by.
type Owner struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Review is a buyer's rating of a product.
type Review struct {
	User      string    `json:"name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Product represents a listing in the catalogue.
type Product struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Quantity    float64  `json:"quantity,omitempty"` // listed amount in kg
	ImageURL    string   `json:"imageUrl,omitempty"`
	CreatedBy   *Owner   `json:"createdBy,omitempty"`
	Reviews     []Review `json:"reviews,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.Stock > 0 }

// ProductInput is the body of the create and update product calls.
type ProductInput struct {
	Name        string  `json:"name"        validate:"required,max=120"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price"       validate:"required,gt=0"`
	Quantity    float64 `json:"quantity"    validate:"required,gt=0"`
	ImageURL    string  `json:"imageUrl"    validate:"nullable,url"`
}

// ReviewInput is the body of the add review call.
type ReviewInput struct {
	Rating  int    `json:"rating"  validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}
