package api

import (
	"context"
	"net/url"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/validate"
)

// ListProducts returns the public catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.get("/api/products").JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct returns one product with its reviews.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var out models.Product
	if err := c.get("/api/products/" + url.PathEscape(id)).JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyProducts returns the listings of the logged-in farmer.
func (c *Client) MyProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.get("/api/products/my").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProduct lists a new product. The input is validated locally first.
func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if errs := validate.Check(in); errs != nil {
		return nil, errs
	}
	var out models.Product
	if err := c.post("/api/products").Authenticated().Body(in).JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct replaces the editable fields of a listing.
func (c *Client) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	if errs := validate.Check(in); errs != nil {
		return nil, errs
	}
	var out models.Product
	if err := c.put("/api/products/" + url.PathEscape(id)).Authenticated().Body(in).JSON(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes one of the farmer's own listings.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.delete("/api/products/" + url.PathEscape(id)).Authenticated().Send(ctx)
	return err
}

// AddReview rates a product.
func (c *Client) AddReview(ctx context.Context, id string, in models.ReviewInput) error {
	if errs := validate.Check(in); errs != nil {
		return errs
	}
	_, err := c.post("/api/products/" + url.PathEscape(id) + "/review").Authenticated().Body(in).Send(ctx)
	return err
}
