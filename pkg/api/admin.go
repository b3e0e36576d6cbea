package api

import (
	"context"
	"net/url"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
)

// AdminUsers lists every account.
func (c *Client) AdminUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.get("/api/admin/users").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminProducts lists every product regardless of owner.
func (c *Client) AdminProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.get("/api/admin/products").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminOrders lists every order.
func (c *Client) AdminOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.get("/api/admin/orders").Authenticated().JSON(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.delete("/api/admin/users/" + url.PathEscape(id)).Authenticated().Send(ctx)
	return err
}

// AdminDeleteProduct removes any listing.
func (c *Client) AdminDeleteProduct(ctx context.Context, id string) error {
	_, err := c.delete("/api/admin/products/" + url.PathEscape(id)).Authenticated().Send(ctx)
	return err
}
