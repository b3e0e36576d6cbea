// Package dashboard assembles the role dashboards: product search for
// buyers, listings and incoming orders for farmers, and marketplace totals
// for admins.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
)

// ─── Buyer ────────────────────────────────────────────────────────────────────

// ProductFilter narrows the catalogue. Nil bounds are open.
type ProductFilter struct {
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// FilterProducts keeps products whose name contains Search (ignoring case)
// and whose price lies within the bounds.
func FilterProducts(products []models.Product, f ProductFilter) []models.Product {
	term := strings.ToLower(f.Search)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !strings.Contains(strings.ToLower(p.Name), term) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// AdminSource is the part of the API client the admin dashboard reads.
type AdminSource interface {
	AdminUsers(ctx context.Context) ([]models.User, error)
	AdminProducts(ctx context.Context) ([]models.Product, error)
	AdminOrders(ctx context.Context) ([]models.Order, error)
}

// AdminOverview is the marketplace at a glance.
type AdminOverview struct {
	Users    []models.User
	Products []models.Product
	Orders   []models.Order
	Revenue  float64
}

// LoadAdminOverview fetches users, products and orders concurrently. The
// first failure cancels the rest.
func LoadAdminOverview(ctx context.Context, src AdminSource) (*AdminOverview, error) {
	var ov AdminOverview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.Users, err = src.AdminUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Products, err = src.AdminProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Orders, err = src.AdminOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: admin overview: %w", err)
	}
	ov.Revenue = Revenue(ov.Orders)
	return &ov, nil
}

// Revenue sums the totals of orders.
func Revenue(orders []models.Order) float64 {
	var sum float64
	for _, o := range orders {
		sum += o.TotalAmount
	}
	return sum
}

// FilterUsers keeps users whose name contains search (ignoring case) and,
// when role is set, who hold it.
func FilterUsers(users []models.User, search string, role models.Role) []models.User {
	term := strings.ToLower(search)
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if !strings.Contains(strings.ToLower(u.Name), term) {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ─── Farmer ───────────────────────────────────────────────────────────────────

// FarmerSource is the part of the API client the farmer dashboard reads.
type FarmerSource interface {
	MyProducts(ctx context.Context) ([]models.Product, error)
	FarmerOrders(ctx context.Context) ([]models.Order, error)
}

// FarmerOverview is a farmer's listings and the orders touching them.
type FarmerOverview struct {
	Products []models.Product
	Orders   []models.Order
	// Earnings counts only the lines of each order that are the farmer's
	// own products.
	Earnings float64
	ByStatus map[models.OrderStatus]int
}

// LoadFarmerOverview fetches the farmer's listings and orders concurrently.
func LoadFarmerOverview(ctx context.Context, src FarmerSource) (*FarmerOverview, error) {
	var ov FarmerOverview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.Products, err = src.MyProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Orders, err = src.FarmerOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: farmer overview: %w", err)
	}

	own := make(map[string]bool, len(ov.Products))
	for _, p := range ov.Products {
		own[p.ID] = true
	}
	ov.ByStatus = map[models.OrderStatus]int{}
	for _, o := range ov.Orders {
		ov.ByStatus[o.Status]++
		for _, it := range o.Products {
			if own[it.ProductID] {
				ov.Earnings += it.Price * float64(it.Quantity)
			}
		}
	}
	sort.SliceStable(ov.Orders, func(i, j int) bool {
		return ov.Orders[i].CreatedAt.After(ov.Orders[j].CreatedAt)
	})
	return &ov, nil
}
