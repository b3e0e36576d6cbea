package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/dashboard"
	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"p"},
	Short:   "Browse and manage the catalogue",
}

var (
	searchFlag string
	minFlag    float64
	maxFlag    float64
)

// kisan products list
var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products, optionally filtered by name and price",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := application.API.ListProducts(cmd.Context())
		if err != nil {
			return err
		}
		f := dashboard.ProductFilter{Search: searchFlag}
		if cmd.Flags().Changed("min") {
			f.MinPrice = &minFlag
		}
		if cmd.Flags().Changed("max") {
			f.MaxPrice = &maxFlag
		}
		products = dashboard.FilterProducts(products, f)

		out := cmd.OutOrStdout()
		if len(products) == 0 {
			fmt.Fprintln(out, "No products found.")
			return nil
		}
		fmt.Fprintf(out, "%-26s  %-28s  %14s  %6s  %s\n", "ID", "NAME", "PRICE", "STOCK", "FARMER")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for _, p := range products {
			farmer := ""
			if p.CreatedBy != nil {
				farmer = p.CreatedBy.Name
			}
			fmt.Fprintf(out, "%-26s  %-28s  %14s  %6d  %s\n", p.ID, p.Name, money.Format(p.Price), p.Stock, farmer)
		}
		return nil
	},
}

// kisan products show <id>
var productsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a product with its reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := application.API.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  (%s)\n", p.Name, p.ID)
		fmt.Fprintf(out, "Price: %s   Stock: %d\n", money.Format(p.Price), p.Stock)
		if p.Description != "" {
			fmt.Fprintln(out, p.Description)
		}
		if !p.InStock() {
			fmt.Fprintln(out, "Out of stock")
		}
		if len(p.Reviews) > 0 {
			fmt.Fprintln(out, "\nReviews:")
			for _, r := range p.Reviews {
				fmt.Fprintf(out, "  %s %s  %s\n", strings.Repeat("*", r.Rating), r.User, r.Comment)
			}
		}
		return nil
	},
}

var productInput models.ProductInput

// kisan products add
var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "List a new product (farmers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleFarmer, models.RoleAdmin); err != nil {
			return err
		}
		p, err := application.API.CreateProduct(cmd.Context(), productInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Listed %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

// kisan products mine
var productsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your own products (farmers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleFarmer); err != nil {
			return err
		}
		products, err := application.API.MyProducts(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s  %-28s  %14s  %6d\n", p.ID, p.Name, money.Format(p.Price), p.Stock)
		}
		return nil
	},
}

// kisan products delete <id>
var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove one of your products (farmers)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleFarmer); err != nil {
			return err
		}
		if err := application.API.DeleteProduct(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Product deleted.")
		return nil
	},
}

var reviewInput models.ReviewInput

// kisan products review <id>
var productsReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Rate a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(); err != nil {
			return err
		}
		if err := application.API.AddReview(cmd.Context(), args[0], reviewInput); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks for the review!")
		return nil
	},
}

func init() {
	productsListCmd.Flags().StringVar(&searchFlag, "search", "", "name contains")
	productsListCmd.Flags().Float64Var(&minFlag, "min", 0, "minimum price")
	productsListCmd.Flags().Float64Var(&maxFlag, "max", 0, "maximum price")

	productsAddCmd.Flags().StringVar(&productInput.Name, "name", "", "product name")
	productsAddCmd.Flags().StringVar(&productInput.Description, "desc", "", "description")
	productsAddCmd.Flags().Float64Var(&productInput.Price, "price", 0, "price per kg")
	productsAddCmd.Flags().Float64Var(&productInput.Quantity, "qty", 0, "quantity in kg")
	productsAddCmd.Flags().StringVar(&productInput.ImageURL, "image", "", "image URL")

	productsReviewCmd.Flags().IntVar(&reviewInput.Rating, "rating", 0, "1 to 5")
	productsReviewCmd.Flags().StringVar(&reviewInput.Comment, "comment", "", "review text")

	productsCmd.AddCommand(productsListCmd, productsShowCmd, productsAddCmd, productsMineCmd, productsDeleteCmd, productsReviewCmd)
}
