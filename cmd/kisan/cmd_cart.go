package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and edit the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		printCart(cmd.OutOrStdout(), application.Cart.Items())
		return nil
	},
}

func printCart(out io.Writer, items []models.CartItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	fmt.Fprintf(out, "%-26s  %-24s  %12s  %4s  %14s\n", "ID", "NAME", "PRICE", "QTY", "SUBTOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 88))
	for _, it := range items {
		fmt.Fprintf(out, "%-26s  %-24s  %12s  %4d  %14s\n",
			it.ProductID, it.Name, money.Format(it.Price), it.Quantity, money.Format(it.Subtotal()))
	}
	fmt.Fprintln(out, strings.Repeat("-", 88))
	fmt.Fprintf(out, "%74s\n", "Total: "+money.Format(models.CartTotal(items)))
}

// kisan cart list
var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
	RunE:  cartCmd.RunE,
}

// kisan cart add <product-id>
var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product, or one more unit of it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := application.API.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !p.InStock() {
			return fmt.Errorf("%s is out of stock", p.Name)
		}
		application.Cart.Add(*p)
		it, _ := application.Cart.Get(p.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "%s × %d in cart (%d items)\n", it.Name, it.Quantity, application.Cart.Count())
		return nil
	},
}

// kisan cart remove <product-id>...
var cartRemoveCmd = &cobra.Command{
	Use:     "remove <product-id>...",
	Aliases: []string{"rm"},
	Short:   "Remove one or more lines",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application.Cart.RemoveSelected(args...)
		printCart(cmd.OutOrStdout(), application.Cart.Items())
		return nil
	},
}

// kisan cart qty <product-id> <n>
var cartQtyCmd = &cobra.Command{
	Use:   "qty <product-id> <n>",
	Short: "Set the quantity of a line (minimum 1)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be a whole number: %w", err)
		}
		if _, ok := application.Cart.Get(args[0]); !ok {
			return fmt.Errorf("%s is not in the cart", args[0])
		}
		application.Cart.UpdateQuantity(args[0], n)
		printCart(cmd.OutOrStdout(), application.Cart.Items())
		return nil
	},
}

// kisan cart inc <product-id>
var cartIncCmd = &cobra.Command{
	Use:   "inc <product-id>",
	Short: "One more unit, up to the stock seen when added",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := application.Cart.Get(args[0]); !ok {
			return fmt.Errorf("%s is not in the cart", args[0])
		}
		if !application.Cart.Increment(args[0]) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cannot exceed available stock.")
			return nil
		}
		printCart(cmd.OutOrStdout(), application.Cart.Items())
		return nil
	},
}

// kisan cart dec <product-id>
var cartDecCmd = &cobra.Command{
	Use:   "dec <product-id>",
	Short: "One unit less; the line goes at zero",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application.Cart.Decrement(args[0])
		printCart(cmd.OutOrStdout(), application.Cart.Items())
		return nil
	},
}

// kisan cart clear
var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		application.Cart.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
		return nil
	},
}

func init() {
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartRemoveCmd, cartQtyCmd, cartIncCmd, cartDecCmd, cartClearCmd)
}
