package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/dashboard"
	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"o"},
	Short:   "Order history, tracking and invoices",
}

func printOrders(out io.Writer, orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders yet.")
		return
	}
	fmt.Fprintf(out, "%-26s  %-17s  %-11s  %14s  %s\n", "ID", "PLACED", "STATUS", "TOTAL", "ITEMS")
	fmt.Fprintln(out, strings.Repeat("-", 96))
	for _, o := range orders {
		names := make([]string, 0, len(o.Products))
		for _, it := range o.Products {
			names = append(names, fmt.Sprintf("%s×%d", it.Name, it.Quantity))
		}
		fmt.Fprintf(out, "%-26s  %-17s  %-11s  %14s  %s\n",
			o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.Status, money.Format(o.TotalAmount), strings.Join(names, ", "))
	}
}

// kisan orders mine
var ordersMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Your order history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(); err != nil {
			return err
		}
		orders, err := application.API.MyOrders(cmd.Context())
		if err != nil {
			return err
		}
		printOrders(cmd.OutOrStdout(), orders)
		return nil
	},
}

// kisan orders show <id>
var ordersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "An order with its tracking history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(); err != nil {
			return err
		}
		o, err := application.API.GetOrder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printOrders(out, []models.Order{*o})
		fmt.Fprintf(out, "\nPayment: %s\nTracking:\n", o.PaymentID)
		for _, t := range o.TrackingHistory {
			fmt.Fprintf(out, "  %s  %s\n", t.Date.Local().Format("2006-01-02 15:04"), t.Status)
		}
		return nil
	},
}

// kisan orders track <id> <status>
var ordersTrackCmd = &cobra.Command{
	Use:   "track <id> <Processing|Shipped|Delivered|Cancelled>",
	Short: "Update the tracking status (farmers and admins)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleFarmer, models.RoleAdmin); err != nil {
			return err
		}
		o, err := application.API.UpdateTracking(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", o.ID, o.Status)
		return nil
	},
}

var invoiceOut string

// kisan orders invoice <id>
var ordersInvoiceCmd = &cobra.Command{
	Use:   "invoice <id>",
	Short: "Download the PDF invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(); err != nil {
			return err
		}
		pdf, err := application.API.Invoice(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		path := invoiceOut
		if path == "" {
			path = "invoice-" + args[0] + ".pdf"
		}
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return fmt.Errorf("write invoice: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(pdf))
		return nil
	},
}

// kisan orders farmer
var ordersFarmerCmd = &cobra.Command{
	Use:   "farmer",
	Short: "Orders for your products, with earnings (farmers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleFarmer); err != nil {
			return err
		}
		ov, err := dashboard.LoadFarmerOverview(cmd.Context(), application.API)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Products: %d   Orders: %d   Earnings: %s\n", len(ov.Products), len(ov.Orders), money.Format(ov.Earnings))
		for _, st := range append([]models.OrderStatus{models.StatusPending}, models.TrackableStatuses...) {
			if n := ov.ByStatus[st]; n > 0 {
				fmt.Fprintf(out, "  %-10s %d\n", st, n)
			}
		}
		fmt.Fprintln(out)
		printOrders(out, ov.Orders)
		return nil
	},
}

func init() {
	ordersInvoiceCmd.Flags().StringVarP(&invoiceOut, "output", "o", "", "file to write (default invoice-<id>.pdf)")
	ordersCmd.AddCommand(ordersMineCmd, ordersShowCmd, ordersTrackCmd, ordersInvoiceCmd, ordersFarmerCmd)
}
