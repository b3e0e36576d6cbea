package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/checkout"
	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

// kisan checkout
var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Pay for the cart and place the order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(models.RoleBuyer); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		lines := checkout.NewLineReader(cmd.InOrStdin())
		printCart(out, application.Cart.Items())

		sess := application.Checkout(checkout.TerminalWidget{
			Lines: lines,
			Out:   out,
			Format: func(minor float64, cur string) string {
				return money.FormatIn(cur, money.FromMinorUnits(minor))
			},
		})

		order, err := sess.Pay(cmd.Context())
		for errors.Is(err, checkout.ErrOrderNotRecorded) {
			snap := sess.Snapshot()
			fmt.Fprintln(out, checkout.MsgOrderNotRecorded)
			fmt.Fprintf(out, "Payment reference: %s\n", snap.PaymentID)
			fmt.Fprint(out, "Retry saving the order? [Y/n] ")
			answer, perr := lines.Next(cmd.Context())
			if perr != nil || strings.EqualFold(answer, "n") {
				fmt.Fprintln(out, "Keep the payment reference above and contact support; your cart has been kept.")
				return err
			}
			order, err = sess.RetryOrder(cmd.Context())
		}

		switch {
		case errors.Is(err, checkout.ErrAbandoned):
			fmt.Fprintln(out, "Payment cancelled. Your cart is unchanged.")
			return nil
		case err != nil:
			fmt.Fprintln(out, checkout.UserMessage(err))
			return err
		}

		fmt.Fprintln(out, sess.Message())
		fmt.Fprintf(out, "Order %s  %s  %s\n", order.ID, money.Format(order.TotalAmount), order.Status)
		return nil
	},
}
