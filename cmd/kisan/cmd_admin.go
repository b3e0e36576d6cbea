package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/dashboard"
	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Marketplace administration (admins)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return requireRole(models.RoleAdmin)
	},
}

var (
	userSearch string
	userRole   string
)

// kisan admin overview
var adminOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Users, products, orders and revenue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ov, err := dashboard.LoadAdminOverview(cmd.Context(), application.API)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total Users: %d   Total Products: %d   Total Orders: %d   Total Revenue: %s\n\n",
			len(ov.Users), len(ov.Products), len(ov.Orders), money.Format(ov.Revenue))

		users := dashboard.FilterUsers(ov.Users, userSearch, models.Role(userRole))
		fmt.Fprintf(out, "%-26s  %-20s  %-28s  %s\n", "ID", "NAME", "EMAIL", "ROLE")
		fmt.Fprintln(out, strings.Repeat("-", 86))
		for _, u := range users {
			fmt.Fprintf(out, "%-26s  %-20s  %-28s  %s\n", u.ID, u.Name, u.Email, u.Role)
		}
		return nil
	},
}

// kisan admin delete-user <id>
var adminDeleteUserCmd = &cobra.Command{
	Use:   "delete-user <id>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.API.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "User deleted.")
		return nil
	},
}

// kisan admin delete-product <id>
var adminDeleteProductCmd = &cobra.Command{
	Use:   "delete-product <id>",
	Short: "Remove any listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.API.AdminDeleteProduct(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Product deleted.")
		return nil
	},
}

func init() {
	adminOverviewCmd.Flags().StringVar(&userSearch, "search", "", "user name contains")
	adminOverviewCmd.Flags().StringVar(&userRole, "role", "", "only users with this role")
	adminCmd.AddCommand(adminOverviewCmd, adminDeleteUserCmd, adminDeleteProductCmd)
}
