package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run executes the command tree and always releases the application, which
// cobra's post-run hooks skip when a command fails.
func run(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		if cerr := application.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

var (
	application *app.Application
	apiURL      string

	// openApplication builds the application for each invocation.
	openApplication = app.New
)

var rootCmd = &cobra.Command{
	Use:           "kisan",
	Short:         "KisanBazaar: farm produce marketplace client",
	Long:          "Browse produce, manage your cart, pay, track orders and chat with farmers from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The environment outranks config files, and CHAT_URL derives from it.
		if apiURL != "" {
			if err := os.Setenv("API_BASE_URL", apiURL); err != nil {
				return err
			}
		}
		a, err := openApplication(cmd.Context())
		if err != nil {
			return err
		}
		application = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides API_BASE_URL)")

	// Catalogue and cart
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(checkoutCmd)

	// Account
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	// Orders and dashboards
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(adminCmd)

	// Realtime and diagnostics
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(metricsCmd)
}

// requireRole fails unless someone with one of roles is logged in. No roles
// means any logged-in user.
func requireRole(roles ...models.Role) error {
	id := application.Auth.Identity()
	if id.Anonymous() {
		return fmt.Errorf("not logged in; run `kisan login` first")
	}
	if len(roles) > 0 && !application.Auth.HasRole(roles...) {
		return fmt.Errorf("this command needs one of the roles %v, you are %s", roles, id.Role)
	}
	return nil
}
