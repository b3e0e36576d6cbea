package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
)

var (
	emailFlag    string
	passwordFlag string
	nameFlag     string
	roleFlag     string
)

// prompt reads one trimmed line after printing label.
func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// kisan login
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if password == "" {
			var err error
			if password, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: "); err != nil {
				return err
			}
		}
		token, err := application.API.Login(cmd.Context(), emailFlag, password)
		if err != nil {
			return err
		}
		id, err := application.Auth.Login(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s (%s)\n", id.Name, id.Role)
		return nil
	},
}

// kisan register
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a buyer or farmer account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if password == "" {
			var err error
			if password, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Choose a password: "); err != nil {
				return err
			}
		}
		msg, err := application.API.Register(cmd.Context(), models.RegisterInput{
			Name:     nameFlag,
			Email:    emailFlag,
			Password: password,
			Role:     models.Role(roleFlag),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		fmt.Fprintln(cmd.OutOrStdout(), "You can now run `kisan login`.")
		return nil
	},
}

// kisan logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		application.Auth.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

// kisan whoami
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		id := application.Auth.Identity()
		if id.Anonymous() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>  role=%s  id=%s\n", id.Name, id.Email, id.Role, id.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().StringVar(&nameFlag, "name", "", "display name")
	registerCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	registerCmd.Flags().StringVar(&passwordFlag, "password", "", "password (prompted when omitted)")
	registerCmd.Flags().StringVar(&roleFlag, "role", string(models.RoleBuyer), "buyer or farmer")
}
