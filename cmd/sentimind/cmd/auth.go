package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/octabyte/sentimind-session/models"
)

const passwordEnv = "SENTIMIND_PASSWORD"

var errNotLoggedIn = errors.New("not logged in")

func passwordFrom(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnv)
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Session.Login(cmd.Context(), username, passwordFrom(password))
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), user, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s\n", user.Username)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (defaults to $"+passwordEnv+")")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var data models.RegisterData
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data.Password = passwordFrom(data.Password)
			data.Password2 = data.Password
			user, err := a.client.Session.Register(cmd.Context(), data)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), user, func(w io.Writer) {
				fmt.Fprintf(w, "Registered and logged in as %s\n", user.Username)
			})
		},
	}
	cmd.Flags().StringVarP(&data.Username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "Account password (defaults to $"+passwordEnv+")")
	cmd.Flags().StringVar(&data.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&data.LastName, "last-name", "", "Last name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.client.Session.User()
			if user == nil {
				return errNotLoggedIn
			}
			return a.print(cmd.OutOrStdout(), user, func(w io.Writer) {
				fmt.Fprintf(w, "%s <%s>\n", user.Username, user.Email)
			})
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Ask the backend to mail a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Auth.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Message)
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}
