package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oksasatya/go-ddd-auth-core/pkg/authclient"
)

func registerCmd(a *app) *cobra.Command {
	var name, email string
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store its session",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			pw, err := a.password(fromStdin)
			if err != nil {
				return err
			}
			u, err := m.Register(cmd.Context(), name, email, pw)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), u, time.Now())
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var email string
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			pw, err := a.password(fromStdin)
			if err != nil {
				return err
			}
			u, err := m.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), u, time.Now())
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			u, err := m.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), u, time.Now())
			return nil
		}),
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			ctx := cmd.Context()
			u, err := m.Current(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if u == nil {
				_, _ = fmt.Fprintln(w, "not logged in")
				return nil
			}
			printSession(w, u, time.Now())
			switch {
			case !m.IsAuthenticated(ctx):
				_, _ = fmt.Fprintln(w, "access token expired; run `authctl refresh`")
			case m.NeedsRefresh(ctx):
				_, _ = fmt.Fprintln(w, "access token expires soon")
			}
			return nil
		}),
	}
}

func tokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, refreshing it first when needed",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			tok, err := m.AccessToken(cmd.Context())
			if errors.Is(err, authclient.ErrNotLoggedIn) {
				return fmt.Errorf("%w; run `authctl login`", err)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		}),
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: run(a, func(cmd *cobra.Command, m *authclient.Manager) error {
			if err := m.Logout(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}
