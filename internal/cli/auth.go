package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (r *root) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if strings.TrimSpace(username) == "" {
				if username, err = rt.Prompt.Line(ctx, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = rt.Prompt.Secret(ctx, "Password: "); err != nil {
					return err
				}
			}
			if err := rt.Client.Login(ctx, username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (r *root) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			if err := rt.Client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (r *root) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			u, err := rt.Client.Me(cmd.Context())
			if err != nil {
				return err
			}
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(u); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
}
