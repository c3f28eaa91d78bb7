package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "User management for the admin account",
		Long: `These commands are only offered to the "admin" account. The API enforces its
own access rules; the local check only avoids pointless requests.`,
	}
	cmd.AddCommand(
		newAdminUsersCmd(a),
		newAdminPasswdCmd(a),
		newAdminDeleteCmd(a),
	)
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.admin.Users(cmd.Context())
			if err != nil {
				return err
			}
			return a.view.Users(users)
		},
	}
}

func newAdminPasswdCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "passwd <user-id>",
		Short: "Set another account's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newPass, err := a.prompt.secret("New password")
			if err != nil {
				return err
			}
			confirm, err := a.prompt.secret("Confirm new password")
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.prompt.confirm(fmt.Sprintf("Change the password of user %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return a.view.Line("Cancelled")
				}
			}
			if err := a.admin.SetPassword(cmd.Context(), args[0], newPass, confirm); err != nil {
				return err
			}
			return a.view.Line("Password updated for %s", args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newAdminDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.prompt.confirm(fmt.Sprintf("Delete user %s? This cannot be undone.", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return a.view.Line("Cancelled")
				}
			}
			if err := a.admin.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.view.Line("Deleted %s", args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
