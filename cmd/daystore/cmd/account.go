package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmcleod/daystore/api"
	"github.com/jmcleod/daystore/storage"
)

// password reads a password from --password-file when set, otherwise
// from the prompter.
func (a *app) password(file, label string) (string, error) {
	if file != "" && file != "-" {
		return readPasswordFile(file)
	}
	return a.prompt.secret(label)
}

func newLoginCmd(a *app) *cobra.Command {
	var passwordFile string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and keep the session locally",
		Long: `Verifies the username and password against the API and stores the credential
in the local data directory. The session expires after a period without API
activity (see session.idle_timeout).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := a.password(passwordFile, "Password")
			if err != nil {
				return err
			}
			name, err := a.account.Login(cmd.Context(), args[0], pass)
			if err != nil {
				return err
			}
			return a.view.Line("Logged in as %s", name)
		},
	}
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from a file instead of prompting")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.account.Logout()
			return a.view.Line("Logged out")
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var passwordFile string
	var login bool
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := a.password(passwordFile, "Password")
			if err != nil {
				return err
			}
			confirm := pass
			if passwordFile == "" {
				if confirm, err = a.prompt.secret("Confirm password"); err != nil {
					return err
				}
			}
			name, err := a.account.Register(cmd.Context(), args[0], pass, confirm)
			if err != nil {
				return err
			}
			if err := a.view.Line("Registered %s", name); err != nil {
				return err
			}
			if !login {
				return nil
			}
			if _, err := a.account.Login(cmd.Context(), name, pass); err != nil {
				return err
			}
			return a.view.Line("Logged in as %s", name)
		},
	}
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from a file instead of prompting")
	cmd.Flags().BoolVar(&login, "login", false, "Log in after registering")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the API sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.account.Me(cmd.Context())
			if err != nil {
				return err
			}
			if me.ID != "" {
				return a.view.Line("%s (id %s)", me.Username, me.ID)
			}
			return a.view.Line("%s", me.Username)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session and cart state",
		Long:  `Shows local state only; no API call is made.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.view.Line("%s", a.badge.String()); err != nil {
				return err
			}
			return a.view.Status(a.status())
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Long:  `Changes the password of the logged-in account. You are logged out afterwards.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				return api.ErrLoginRequired
			}
			oldPass, err := a.prompt.secret("Current password")
			if err != nil {
				return err
			}
			newPass, err := a.prompt.secret("New password")
			if err != nil {
				return err
			}
			confirm, err := a.prompt.secret("Confirm new password")
			if err != nil {
				return err
			}
			if err := a.account.UpdatePassword(cmd.Context(), oldPass, newPass, confirm); err != nil {
				return err
			}
			return a.view.Line("Password updated. Log in again with the new password.")
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <new-username>",
		Short: "Change your username",
		Long:  `Renames the logged-in account. You are logged out afterwards.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.account.UpdateUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.view.Line("Username changed to %s. Log in again.", name)
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your views, likes and purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := a.account.History(cmd.Context())
			if err != nil {
				return err
			}
			return a.view.History(actions)
		},
	}
}

func newPurchasesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purchases",
		Short: "Show your purchase history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			purchases, err := a.account.Purchases(cmd.Context())
			if err != nil {
				return err
			}
			return a.view.Purchases(purchases)
		},
	}
}

func newRecommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Show products recommended for you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.account.Recommendations(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return a.view.Line("No recommendations yet. Like or buy something first.")
			}
			return a.view.Products(items)
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the session, the cart and any other local state",
		Long: `Logs out, empties the cart and deletes every remaining key in the local
client state bucket, including keys left by older clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.prompt.confirm("Delete all local state?")
				if err != nil {
					return err
				}
				if !ok {
					return a.view.Line("Cancelled")
				}
			}
			a.account.Logout()
			a.cart.Clear()
			if a.db == nil {
				return a.view.Line("Local state cleared (memory only)")
			}
			n, err := storage.Purge(a.db, storage.ClientStateBucket)
			if err != nil {
				return fmt.Errorf("clearing local storage: %w", err)
			}
			a.logger.Debug("purged client state", slog.Int("keys", n))
			return a.view.Line("Local state cleared")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
