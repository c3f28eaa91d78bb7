package cmd

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jmcleod/daystore/cart"
	"github.com/jmcleod/daystore/checkout"
	"github.com/jmcleod/daystore/client"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart",
		Long: `The cart lives in the local data directory. It is kept across logins and is
not tied to an account.`,
	}
	cmd.AddCommand(
		newCartListCmd(a),
		newCartAddCmd(a),
		newCartRemoveCmd(a),
		newCartClearCmd(a),
		newCartCheckoutCmd(a),
	)
	return cmd
}

func newCartListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the cart",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view.Cart(a.cart.List())
		},
	}
}

func newCartAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id>...",
		Short: "Add products to the cart",
		Long: `Looks each product up so the cart can show brand, model and price. If the
lookup fails for any reason other than an unknown id, the item is added with
its id only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				item := cart.Item{ID: id}
				p, err := a.catalog.Product(cmd.Context(), id)
				var reqErr *client.RequestError
				switch {
				case err == nil:
					item = cart.Item{ID: p.ID, Brand: p.Brand, Model: p.Model, Price: p.Price}
				case errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound:
					return err
				default:
					a.logger.Warn("product lookup failed, adding by id",
						slog.String("product_id", id),
						slog.String("error", err.Error()))
				}
				if a.cart.Add(item) {
					if err := a.view.Line("Added %s", item.ID); err != nil {
						return err
					}
				} else if err := a.view.Line("%s is already in the cart", item.ID); err != nil {
					return err
				}
			}
			return a.view.Line("Cart: %d items", a.cart.Count())
		},
	}
}

func newCartRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove products from the cart",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if !a.cart.Remove(id) {
					if err := a.view.Line("%s is not in the cart", id); err != nil {
						return err
					}
				}
			}
			return a.view.Line("Cart: %d items", a.cart.Count())
		},
	}
}

func newCartClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cart.Clear()
			return a.view.Line("Cart cleared")
		},
	}
}

func newCartCheckoutCmd(a *app) *cobra.Command {
	var removeBought bool
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Buy every item in the cart",
		Long: `Buys each item in order. A failed purchase is reported and the remaining
items are still attempted. The cart is left as it was unless --clear is set,
in which case only the items that were bought are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := checkout.Run(cmd.Context(), a.cart.List(), a.session, a.catalog,
				checkout.WithLogger(a.logger),
				checkout.WithProgress(func(item cart.Item, err error) {
					if err != nil {
						a.view.Line("Error %s: %s", item.ID, client.Message(err))
						return
					}
					if removeBought {
						a.cart.Remove(item.ID)
					}
				}))
			if err != nil {
				if report.Succeeded+report.Failed > 0 {
					a.view.Line("%s", report.String())
				}
				return err
			}
			return a.view.Line("%s", report.String())
		},
	}
	cmd.Flags().BoolVar(&removeBought, "clear", false, "Remove purchased items from the cart")
	return cmd
}
