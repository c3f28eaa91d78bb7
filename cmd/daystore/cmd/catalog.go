package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/daystore/api"
)

func newProductsCmd(a *app) *cobra.Command {
	var useCache bool
	var categories []string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				items []api.Product
				err   error
			)
			if len(categories) > 0 {
				items, err = a.catalog.ByCategory(cmd.Context(), categories...)
			} else {
				items, err = a.catalog.Products(cmd.Context(), useCache)
			}
			if err != nil {
				return err
			}
			return a.view.Products(items)
		},
	}
	cmd.Flags().BoolVar(&useCache, "cache", false, "Ask the API for its cached listing")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "Only show these categories (repeatable or comma separated)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.catalog.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := a.view.Products(res.Items); err != nil {
				return err
			}
			return a.view.Line("Found: %d", res.Count)
		},
	}
}

func newProductCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.catalog.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.view.Product(p); err != nil {
				return err
			}
			if a.cart.Contains(p.ID) {
				return a.view.Line("In your cart.")
			}
			return nil
		},
	}
}

func newLikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.catalog.Like(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.view.Line("Liked %s", args[0])
		},
	}
}

func newUnlikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlike <id>",
		Short: "Remove a like",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.catalog.Unlike(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.view.Line("Unliked %s", args[0])
		},
	}
}

func newBuyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <id>",
		Short: "Buy a single product now, bypassing the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.catalog.Buy(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.view.Line("Purchased %s", args[0])
		},
	}
}
