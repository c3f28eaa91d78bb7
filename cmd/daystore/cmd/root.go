package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmcleod/daystore/client"
	"github.com/jmcleod/daystore/internal/util"
)

// skipApp marks commands that run without opening local state.
const skipApp = "skip-app"

type rootFlags struct {
	configPath string
	dataDir    string
	apiURL     string
	logLevel   string
	metrics    bool
}

func newRootCmd(in io.Reader, out, errOut io.Writer) (*cobra.Command, *app) {
	flags := &rootFlags{}
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "daystore",
		Short: "DayStore is a storefront client",
		Long: `A command-line client for the DayStore storefront: browse the catalog, keep a
local cart, and check out against the DayStore API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipApp] != "" {
				return nil
			}
			return a.open(flags)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a YAML config file (default $DAYSTORE_CONFIG)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Directory for local session and cart state (default ~/.daystore)")
	pf.StringVar(&flags.apiURL, "api", "", "Base URL of the storefront API (default http://localhost:8000)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.metrics, "metrics", false, "Print API request counters on exit")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(a),
		newLogoutCmd(a),
		newRegisterCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newPasswdCmd(a),
		newRenameCmd(a),
		newResetCmd(a),
		newHistoryCmd(a),
		newPurchasesCmd(a),
		newRecommendCmd(a),
		newProductsCmd(a),
		newSearchCmd(a),
		newProductCmd(a),
		newLikeCmd(a),
		newUnlikeCmd(a),
		newBuyCmd(a),
		newCartCmd(a),
		newAdminCmd(a),
	)
	return root, a
}

// run executes root with args and always releases local state afterwards.
func run(ctx context.Context, root *cobra.Command, a *app, args []string) error {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root, a := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	err := run(ctx, root, a, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+util.Sanitize(client.Message(err)))
		os.Exit(1)
	}
}
