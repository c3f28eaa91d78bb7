package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

const banner = `
  ____              ____  _
 |  _ \  __ _ _   _/ ___|| |_ ___  _ __ ___
 | | | |/ _` + "`" + ` | | | \___ \| __/ _ \| '__/ _ \
 | |_| | (_| | |_| |___) | || (_) | | |  __/
 |____/ \__,_|\__, |____/ \__\___/|_|  \___|
              |___/
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Storefront Client - Version %s\x1b[0m\n\n", Version)
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print the client version",
		Annotations: map[string]string{skipApp: "true"},
		Args:        cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return
			}
			printBanner(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
