package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wanmail/stool/internal/install"
)

// installAll is install.All. Tests replace it.
var installAll = install.All

func newInstallCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "install [chrome|firefox|selenium]...",
		Short: "Download driver binaries",
		Long: `Download chromedriver, geckodriver or the Selenium standalone server.

Drivers already present in the directory are reused. Without arguments
both chromedriver and geckodriver are installed.`,
		ValidArgs: []string{install.Chrome, install.Firefox, install.Selenium},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{install.Chrome, install.Firefox}
			}
			paths, err := installAll(cmd.Context(), dir, args...)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(paths))
			for n := range paths {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", n, paths[n])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "drivers", "directory to install into")
	return cmd
}
