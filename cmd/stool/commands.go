package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wanmail/stool"
)

func newVisitCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "visit URL",
		Short: "Load a page and print its URL, session and cookies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withBrowser(cmd, func(t *stool.Tools) error {
				if err := t.Get(args[0]); err != nil {
					return err
				}
				u, err := t.URL()
				if err != nil {
					return err
				}
				title, err := t.Title()
				if err != nil {
					return err
				}
				cookies, err := t.Cookies()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "url: %s\n", u)
				fmt.Fprintf(out, "title: %s\n", title)
				fmt.Fprintf(out, "session: %s\n", t.SessionID())
				return writeJSON(out, map[string]interface{}{"cookies": cookies})
			})
		},
	}
}

func newScreenshotCmd(o *rootOptions) *cobra.Command {
	var output, element string
	cmd := &cobra.Command{
		Use:   "screenshot URL",
		Short: "Save a PNG screenshot of a page or one of its elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loc *stool.Locator
			if element != "" {
				l, err := stool.ParseLocator(element)
				if err != nil {
					return err
				}
				loc = &l
			}
			return o.withBrowser(cmd, func(t *stool.Tools) error {
				if err := t.Get(args[0]); err != nil {
					return err
				}
				png, err := t.Screenshot(loc)
				if err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(png)
					return err
				}
				if err := os.WriteFile(output, png, 0644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(png), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "screenshot.png", `output file, or "-" for stdout`)
	cmd.Flags().StringVar(&element, "element", "", "capture only the element matching type=value")
	return cmd
}

func newParseCmd(o *rootOptions) *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "parse URL TAG LOCATOR",
		Short: "Parse an element (dropdown, table, links) and print it as JSON",
		Long: `Parse an element of a page and print the result as JSON.

TAG is the parser to run: dropdown, table or links. LOCATOR is written
type=value, for example id=country or xpath=//table[1].`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := stool.ParseLocator(args[2])
			if err != nil {
				return err
			}
			return o.withBrowser(cmd, func(t *stool.Tools) error {
				if err := t.Get(args[0]); err != nil {
					return err
				}
				var v interface{}
				if args[1] == "dropdown" && len(exclude) > 0 {
					v, err = t.Dropdown(loc, exclude...)
				} else {
					v, err = t.Parse(args[1], loc)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "dropdown option texts to leave out")
	return cmd
}

func newCookiesCmd(o *rootOptions) *cobra.Command {
	var (
		set     []string
		drop    []string
		dropAll bool
	)
	cmd := &cobra.Command{
		Use:   "cookies URL",
		Short: "Print, set or drop the cookies of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(set))
			for _, kv := range set {
				i := strings.Index(kv, "=")
				if i <= 0 {
					return fmt.Errorf("--set %q: want name=value", kv)
				}
				values[kv[:i]] = kv[i+1:]
			}
			return o.withBrowser(cmd, func(t *stool.Tools) error {
				if err := t.Get(args[0]); err != nil {
					return err
				}
				var opts []stool.CookieOption
				if dropAll {
					opts = append(opts, stool.DropAll())
				}
				if len(drop) > 0 {
					opts = append(opts, stool.DropKeys(drop...))
				}
				if len(values) > 0 || len(opts) > 0 {
					if err := t.SetCookies(values, opts...); err != nil {
						return err
					}
				}
				cookies, err := t.Cookies()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cookies)
			})
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "cookie to add, as name=value")
	cmd.Flags().StringSliceVar(&drop, "drop", nil, "cookies to delete first")
	cmd.Flags().BoolVar(&dropAll, "drop-all", false, "delete every cookie first")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
