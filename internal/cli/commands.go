package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkurata/pbwatch/internal/console"
)

var searchCmd = &cobra.Command{
	Use:   "search <url>",
	Short: "Check a product page once and print the raw API response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := &console.Field{}
		in.Set(ensureScheme(args[0]))
		out := &console.WriterSink{W: cmd.OutOrStdout()}

		s := console.NewSearcher(in, out, newClient())
		<-s.Search(cmd.Context())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the server-side watchlist",
}

var watchAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a product URL for periodic stock checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := newClient().AddWatch(cmd.Context(), ensureScheme(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "登録しました: %s (%s)\n", item.Title, item.StatusText)
		return nil
	},
}

var watchLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List watched items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := newClient().Watchlist(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "監視中の商品はありません")
			return nil
		}
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", it.StatusText, it.Title, it.URL)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Bulk-register product URLs from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		report, err := newClient().ImportCSV(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, report.Message)
		for _, title := range report.Results.Success {
			fmt.Fprintf(w, "  ✔ %s\n", title)
		}
		for _, msg := range report.Results.Errors {
			fmt.Fprintf(w, "  ✖ %s\n", msg)
		}
		return nil
	},
}

// ensureScheme lets users type bare hostnames at the prompt.
func ensureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}
