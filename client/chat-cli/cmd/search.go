package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var fetch bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a web search through the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"query":        strings.Join(args, " "),
				"fetchContent": fetch,
			}
			var resp struct {
				Results []struct {
					Title   string `json:"title"`
					URL     string `json:"url"`
					Snippet string `json:"snippet"`
					Content string `json:"content"`
				} `json:"results"`
			}
			if err := authedClient().doJSON(cmd.Context(), http.MethodPost, "/search", body, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(out, "[%d] %s\n    %s\n    %s\n", i+1, r.Title, r.URL, r.Snippet)
				if r.Content != "" {
					fmt.Fprintf(out, "    (%d chars fetched)\n", len(r.Content))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch page content for the top results")
	return cmd
}
