package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type memoryFact struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category"`
}

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage long-term memories",
	}
	cmd.AddCommand(
		newMemoryListCmd(),
		newMemorySetCmd(),
		newMemoryDeleteCmd(),
	)
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/memory"
			if category != "" {
				path += "?category=" + url.QueryEscape(category)
			}
			var resp struct {
				Memories []memoryFact `json:"memories"`
			}
			if err := authedClient().doJSON(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Memories) == 0 {
				fmt.Fprintln(out, "No memories stored.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tKEY\tVALUE")
			for _, m := range resp.Memories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Category, m.Key, m.Value)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "filter by category (preference, fact, context, skill)")
	return cmd
}

func newMemorySetCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store or overwrite a memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := memoryFact{Key: args[0], Value: args[1], Category: category}
			var resp struct {
				Memory memoryFact `json:"memory"`
			}
			if err := authedClient().doJSON(cmd.Context(), http.MethodPost, "/memory", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s/%s\n", resp.Memory.Category, resp.Memory.Key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "fact", "memory category")
	return cmd
}

func newMemoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"key": args[0]}
			if err := authedClient().doJSON(cmd.Context(), http.MethodDelete, "/memory", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
