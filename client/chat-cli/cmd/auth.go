package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	var fullName string

	cmd := &cobra.Command{
		Use:   "register <email> <password> <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"email":    args[0],
				"password": args[1],
				"username": args[2],
				"fullName": fullName,
			}
			var resp struct {
				UserID uint `json:"user_id"`
			}
			if err := newAPIClient(serverURL, "").doJSON(cmd.Context(), http.MethodPost, "/auth/register", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered user %d\n", resp.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	return cmd
}

func newLoginCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and save the access token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"email": args[0], "password": args[1]}
			var resp struct {
				Token string `json:"token"`
			}
			if err := newAPIClient(serverURL, "").doJSON(cmd.Context(), http.MethodPost, "/auth/login", body, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if printOnly {
				fmt.Fprintln(out, resp.Token)
				return nil
			}
			path, err := saveToken(resp.Token)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			fmt.Fprintf(out, "Logged in, token saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the token instead of saving it")
	return cmd
}
