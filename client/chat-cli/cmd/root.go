package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	tokenFlag string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chat-cli",
		Short:         "A CLI client for the chat service",
		Long:          `A command-line interface for chatting with the assistant, managing long-term memories and running web searches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("CHAT_SERVER", "http://localhost:8080"), "chat_service base URL")
	root.PersistentFlags().StringVar(&tokenFlag, "token", os.Getenv("CHAT_TOKEN"), "JWT, defaults to the token saved by login")

	root.AddCommand(
		newRegisterCmd(),
		newLoginCmd(),
		newChatCmd(),
		newMemoryCmd(),
		newSearchCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenPath 是 login 保存 token 的位置。
func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chat-cli", "token"), nil
}

func loadToken() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	p, err := tokenPath()
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return string(b)
}

func saveToken(token string) (string, error) {
	p, err := tokenPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", err
	}
	return p, os.WriteFile(p, []byte(token), 0o600)
}

func authedClient() *apiClient {
	return newAPIClient(serverURL, loadToken())
}
