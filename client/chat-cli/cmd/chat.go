package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

type fileAttachment struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatRequest struct {
	Message    string           `json:"message"`
	Files      []fileAttachment `json:"files,omitempty"`
	SearchMode bool             `json:"searchMode"`
	CanvasMode bool             `json:"canvasMode"`
	ChatID     string           `json:"chatId,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"messageId,omitempty"`
}

func newChatCmd() *cobra.Command {
	var (
		search bool
		canvas bool
		chatID string
		files  []string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message to the assistant",
		Example: `  chat-cli chat "What did I tell you about my trip?"
  chat-cli chat --search "latest Go release"
  chat-cli chat --file notes.md "Summarize this"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := chatRequest{
				Message:    strings.TrimSpace(strings.Join(args, " ")),
				SearchMode: search,
				CanvasMode: canvas,
				ChatID:     chatID,
			}
			if req.Message == "" && len(files) == 0 {
				return errors.New("a message or --file is required")
			}

			client := authedClient()
			for _, path := range files {
				var parsed struct {
					Text string `json:"text"`
					Type string `json:"type"`
					Name string `json:"name"`
					Size int64  `json:"size"`
					URL  string `json:"url"`
				}
				if err := client.uploadFile(cmd.Context(), path, &parsed); err != nil {
					return fmt.Errorf("failed to parse %s: %w", path, err)
				}
				req.Files = append(req.Files, fileAttachment{
					Name:    parsed.Name,
					Type:    parsed.Type,
					Size:    parsed.Size,
					URL:     parsed.URL,
					Content: parsed.Text,
				})
			}

			var resp chatResponse
			if err := client.doJSON(cmd.Context(), http.MethodPost, "/chat", req, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&search, "search", false, "ground the answer with a web search")
	cmd.Flags().BoolVar(&canvas, "canvas", false, "ask for a long-form document answer")
	cmd.Flags().StringVar(&chatID, "chat", "", "persist the exchange into this chat")
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "attach a document (repeatable)")
	return cmd
}
