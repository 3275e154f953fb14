package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage chat-over-document conversations",
}

var listConversationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conversations, err := client.ListConversations(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		if len(conversations) == 0 {
			fmt.Println("No conversations yet. Upload a document with 'foliotalk conversations upload'.")
			return nil
		}

		for _, conv := range conversations {
			created := time.UnixMilli(conv.CreatedAt).Format("2006-01-02 15:04")
			fmt.Printf("%s  %s  %s\n",
				headerStyle.Render(conv.ID),
				conv.Name,
				mutedStyle.Render(created))
		}
		return nil
	},
}

var showConversationCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show one conversation and its document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := client.GetConversation(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		fmt.Println(headerStyle.Render(conv.Name))
		fmt.Printf("  id:      %s\n", conv.ID)
		fmt.Printf("  created: %s\n", time.UnixMilli(conv.CreatedAt).Format(time.RFC1123))
		fmt.Printf("  file:    %s (%s, %d pages, %d bytes)\n",
			conv.File.PublicID, conv.File.Format, conv.File.Pages, conv.File.Bytes)
		return nil
	},
}

var uploadConversationCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF and start a conversation over it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := client.CreateConversation(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Printf("Conversation %s created over %s (%d pages).\n",
			conv.ID, conv.Name, conv.File.Pages)
		return nil
	},
}

var deleteConversationCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation and its document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.DeleteConversation(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Conversation %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	conversationsCmd.AddCommand(
		listConversationsCmd,
		showConversationCmd,
		uploadConversationCmd,
		deleteConversationCmd,
	)
	rootCmd.AddCommand(conversationsCmd)
}
