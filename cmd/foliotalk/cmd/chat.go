package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/foliotalk/foliotalk/internal/stream"
	"github.com/foliotalk/foliotalk/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation-id>",
	Short: "Open the live chat view for a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := stream.New(client,
			&stream.WebSocketDialer{URL: cfg.Stomp.URL},
			stream.Options{
				Login:          cfg.Stomp.Login,
				Passcode:       cfg.Stomp.Passcode,
				Heartbeat:      cfg.Stomp.Heartbeat,
				ReconnectDelay: cfg.Stomp.ReconnectDelay,
				SortField:      cfg.Chat.SortField,
				SortOrder:      cfg.Chat.SortOrder,
				PageSize:       cfg.Chat.HistoryPageSize,
			})
		defer s.Close()

		s.Open(args[0])

		model, err := tui.NewChatModel(ctx, s)
		if err != nil {
			return fmt.Errorf("failed to build chat view: %w", err)
		}

		if err := s.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect live stream: %w", err)
		}

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("chat view failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
