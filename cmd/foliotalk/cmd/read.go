package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/foliotalk/foliotalk/internal/reader"
	"github.com/foliotalk/foliotalk/internal/reader/fitz"
	"github.com/foliotalk/foliotalk/internal/storage"
	"github.com/foliotalk/foliotalk/internal/tui"
)

var readCmd = &cobra.Command{
	Use:   "read <conversation-id|file.pdf>",
	Short: "Open the paginated reader for a conversation's document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		doc, documentID, err := openDocument(ctx, args[0])
		if err != nil {
			return err
		}
		defer doc.Close()

		bookmarks, err := storage.NewBookmarkStore(paths)
		if err != nil {
			return fmt.Errorf("failed to open bookmark store: %w", err)
		}

		r := reader.New(bookmarks, reader.Options{CacheTTL: cfg.Reader.PageCacheTTL})
		defer r.Close()

		if err := r.LoadDocument(doc, documentID); err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}

		model := tui.NewReaderModel(ctx, r)
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("reader view failed: %w", err)
		}
		return nil
	},
}

// openDocument resolves the argument as a local PDF path first, then as a
// conversation whose document is fetched from its secure URL.
func openDocument(ctx context.Context, arg string) (*fitz.Document, string, error) {
	if _, err := os.Stat(arg); err == nil {
		doc, err := fitz.Open(arg)
		if err != nil {
			return nil, "", err
		}
		return doc, arg, nil
	}

	conv, err := client.GetConversation(ctx, arg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv.File.SecureURL == "" {
		return nil, "", fmt.Errorf("conversation %s has no document", arg)
	}

	data, err := fetchDocument(ctx, conv.File.SecureURL)
	if err != nil {
		return nil, "", err
	}
	doc, err := fitz.OpenBytes(data)
	if err != nil {
		return nil, "", err
	}
	return doc, conv.File.ID, nil
}

func fetchDocument(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build document request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document fetch returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func init() {
	rootCmd.AddCommand(readCmd)
}
