// Package markdown renders agent message content for terminal display.
package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// RendererConfig holds configuration for markdown rendering
type RendererConfig struct {
	Width    int
	WordWrap bool
}

// ChatConfig returns the configuration used for chat messages
func ChatConfig() *RendererConfig {
	return &RendererConfig{
		Width:    80,
		WordWrap: true,
	}
}

// Renderer wraps glamour for chat message display
type Renderer struct {
	glamourRenderer *glamour.TermRenderer
	config          *RendererConfig
}

// NewRenderer creates a new markdown renderer with the given configuration
func NewRenderer(config *RendererConfig) (*Renderer, error) {
	if config == nil {
		config = ChatConfig()
	}

	glamourRenderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(config.Width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	return &Renderer{
		glamourRenderer: glamourRenderer,
		config:          config,
	}, nil
}

// NewChatRenderer creates a renderer with the chat configuration
func NewChatRenderer() (*Renderer, error) {
	return NewRenderer(ChatConfig())
}

// Render renders markdown content to styled terminal output
func (r *Renderer) Render(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}

	processed := r.preprocessMarkdown(markdown)

	rendered, err := r.glamourRenderer.Render(processed)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return r.postprocessOutput(rendered), nil
}

// preprocessMarkdown trims trailing whitespace outside code fences
func (r *Renderer) preprocessMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var processed []string

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			processed = append(processed, line)
		} else if strings.TrimSpace(line) == "" {
			processed = append(processed, "")
		} else {
			processed = append(processed, strings.TrimRight(line, " \t"))
		}
	}

	return strings.Join(processed, "\n")
}

// postprocessOutput collapses runs of blank lines to keep chat bubbles tight
func (r *Renderer) postprocessOutput(rendered string) string {
	lines := strings.Split(rendered, "\n")
	var result []string
	blankCount := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, line)
			}
		} else {
			blankCount = 0
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
