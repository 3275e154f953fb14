// Package tui holds the terminal views: a live chat over one conversation
// and a paginated document reader. The views display state owned by the
// stream and reader packages; they never hold message or page state of
// their own.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/foliotalk/foliotalk/internal/chat"
	"github.com/foliotalk/foliotalk/internal/events"
	"github.com/foliotalk/foliotalk/internal/markdown"
	"github.com/foliotalk/foliotalk/internal/stream"
)

// MessageSender submits a chat message. Satisfied by stream.Stream.
type MessageSender interface {
	Send(ctx context.Context, content string) error
}

type chatKeyMap struct {
	Send     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	History  key.Binding
	Quit     key.Binding
}

var chatKeys = chatKeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send message"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdown", "scroll down"),
	),
	History: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "load older messages"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

type streamEventMsg events.Event[stream.Update]
type streamClosedMsg struct{}
type sendResultMsg struct{ err error }
type historyLoadedMsg struct {
	count   int
	hasMore bool
	err     error
}

// ChatModel is the bubbletea model for one open conversation
type ChatModel struct {
	stream   *stream.Stream
	sender   MessageSender
	renderer *markdown.Renderer
	updates  <-chan events.Event[stream.Update]

	viewport viewport.Model
	textarea textarea.Model
	width    int
	height   int

	state    stream.State
	status   string
	moreHist bool
	sending  bool
	ready    bool
}

var titleCaser = cases.Title(language.English)

// NewChatModel creates the chat view over an opened stream
func NewChatModel(ctx context.Context, s *stream.Stream) (*ChatModel, error) {
	renderer, err := markdown.NewChatRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create chat renderer: %w", err)
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message... (Enter to send)"
	ta.CharLimit = 10000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	return &ChatModel{
		stream:   s,
		sender:   s,
		renderer: renderer,
		updates:  s.Subscribe(ctx),
		textarea: ta,
		state:    s.State(),
		moreHist: true,
	}, nil
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEvent(), m.loadHistory())
}

// waitForEvent bridges the stream's event channel into the tea loop
func (m *ChatModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.updates
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg(event)
	}
}

func (m *ChatModel) loadHistory() tea.Cmd {
	return func() tea.Msg {
		count, hasMore, err := m.stream.LoadHistory(context.Background())
		return historyLoadedMsg{count: count, hasMore: hasMore, err: err}
	}
}

// send submits the drafted message. The input buffer is cleared only after
// the request succeeds; a failure keeps the draft for retry.
func (m *ChatModel) send() tea.Cmd {
	value := strings.TrimSpace(m.textarea.Value())
	if value == "" || m.sending {
		return nil
	}
	m.sending = true
	return func() tea.Msg {
		return sendResultMsg{err: m.sender.Send(context.Background(), value)}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(msg.Width - 3)
		viewportHeight := msg.Height - m.textarea.Height() - 3
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
		m.refreshMessages()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, chatKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, chatKeys.Send):
			return m, m.send()
		case key.Matches(msg, chatKeys.History):
			if m.moreHist {
				m.status = "Loading older messages..."
				return m, m.loadHistory()
			}
			return m, nil
		case key.Matches(msg, chatKeys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, chatKeys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}

	case streamEventMsg:
		m.applyStreamEvent(events.Event[stream.Update](msg))
		cmds = append(cmds, m.waitForEvent())

	case streamClosedMsg:
		return m, tea.Quit

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			// Keep the draft so the user can retry
			m.status = fmt.Sprintf("Send failed: %v", msg.err)
		} else {
			m.textarea.Reset()
			m.status = ""
		}

	case historyLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("History load failed: %v", msg.err)
		} else {
			m.moreHist = msg.hasMore
			m.status = ""
			m.refreshMessages()
			m.viewport.GotoBottom()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) applyStreamEvent(event events.Event[stream.Update]) {
	switch event.Type {
	case events.StreamMessageReceived:
		m.refreshMessages()
		m.viewport.GotoBottom()
	case events.StreamConnected:
		m.state = stream.StateConnected
		m.status = ""
	case events.StreamReconnecting:
		m.state = stream.StateReconnecting
		m.status = "Reconnecting..."
	case events.StreamError:
		if event.Payload.Err != nil {
			m.status = event.Payload.Err.Error()
		}
	}
}

// refreshMessages rebuilds the viewport content from the stream's current
// display state.
func (m *ChatModel) refreshMessages() {
	if !m.ready {
		return
	}
	var blocks []string
	for _, msg := range m.stream.Messages() {
		blocks = append(blocks, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
}

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (m *ChatModel) renderMessage(msg chat.Message) string {
	label := senderLabel(msg.Sender)
	style := userLabelStyle
	if msg.Sender == chat.SenderAgent {
		style = botLabelStyle
	}

	header := style.Render(label) + " " + timeStyle.Render(chat.FormatTime(msg.CreatedAt))

	content := msg.Content
	if msg.Sender == chat.SenderAgent {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}
	return header + "\n" + content + "\n"
}

// senderLabel title-cases the sender kind for display
func senderLabel(sender chat.SenderKind) string {
	return titleCaser.String(string(sender))
}

func (m *ChatModel) View() string {
	if !m.ready {
		return "Loading conversation..."
	}

	statusLine := ""
	if m.status != "" {
		statusLine = statusStyle.Render(m.status)
	} else if m.state == stream.StateReconnecting {
		statusLine = statusStyle.Render("Reconnecting...")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusLine,
		m.textarea.View(),
	)
}
