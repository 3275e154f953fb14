package tui

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/foliotalk/foliotalk/internal/events"
	"github.com/foliotalk/foliotalk/internal/reader"
)

type readerKeyMap struct {
	NextPage key.Binding
	PrevPage key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Rotate   key.Binding
	Invert   key.Binding
	Bookmark key.Binding
	Sidebar  key.Binding
	Select   key.Binding
	Up       key.Binding
	Down     key.Binding
	Quit     key.Binding
}

var readerKeys = readerKeyMap{
	NextPage: key.NewBinding(
		key.WithKeys("pgdown", "j"),
		key.WithHelp("j", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("pgup", "k"),
		key.WithHelp("k", "previous page"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "zoom out"),
	),
	Rotate: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rotate"),
	),
	Invert: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "invert colors"),
	),
	Bookmark: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "toggle bookmark"),
	),
	Sidebar: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "toggle sidebar"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "go to entry"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("up", "previous entry"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("down", "next entry"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

type readerEventMsg events.Event[reader.Update]
type readerClosedMsg struct{}

// sidebarEntry is one navigable row in the outline/bookmark sidebar
type sidebarEntry struct {
	title string
	item  reader.OutlineItem
}

// ReaderModel is the bubbletea model for the document reader
type ReaderModel struct {
	reader  *reader.Reader
	updates <-chan events.Event[reader.Update]

	width  int
	height int

	raster  image.Image
	rasterP int // page the raster belongs to

	sidebar  bool
	filter   string
	cursor   int
	entries  []sidebarEntry
	filtered []sidebarEntry

	status string
}

// NewReaderModel creates the reader view over a loaded document
func NewReaderModel(ctx context.Context, r *reader.Reader) *ReaderModel {
	m := &ReaderModel{
		reader:  r,
		updates: r.Subscribe(ctx),
	}
	m.rebuildEntries()
	return m
}

func (m *ReaderModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.requestCurrentPage())
}

func (m *ReaderModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.updates
		if !ok {
			return readerClosedMsg{}
		}
		return readerEventMsg(event)
	}
}

func (m *ReaderModel) requestCurrentPage() tea.Cmd {
	page := m.reader.CurrentPage()
	return func() tea.Msg {
		m.reader.RequestPage(context.Background(), page)
		return nil
	}
}

// rebuildEntries collects outline items and bookmarks into one sidebar list
func (m *ReaderModel) rebuildEntries() {
	var entries []sidebarEntry
	for _, item := range m.reader.Outline() {
		indent := ""
		if item.Level > 1 {
			indent = strings.Repeat("  ", item.Level-1)
		}
		entries = append(entries, sidebarEntry{
			title: indent + item.Title,
			item:  item,
		})
	}
	for _, b := range m.reader.Bookmarks() {
		entries = append(entries, sidebarEntry{
			title: "★ " + b.Title,
			item:  reader.OutlineItem{Title: b.Title, Page: b.Page},
		})
	}
	m.entries = entries
	m.applyFilter()
}

// applyFilter narrows the sidebar with fuzzy matching, ranked best-first
func (m *ReaderModel) applyFilter() {
	if m.filter == "" {
		m.filtered = m.entries
	} else {
		titles := make([]string, len(m.entries))
		for i, e := range m.entries {
			titles[i] = e.title
		}
		ranks := fuzzy.RankFindFold(m.filter, titles)
		sort.Sort(ranks)
		filtered := make([]sidebarEntry, 0, len(ranks))
		for _, rank := range ranks {
			filtered = append(filtered, m.entries[rank.OriginalIndex])
		}
		m.filtered = filtered
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
}

func (m *ReaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reader.SetViewport(float64(msg.Height))

	case tea.KeyMsg:
		if m.sidebar {
			return m.updateSidebar(msg)
		}
		return m.updateView(msg)

	case readerEventMsg:
		event := events.Event[reader.Update](msg)
		switch event.Type {
		case events.ReaderPageRendered:
			// Only the current page's raster is displayed; stale pages are
			// simply ignored
			if event.Payload.Page == m.reader.CurrentPage() {
				m.raster = event.Payload.Image
				m.rasterP = event.Payload.Page
			}
		case events.ReaderPageChanged:
			m.status = ""
		}
		return m, m.waitForEvent()

	case readerClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m *ReaderModel) updateView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, readerKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, readerKeys.NextPage):
		m.reader.GoToPage(m.reader.CurrentPage() + 1)
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.PrevPage):
		m.reader.GoToPage(m.reader.CurrentPage() - 1)
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.ZoomIn):
		m.reader.ZoomIn()
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.ZoomOut):
		m.reader.ZoomOut()
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.Rotate):
		m.reader.Rotate()
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.Invert):
		m.reader.ToggleInvert()
		return m, m.requestCurrentPage()
	case key.Matches(msg, readerKeys.Bookmark):
		added, err := m.reader.ToggleBookmark()
		if err != nil {
			m.status = fmt.Sprintf("Bookmark failed: %v", err)
		} else if added {
			m.status = fmt.Sprintf("Bookmarked page %d", m.reader.CurrentPage())
		} else {
			m.status = fmt.Sprintf("Removed bookmark on page %d", m.reader.CurrentPage())
		}
		m.rebuildEntries()
		return m, nil
	case key.Matches(msg, readerKeys.Sidebar):
		m.sidebar = true
		m.filter = ""
		m.cursor = 0
		m.rebuildEntries()
		return m, nil
	}
	return m, nil
}

func (m *ReaderModel) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, readerKeys.Quit), key.Matches(msg, readerKeys.Sidebar):
		m.sidebar = false
		return m, nil
	case key.Matches(msg, readerKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, readerKeys.Down):
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, readerKeys.Select):
		if m.cursor < len(m.filtered) {
			entry := m.filtered[m.cursor]
			if _, ok := m.reader.GoToOutline(context.Background(), entry.item); ok {
				m.sidebar = false
				return m, m.requestCurrentPage()
			}
			m.status = "Destination did not resolve"
		}
		return m, nil
	}

	// Everything else edits the fuzzy filter
	switch msg.Type {
	case tea.KeyBackspace:
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.applyFilter()
		}
	case tea.KeyRunes:
		m.filter += string(msg.Runes)
		m.applyFilter()
	}
	return m, nil
}

var (
	pageIndicatorStyle = lipgloss.NewStyle().Bold(true)
	sidebarStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).PaddingRight(1)
	cursorStyle        = lipgloss.NewStyle().Reverse(true)
	metaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (m *ReaderModel) View() string {
	header := m.headerView()
	body := m.pageView()
	if m.sidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebarStyle.Render(m.sidebarView()), body)
	}

	statusLine := ""
	if m.status != "" {
		statusLine = statusStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusLine)
}

func (m *ReaderModel) headerView() string {
	g := m.reader.Geometry()
	indicator := fmt.Sprintf("Page %d / %d", m.reader.CurrentPage(), m.reader.NumPages())
	controls := fmt.Sprintf("zoom %.1fx  rot %d°", g.Scale, g.Rotation)
	if m.reader.Inverted() {
		controls += "  inverted"
	}

	title := m.reader.Metadata().Title
	if title == "" {
		title = "Untitled"
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		pageIndicatorStyle.Render(indicator),
		metaStyle.Render("  "+title+"  "),
		metaStyle.Render(controls),
	)
}

// pageView summarizes the rendered raster. The terminal shows page geometry
// rather than pixels; the raster itself is what the renderer produced.
func (m *ReaderModel) pageView() string {
	if m.raster == nil || m.rasterP != m.reader.CurrentPage() {
		return "\n  Rendering..."
	}
	bounds := m.raster.Bounds()
	return fmt.Sprintf("\n  [page %d rendered: %dx%d]", m.rasterP, bounds.Dx(), bounds.Dy())
}

func (m *ReaderModel) sidebarView() string {
	var b strings.Builder
	b.WriteString("Filter: " + m.filter + "\n\n")
	for i, entry := range m.filtered {
		line := entry.title
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(metaStyle.Render("(no matches)"))
	}
	return b.String()
}
