package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/irachat/irachat/internal/chat"
	"github.com/irachat/irachat/internal/models"
)

type chatItem struct {
	chat models.ChatSummary
}

func (i chatItem) Title() string {
	title := i.chat.Name
	if i.chat.IsGroup {
		title = "👥 " + title
	}
	if i.chat.UnreadCount > 0 {
		title = fmt.Sprintf("%s (%d)", title, i.chat.UnreadCount)
	}
	return title
}

func (i chatItem) Description() string {
	preview := i.chat.LastMessage
	if i.chat.IsTyping {
		preview = "typing..."
	}
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(i.chat.LastMessageAt), preview)
}

func (i chatItem) FilterValue() string {
	return i.chat.Name
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	case duration < 48*time.Hour:
		return "yesterday"
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

type chatsLoadedMsg struct {
	err error
}

type chatsClearedMsg struct {
	result chat.ClearResult
}

// ChatsModel is the main screen: the chat list with search, refresh, and
// the destructive clear operations.
type ChatsModel struct {
	app          *App
	list         list.Model
	spinner      spinner.Model
	searchInput  textinput.Model
	searching    bool
	status       string
	windowWidth  int
	windowHeight int
}

func NewChatsModel(app *App) ChatsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("39")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	search := textinput.New()
	search.Placeholder = "Search chats"
	search.CharLimit = 60
	search.Width = 40

	return ChatsModel{
		app:          app,
		list:         l,
		spinner:      s,
		searchInput:  search,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m ChatsModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadChatsCmd(),
		m.app.waitForAuthState(),
		m.app.waitForChatEvent(),
	)
}

func (m ChatsModel) loadChatsCmd() tea.Cmd {
	return func() tea.Msg {
		state := m.app.Auth.State()
		if state.User == nil {
			return chatsLoadedMsg{}
		}
		err := m.app.Chats.Load(context.Background(), state.User.ID)
		return chatsLoadedMsg{err: err}
	}
}

func (m *ChatsModel) refreshItems() {
	chats := m.app.Chats.Search(m.searchInput.Value())
	items := make([]list.Item, len(chats))
	for i, c := range chats {
		items[i] = chatItem{chat: c}
	}
	m.list.SetItems(items)

	if m.searchInput.Value() != "" {
		m.list.Title = fmt.Sprintf("Search results - %d chats", len(chats))
	} else {
		m.list.Title = fmt.Sprintf("Chats - %d", len(chats))
	}
}

func (m ChatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 6)
		return m, nil

	case authStateMsg:
		if next, cmd := m.app.routeAuthState(authState(msg)); next != nil {
			return next, cmd
		}
		return m, m.app.waitForAuthState()

	case chatEventMsg:
		m.app.Chats.UpsertAndReorder(msg.ChatID, msg.Patch)
		m.refreshItems()
		return m, m.app.waitForChatEvent()

	case chatsLoadedMsg:
		m.refreshItems()
		return m, nil

	case chatsClearedMsg:
		m.refreshItems()
		if len(msg.result.Failed) > 0 {
			m.status = fmt.Sprintf("Cleared %d, failed %d (retry: %v)",
				len(msg.result.Succeeded), len(msg.result.Failed), msg.result.Failed)
		} else {
			m.status = fmt.Sprintf("Cleared %d chats", len(msg.result.Succeeded))
		}
		return m, nil

	case spinner.TickMsg:
		if m.app.Chats.Phase() == chat.PhaseLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m ChatsModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.refreshItems()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	// The filter is pure and local; recompute on every keystroke.
	m.refreshItems()
	return m, cmd
}

func (m ChatsModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "/":
		m.searching = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case "r":
		if m.app.Chats.Phase() != chat.PhaseLoading {
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, m.loadChatsCmd())
		}
		return m, nil

	case "u":
		updatesModel := NewUpdatesModel(m.app)
		return updatesModel, updatesModel.Init()

	case "C", "M", "X":
		return m, m.clearSelectedCmd(msg.String())

	case "L":
		return m, func() tea.Msg {
			m.app.Auth.Logout(context.Background())
			return nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ChatsModel) clearSelectedCmd(key string) tea.Cmd {
	item, ok := m.list.SelectedItem().(chatItem)
	if !ok {
		return nil
	}

	options := chat.ClearOptions{}
	switch key {
	case "C":
		options.Messages = true
	case "M":
		options.Media = true
	case "X":
		options.All = true
	}

	chatID := item.chat.ID
	return func() tea.Msg {
		result := m.app.Chats.Clear(context.Background(), []string{chatID}, options)
		return chatsClearedMsg{result: result}
	}
}

func (m ChatsModel) View() string {
	switch m.app.Chats.Phase() {
	case chat.PhaseLoading:
		return fmt.Sprintf("\n  %s Loading chats...\n", m.spinner.View())

	case chat.PhaseFailed:
		s := titleStyle.Render("Chats") + "\n\n"
		s += errorStyle.Render("  Could not load your chats.") + "\n\n"
		s += helpStyle.Render("  r: retry • q: quit")
		return s
	}

	if len(m.app.Chats.Chats()) == 0 {
		s := titleStyle.Render("Chats") + "\n\n"
		s += normalStyle.Render("  No chats yet. Say hello to someone!") + "\n\n"
		s += helpStyle.Render("  r: refresh • u: updates • L: log out • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	if m.searching {
		s += "  " + m.searchInput.View() + "\n"
	}
	if m.status != "" {
		s += statusStyle.Render("  "+m.status) + "\n"
	}
	s += helpStyle.Render("↑↓/jk: navigate • /: search • r: refresh • u: updates • C/M/X: clear msgs/media/all • L: log out • q: quit")
	return s
}
