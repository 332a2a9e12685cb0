package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/irachat/irachat/internal/models"
)

type updatesFetchedMsg struct {
	updates []models.Update
	err     error
}

type updatePostedMsg struct {
	err error
}

// UpdatesModel shows the ephemeral stories feed.
type UpdatesModel struct {
	app          *App
	updates      []models.Update
	loading      bool
	err          error
	spinner      spinner.Model
	composing    bool
	captionInput textinput.Model
	windowWidth  int
}

func NewUpdatesModel(app *App) UpdatesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	caption := textinput.New()
	caption.Placeholder = "What's happening?"
	caption.CharLimit = 140
	caption.Width = 50

	return UpdatesModel{
		app:          app,
		loading:      true,
		spinner:      s,
		captionInput: caption,
		windowWidth:  80,
	}
}

func (m UpdatesModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchUpdatesCmd(), m.app.waitForAuthState())
}

func (m UpdatesModel) fetchUpdatesCmd() tea.Cmd {
	return func() tea.Msg {
		updates, err := m.app.Updates.List(context.Background())
		return updatesFetchedMsg{updates: updates, err: err}
	}
}

func (m UpdatesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		return m, nil

	case authStateMsg:
		if next, cmd := m.app.routeAuthState(authState(msg)); next != nil {
			return next, cmd
		}
		return m, m.app.waitForAuthState()

	case updatesFetchedMsg:
		m.loading = false
		m.updates = msg.updates
		m.err = msg.err
		return m, nil

	case updatePostedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.composing = false
		m.captionInput.SetValue("")
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchUpdatesCmd())

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			switch msg.String() {
			case "esc":
				m.composing = false
				m.captionInput.Blur()
				return m, nil
			case "enter":
				caption := m.captionInput.Value()
				if strings.TrimSpace(caption) == "" {
					return m, nil
				}
				return m, m.postUpdateCmd(caption)
			}
			var cmd tea.Cmd
			m.captionInput, cmd = m.captionInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			chats := NewChatsModel(m.app)
			return chats, chats.Init()
		case "n":
			m.composing = true
			m.captionInput.Focus()
			return m, textinput.Blink
		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchUpdatesCmd())
		}
	}

	return m, nil
}

func (m UpdatesModel) postUpdateCmd(caption string) tea.Cmd {
	return func() tea.Msg {
		state := m.app.Auth.State()
		if state.User == nil {
			return updatePostedMsg{err: fmt.Errorf("not signed in")}
		}
		_, err := m.app.Updates.Post(context.Background(), *state.User, caption, "")
		return updatePostedMsg{err: err}
	}
}

func (m UpdatesModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading updates...\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Updates") + "\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	if len(m.updates) == 0 && m.err == nil {
		b.WriteString(normalStyle.Render("  No updates in the last 24 hours.") + "\n\n")
	}

	width := m.windowWidth - 6
	if width > 70 {
		width = 70
	}
	for _, update := range m.updates {
		header := fmt.Sprintf("%s • %s", update.UserName, formatTimeAgo(update.CreatedAt))
		b.WriteString(successStyle.Render("  "+header) + "\n")
		wrapped := wordwrap.String(update.Caption, width)
		for _, line := range strings.Split(wrapped, "\n") {
			b.WriteString(normalStyle.Render("  "+line) + "\n")
		}
		if update.MediaURL != "" {
			b.WriteString(mutedStyle.Render("  [media] "+update.MediaURL) + "\n")
		}
		b.WriteString("\n")
	}

	if m.composing {
		b.WriteString("  " + m.captionInput.View() + "\n")
		b.WriteString(helpStyle.Render("  enter: post • esc: cancel"))
		return b.String()
	}

	b.WriteString(helpStyle.Render("  n: new update • r: refresh • esc: back to chats • q: quit"))
	return b.String()
}
