package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RootModel is shown while the auth check runs. It owns no content of its
// own; the first gate decision replaces it with a real screen.
type RootModel struct {
	app     *App
	spinner spinner.Model
}

func NewRootModel(app *App) RootModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return RootModel{app: app, spinner: s}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.app.waitForAuthState())
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil

	case authStateMsg:
		if next, cmd := m.app.routeAuthState(authState(msg)); next != nil {
			return next, cmd
		}
		return m, m.app.waitForAuthState()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m RootModel) View() string {
	return fmt.Sprintf("\n  %s Checking authentication...\n", m.spinner.View())
}
