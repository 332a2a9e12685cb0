package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// WelcomeModel is the onboarding screen a brand-new install lands on.
type WelcomeModel struct {
	app *App
}

func NewWelcomeModel(app *App) WelcomeModel {
	return WelcomeModel{app: app}
}

func (m WelcomeModel) Init() tea.Cmd {
	return m.app.waitForAuthState()
}

func (m WelcomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authStateMsg:
		if next, cmd := m.app.routeAuthState(authState(msg)); next != nil {
			return next, cmd
		}
		return m, m.app.waitForAuthState()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			register := NewRegisterModel(m.app)
			return register, register.Init()
		case "s":
			signIn := NewSignInModel(m.app)
			return signIn, signIn.Init()
		}
	}

	return m, nil
}

func (m WelcomeModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(brandStyle.Render("  IraChat") + "\n\n")
	b.WriteString(normalStyle.Render("  Fast, simple messaging for everyone.") + "\n")
	b.WriteString(normalStyle.Render("  Create an account with your phone number to get started.") + "\n\n")
	b.WriteString(helpStyle.Render("  enter: create account • s: I already have an account • q: quit"))
	return b.String()
}
