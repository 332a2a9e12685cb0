package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/irachat/irachat/internal/models"
)

type signedInMsg struct {
	user *models.User
	err  error
}

// SignInModel is the returning-user entry point.
type SignInModel struct {
	app        *App
	phoneInput textinput.Model
	submitting bool
	err        error
}

func NewSignInModel(app *App) SignInModel {
	input := textinput.New()
	input.Placeholder = "+256700000000"
	input.CharLimit = 16
	input.Width = 40
	input.Focus()

	return SignInModel{app: app, phoneInput: input}
}

func (m SignInModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.app.waitForAuthState())
}

func (m SignInModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authStateMsg:
		if next, cmd := m.app.routeAuthState(authState(msg)); next != nil {
			return next, cmd
		}
		return m, m.app.waitForAuthState()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			welcome := NewWelcomeModel(m.app)
			return welcome, welcome.Init()

		case "enter":
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			m.err = nil
			phone := m.phoneInput.Value()
			return m, func() tea.Msg {
				user, err := m.app.Registrar.SignIn(context.Background(), phone)
				return signedInMsg{user: user, err: err}
			}
		}

	case signedInMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.app.Auth.RefreshFromStore()
		return m, nil
	}

	var cmd tea.Cmd
	m.phoneInput, cmd = m.phoneInput.Update(msg)
	return m, cmd
}

func (m SignInModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome back") + "\n\n")
	b.WriteString(normalStyle.Render("  Sign in with your phone number.") + "\n\n")
	b.WriteString("  " + m.phoneInput.View() + "\n\n")

	if m.submitting {
		b.WriteString(statusStyle.Render("  Signing in...") + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("  "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("enter: sign in • esc: back • ctrl+c: quit"))
	return b.String()
}
