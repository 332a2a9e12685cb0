package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/models"
)

type accountCreatedMsg struct {
	user *models.User
	err  error
}

// RegisterModel is the account creation form.
type RegisterModel struct {
	app        *App
	inputs     []textinput.Model
	focusIndex int
	submitting bool
	err        error
}

const (
	fieldName = iota
	fieldUsername
	fieldPhone
	fieldBio
)

func NewRegisterModel(app *App) RegisterModel {
	labels := []struct {
		placeholder string
		limit       int
	}{
		{"Full Name", 100},
		{"@username", 30},
		{"+256700000000", 16},
		{"Bio (optional)", 140},
	}

	inputs := make([]textinput.Model, len(labels))
	for i, label := range labels {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = label.placeholder
		inputs[i].CharLimit = label.limit
		inputs[i].Width = 40
	}
	inputs[fieldName].Focus()

	return RegisterModel{app: app, inputs: inputs}
}

func (m RegisterModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.app.waitForAuthState())
}

func (m RegisterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

		case "tab", "down", "shift+tab", "up":
			if msg.String() == "up" || msg.String() == "shift+tab" {
				m.focusIndex--
				if m.focusIndex < 0 {
					m.focusIndex = len(m.inputs) - 1
				}
			} else {
				m.focusIndex++
				if m.focusIndex >= len(m.inputs) {
					m.focusIndex = 0
				}
			}
			m.updateFocus()
			return m, nil

		case "ctrl+s", "enter":
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			m.err = nil
			return m, m.submit()
		}

	case accountCreatedMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// The stored session becomes visible through the reconciler; the
		// resulting auth flip routes to the main screen.
		m.app.Auth.RefreshFromStore()
		return m, nil
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m RegisterModel) submit() tea.Cmd {
	input := auth.RegisterInput{
		Name:        m.inputs[fieldName].Value(),
		Username:    m.inputs[fieldUsername].Value(),
		PhoneNumber: m.inputs[fieldPhone].Value(),
		Bio:         m.inputs[fieldBio].Value(),
	}
	return func() tea.Msg {
		user, err := m.app.Registrar.Register(context.Background(), input)
		return accountCreatedMsg{user: user, err: err}
	}
}

func (m *RegisterModel) updateFocus() {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *RegisterModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (m RegisterModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create your IraChat account") + "\n\n")

	labels := []string{"Name", "Username", "Phone", "Bio"}
	for i, input := range m.inputs {
		label := labels[i]
		if i == m.focusIndex {
			b.WriteString(inputStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(normalStyle.Render("  "+label) + "\n")
		}
		b.WriteString("  " + input.View() + "\n\n")
	}

	if m.submitting {
		b.WriteString(statusStyle.Render("  Creating account...") + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("  "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab: next field • enter: create account • esc: back • ctrl+c: quit"))
	return b.String()
}
