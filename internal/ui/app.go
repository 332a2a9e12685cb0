package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/chat"
	"github.com/irachat/irachat/internal/gate"
	"github.com/irachat/irachat/internal/session"
	"github.com/irachat/irachat/internal/updates"
)

// ChatEvent is a chat document change pushed from the backend stream.
type ChatEvent struct {
	ChatID string
	Patch  chat.Patch
}

// App bundles the services every screen needs. One instance is shared by
// all screen models for the life of the program.
type App struct {
	Sessions  *session.Store
	Auth      *auth.Reconciler
	Registrar *auth.Registrar
	Chats     *chat.Service
	Updates   *updates.Service
	Gate      *gate.Gate

	ChatEvents chan ChatEvent
}

type authStateMsg auth.State

func authState(msg authStateMsg) auth.State {
	return auth.State(msg)
}

type chatEventMsg ChatEvent

// waitForAuthState resumes whenever the reconciler publishes a new triple.
func (a *App) waitForAuthState() tea.Cmd {
	return func() tea.Msg {
		return authStateMsg(<-a.Auth.Updates())
	}
}

// waitForChatEvent resumes on the next pushed chat patch.
func (a *App) waitForChatEvent() tea.Cmd {
	return func() tea.Msg {
		return chatEventMsg(<-a.ChatEvents)
	}
}

// routeAuthState runs the navigation gate on a fresh auth state. The nil
// model result means "stay where you are".
func (a *App) routeAuthState(state auth.State) (tea.Model, tea.Cmd) {
	switch a.Gate.Decide(state) {
	case gate.DestMain:
		m := NewChatsModel(a)
		return m, m.Init()
	case gate.DestWelcome:
		m := NewWelcomeModel(a)
		return m, m.Init()
	case gate.DestSignIn:
		m := NewSignInModel(a)
		return m, m.Init()
	}
	return nil, nil
}
