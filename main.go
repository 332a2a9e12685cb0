package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/backend"
	"github.com/irachat/irachat/internal/chat"
	"github.com/irachat/irachat/internal/config"
	"github.com/irachat/irachat/internal/gate"
	"github.com/irachat/irachat/internal/logging"
	"github.com/irachat/irachat/internal/session"
	"github.com/irachat/irachat/internal/storage"
	"github.com/irachat/irachat/internal/ui"
	"github.com/irachat/irachat/internal/updates"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "-v", "--version":
			fmt.Printf("IraChat v%s\n", version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	closeLog := logging.Setup(cfg.DataDir, cfg.LogLevel)
	defer closeLog()

	kv := storage.Open(cfg.DataDir)
	sessions := session.NewStore(kv)

	client := backend.NewClient(cfg.BackendURL)
	if record := sessions.Retrieve(); record != nil {
		client.SetToken(record.Token)
	}

	reconciler := auth.NewReconciler(sessions, client, client)
	reconciler.SetInitTimeout(cfg.AuthTimeout())

	app := &ui.App{
		Sessions:   sessions,
		Auth:       reconciler,
		Registrar:  auth.NewRegistrar(client, sessions),
		Chats:      chat.NewService(client),
		Updates:    updates.NewService(client),
		Gate:       gate.New(sessions),
		ChatEvents: make(chan ui.ChatEvent, 32),
	}

	client.OnChatEvent(func(chatID string, patch chat.Patch) {
		select {
		case app.ChatEvents <- ui.ChatEvent{ChatID: chatID, Patch: patch}:
		default:
			log.Warn().Str("chat_id", chatID).Msg("dropping chat event, queue full")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reconciler.Start(ctx)

	p := tea.NewProgram(ui.NewRootModel(app), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	help := `IraChat - Terminal Messaging Client

Usage:
  irachat            Start the client
  irachat version    Show version information
  irachat help       Show this help message

Navigation:
  ↑/↓ or j/k        Navigate lists
  Enter             Select/Open item
  ESC               Go back
  q                 Quit from current view
  ctrl+c            Force quit

Chats:
  /                 Search chats by name or last message
  r                 Refresh the chat list
  u                 Open the updates feed
  C                 Clear selected chat's messages
  M                 Clear selected chat's media
  X                 Clear selected chat entirely
  L                 Log out

Updates:
  n                 Post a new update (visible for 24 hours)
  r                 Refresh

Configuration:
  ~/.irachat/config.yml   backend_url, data_dir, log_level,
                          auth_timeout_seconds
  Logs are written to ~/.irachat/irachat.log
`
	fmt.Print(help)
}
