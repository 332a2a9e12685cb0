package backend

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/chat"
)

// event is one websocket frame from /ws.
type event struct {
	Type     string          `json:"type"`
	Identity *identityEvent  `json:"identity,omitempty"`
	ChatID   string          `json:"chatId,omitempty"`
	Patch    json.RawMessage `json:"patch,omitempty"`
}

type identityEvent struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

type chatPatch struct {
	Name          *string `json:"name"`
	Avatar        *string `json:"avatar"`
	LastMessage   *string `json:"lastMessage"`
	LastMessageAt *int64  `json:"lastMessageAt"`
	UnreadCount   *int    `json:"unreadCount"`
	IsOnline      *bool   `json:"isOnline"`
	IsTyping      *bool   `json:"isTyping"`
}

// OnChatEvent registers the callback invoked for every chat document
// change pushed by the server.
func (c *Client) OnChatEvent(fn func(chatID string, patch chat.Patch)) {
	c.mu.Lock()
	c.onChat = fn
	c.mu.Unlock()
}

// Subscribe implements auth.Provider. The server's current answer is
// delivered first (so subscribers always hear something), then a read
// loop on /ws pushes every later auth change and chat patch until
// unsubscribe is called.
func (c *Client) Subscribe(onChange func(*auth.Identity)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		identity, err := c.CurrentIdentity(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("initial identity check failed")
		}
		if ctx.Err() == nil {
			onChange(identity)
		}
		c.readLoop(ctx, onChange)
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// readLoop keeps a websocket open to /ws, redialing with a short backoff
// when the connection drops.
func (c *Client) readLoop(ctx context.Context, onChange func(*auth.Identity)) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"

	for ctx.Err() == nil {
		header := map[string][]string{}
		if token := c.currentToken(); token != "" {
			header["Authorization"] = []string{"Bearer " + token}
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
		if err != nil {
			log.Warn().Err(err).Msg("event stream dial failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			var ev event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Msg("event stream closed, reconnecting")
				}
				conn.Close()
				break
			}
			c.dispatch(ev, onChange)
		}
	}
}

func (c *Client) dispatch(ev event, onChange func(*auth.Identity)) {
	switch ev.Type {
	case "auth":
		if ev.Identity == nil {
			onChange(nil)
			return
		}
		c.SetToken(ev.Identity.Token)
		onChange(&auth.Identity{
			ID:          ev.Identity.ID,
			PhoneNumber: ev.Identity.PhoneNumber,
			DisplayName: ev.Identity.DisplayName,
			Token:       ev.Identity.Token,
		})

	case "chat":
		c.mu.RLock()
		onChat := c.onChat
		c.mu.RUnlock()
		if onChat == nil || ev.ChatID == "" {
			return
		}

		var raw chatPatch
		if err := json.Unmarshal(ev.Patch, &raw); err != nil {
			log.Warn().Err(err).Str("chat_id", ev.ChatID).Msg("dropping malformed chat patch")
			return
		}

		patch := chat.Patch{
			Name:        raw.Name,
			Avatar:      raw.Avatar,
			LastMessage: raw.LastMessage,
			UnreadCount: raw.UnreadCount,
			IsOnline:    raw.IsOnline,
			IsTyping:    raw.IsTyping,
		}
		if raw.LastMessageAt != nil {
			at := time.UnixMilli(*raw.LastMessageAt)
			patch.LastAt = &at
		}
		onChat(ev.ChatID, patch)

	default:
		log.Debug().Str("type", ev.Type).Msg("ignoring unknown event type")
	}
}
