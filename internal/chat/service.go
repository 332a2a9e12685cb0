// Package chat keeps the ordered chat list for the signed-in user and
// applies incoming document patches without re-querying the backend.
package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/docstore"
	"github.com/irachat/irachat/internal/models"
)

// Phase distinguishes "still loading" from "loaded but empty" from
// "load failed". Callers must be able to observe all three.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoaded
	PhaseFailed
)

// ClearOptions selects what a bulk clear removes per chat.
type ClearOptions struct {
	Messages bool
	Media    bool
	All      bool
}

// ClearResult reports a multi-chat clear per chat id, so callers can
// retry just the failed subset.
type ClearResult struct {
	Succeeded []string
	Failed    []string
}

var mediaTypes = []string{"image", "video", "audio", "document", "voice"}

// Service owns the single authoritative copy of the chat list. Screens
// render snapshots of it.
type Service struct {
	docs docstore.Store

	mu    sync.RWMutex
	chats []models.ChatSummary
	phase Phase
}

func NewService(docs docstore.Store) *Service {
	return &Service{docs: docs, phase: PhaseLoading}
}

// Load replaces the list wholesale with the user's chats ordered by most
// recent activity. On failure the list is emptied rather than left stale
// and the phase reports the failure.
func (s *Service) Load(ctx context.Context, userID string) error {
	s.setPhase(PhaseLoading)

	docs, err := s.docs.Query(ctx, "chats",
		docstore.Filter{Field: "participantIds", Op: "array-contains", Value: userID},
		docstore.OrderBy{Field: "updatedAt", Desc: true})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to load chats")
		s.mu.Lock()
		s.chats = nil
		s.phase = PhaseFailed
		s.mu.Unlock()
		return err
	}

	chats := make([]models.ChatSummary, 0, len(docs))
	for _, doc := range docs {
		chats = append(chats, summaryFromDoc(doc))
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})

	s.mu.Lock()
	s.chats = chats
	s.phase = PhaseLoaded
	s.mu.Unlock()

	log.Info().Int("count", len(chats)).Str("user_id", userID).Msg("chat list loaded")
	return nil
}

// Chats returns a snapshot of the full list.
func (s *Service) Chats() []models.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatSummary, len(s.chats))
	copy(out, s.chats)
	return out
}

func (s *Service) setPhase(phase Phase) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

// Phase returns the current load phase.
func (s *Service) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Search filters the loaded list by case-insensitive substring match over
// name and last message, preserving relative order. It never touches the
// backend; an empty query returns the full list.
func (s *Service) Search(query string) []models.ChatSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.Chats()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChatSummary
	for _, chat := range s.chats {
		if strings.Contains(strings.ToLower(chat.Name), query) ||
			strings.Contains(strings.ToLower(chat.LastMessage), query) {
			out = append(out, chat)
		}
	}
	return out
}

// Patch is a partial chat update from an incoming document change. Nil
// pointer fields are left untouched.
type Patch struct {
	Name        *string
	Avatar      *string
	LastMessage *string
	LastAt      *time.Time
	UnreadCount *int
	IsOnline    *bool
	IsTyping    *bool
}

// UpsertAndReorder merges patch into the chat (inserting it if new) and
// moves it to the front, keeping every other entry in relative order.
// This is the only mutation path on update events; id uniqueness rules
// out duplicate rows.
func (s *Service) UpsertAndReorder(chatID string, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.ChatSummary{ID: chatID, LastMessageAt: time.Now()}
	rest := make([]models.ChatSummary, 0, len(s.chats))
	for _, chat := range s.chats {
		if chat.ID == chatID {
			entry = chat
			continue
		}
		rest = append(rest, chat)
	}

	applyPatch(&entry, patch)
	s.chats = append([]models.ChatSummary{entry}, rest...)
}

// InsertLocal places an optimistically created chat at the front of the
// list before the backend confirms it.
func (s *Service) InsertLocal(summary models.ChatSummary) {
	s.UpsertAndReorder(summary.ID, Patch{
		Name:        &summary.Name,
		Avatar:      &summary.Avatar,
		LastMessage: &summary.LastMessage,
		LastAt:      &summary.LastMessageAt,
	})
}

// Clear runs the selected destructive operation against each chat id and
// reports success per id. A failing chat does not stop the rest.
func (s *Service) Clear(ctx context.Context, chatIDs []string, options ClearOptions) ClearResult {
	var result ClearResult
	for _, chatID := range chatIDs {
		if err := s.clearOne(ctx, chatID, options); err != nil {
			log.Error().Err(err).Str("chat_id", chatID).Msg("failed to clear chat")
			result.Failed = append(result.Failed, chatID)
			continue
		}
		result.Succeeded = append(result.Succeeded, chatID)
	}

	if options.All && len(result.Succeeded) > 0 {
		s.mu.Lock()
		kept := s.chats[:0]
		for _, chat := range s.chats {
			if !contains(result.Succeeded, chat.ID) {
				kept = append(kept, chat)
			}
		}
		s.chats = kept
		s.mu.Unlock()
	}

	log.Info().Int("succeeded", len(result.Succeeded)).Int("failed", len(result.Failed)).Msg("bulk clear finished")
	return result
}

func (s *Service) clearOne(ctx context.Context, chatID string, options ClearOptions) error {
	switch {
	case options.All:
		if err := s.deleteMessages(ctx, chatID, docstore.Filter{}); err != nil {
			return err
		}
		return s.docs.Delete(ctx, "chats", chatID)
	case options.Messages && options.Media:
		return s.deleteMessages(ctx, chatID, docstore.Filter{})
	case options.Messages:
		return s.deleteMessages(ctx, chatID, docstore.Filter{Field: "type", Op: "==", Value: "text"})
	case options.Media:
		for _, mediaType := range mediaTypes {
			if err := s.deleteMessages(ctx, chatID, docstore.Filter{Field: "type", Op: "==", Value: mediaType}); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// deleteMessages batch-deletes a chat's messages matching filter.
func (s *Service) deleteMessages(ctx context.Context, chatID string, filter docstore.Filter) error {
	collection := "chats/" + chatID + "/messages"
	docs, err := s.docs.Query(ctx, collection, filter, docstore.OrderBy{})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return s.docs.BatchDelete(ctx, collection, ids)
}

func applyPatch(entry *models.ChatSummary, patch Patch) {
	if patch.Name != nil {
		entry.Name = *patch.Name
	}
	if patch.Avatar != nil {
		entry.Avatar = *patch.Avatar
	}
	if patch.LastMessage != nil {
		entry.LastMessage = *patch.LastMessage
	}
	if patch.LastAt != nil {
		entry.LastMessageAt = *patch.LastAt
	}
	if patch.UnreadCount != nil {
		entry.UnreadCount = *patch.UnreadCount
	}
	if patch.IsOnline != nil {
		entry.IsOnline = *patch.IsOnline
	}
	if patch.IsTyping != nil {
		entry.IsTyping = *patch.IsTyping
	}
}

func summaryFromDoc(doc docstore.Document) models.ChatSummary {
	summary := models.ChatSummary{
		ID:             doc.ID,
		Name:           doc.String("name"),
		Avatar:         doc.String("avatar"),
		IsGroup:        doc.Bool("isGroup"),
		ParticipantIDs: doc.Strings("participantIds"),
		LastMessage:    doc.String("lastMessage"),
		UnreadCount:    doc.Int("unreadCount"),
		IsOnline:       doc.Bool("isOnline"),
	}
	if millis := int64(doc.Int("updatedAt")); millis > 0 {
		summary.LastMessageAt = time.UnixMilli(millis)
	}
	return summary
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
