// Package updates manages ephemeral stories, which expire 24 hours after
// posting.
package updates

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/docstore"
	"github.com/irachat/irachat/internal/models"
)

// Lifetime is how long an update stays visible.
const Lifetime = 24 * time.Hour

type Service struct {
	docs docstore.Store
	now  func() time.Time
}

func NewService(docs docstore.Store) *Service {
	return &Service{docs: docs, now: time.Now}
}

// List returns the non-expired updates newest-first. Expired entries are
// filtered out client-side; PruneExpired removes them from the backend.
func (s *Service) List(ctx context.Context) ([]models.Update, error) {
	docs, err := s.docs.Query(ctx, "updates", docstore.Filter{}, docstore.OrderBy{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load updates: %w", err)
	}

	now := s.now()
	var out []models.Update
	for _, doc := range docs {
		update := updateFromDoc(doc)
		if update.ExpiresAt.After(now) {
			out = append(out, update)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Post publishes a new update for user.
func (s *Service) Post(ctx context.Context, user models.User, caption, mediaURL string) (*models.Update, error) {
	now := s.now()
	update := models.Update{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Caption:   caption,
		MediaURL:  mediaURL,
		CreatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}

	fields := map[string]any{
		"userId":    update.UserID,
		"userName":  update.UserName,
		"caption":   update.Caption,
		"mediaUrl":  update.MediaURL,
		"createdAt": update.CreatedAt.UnixMilli(),
		"expiresAt": update.ExpiresAt.UnixMilli(),
	}
	if err := s.docs.Set(ctx, "updates", update.ID, fields, false); err != nil {
		return nil, fmt.Errorf("failed to post update: %w", err)
	}

	log.Info().Str("update_id", update.ID).Str("user_id", user.ID).Msg("update posted")
	return &update, nil
}

// PruneExpired batch-deletes updates past their expiry.
func (s *Service) PruneExpired(ctx context.Context) error {
	docs, err := s.docs.Query(ctx, "updates", docstore.Filter{}, docstore.OrderBy{})
	if err != nil {
		return fmt.Errorf("failed to list updates for pruning: %w", err)
	}

	now := s.now()
	var expired []string
	for _, doc := range docs {
		if updateFromDoc(doc).ExpiresAt.Before(now) {
			expired = append(expired, doc.ID)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	if err := s.docs.BatchDelete(ctx, "updates", expired); err != nil {
		return fmt.Errorf("failed to prune expired updates: %w", err)
	}
	log.Info().Int("count", len(expired)).Msg("expired updates pruned")
	return nil
}

func updateFromDoc(doc docstore.Document) models.Update {
	return models.Update{
		ID:        doc.ID,
		UserID:    doc.String("userId"),
		UserName:  doc.String("userName"),
		Caption:   doc.String("caption"),
		MediaURL:  doc.String("mediaUrl"),
		CreatedAt: time.UnixMilli(int64(doc.Int("createdAt"))),
		ExpiresAt: time.UnixMilli(int64(doc.Int("expiresAt"))),
	}
}
