package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/docstore"
	"github.com/irachat/irachat/internal/models"
	"github.com/irachat/irachat/internal/session"
)

var (
	// ErrPhoneTaken means the phone number already has an account.
	ErrPhoneTaken = errors.New("this phone number is already registered")
	// ErrUsernameTaken means the username belongs to someone else.
	ErrUsernameTaken = errors.New("this username is already taken")
	// ErrAccountNotFound is returned by SignIn for an unknown phone number.
	ErrAccountNotFound = errors.New("no account found for this phone number")
)

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidationError carries a user-actionable message for a specific field,
// distinct from backend failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RegisterInput is what the registration form collects.
type RegisterInput struct {
	Name        string
	Username    string
	PhoneNumber string
	Bio         string
	Avatar      string
}

// Validate applies the client-side checks before anything touches the
// backend.
func (in *RegisterInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if len(name) < 3 {
		return &ValidationError{Field: "name", Message: "name too short: use at least 3 characters"}
	}
	username := strings.TrimSpace(in.Username)
	if !strings.HasPrefix(username, "@") || len(username) < 4 {
		return &ValidationError{Field: "username", Message: "username must start with @ and be at least 3 characters long"}
	}
	if !phonePattern.MatchString(strings.TrimSpace(in.PhoneNumber)) {
		return &ValidationError{Field: "phoneNumber", Message: "enter the phone number in international format, e.g. +256700000000"}
	}
	return nil
}

// Registrar creates accounts and signs returning users back in.
type Registrar struct {
	docs     docstore.Store
	sessions *session.Store
}

func NewRegistrar(docs docstore.Store, sessions *session.Store) *Registrar {
	return &Registrar{docs: docs, sessions: sessions}
}

// Register validates the input, rejects phone/username conflicts, writes
// the user document, and stores a fresh session record. Validation and
// conflict failures leave no session behind.
func (r *Registrar) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(input.PhoneNumber)
	username := strings.TrimSpace(input.Username)

	if err := r.checkUnique(ctx, "phoneNumber", phone, ErrPhoneTaken); err != nil {
		return nil, err
	}
	if err := r.checkUnique(ctx, "username", username, ErrUsernameTaken); err != nil {
		return nil, err
	}

	user := models.User{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		Name:        strings.TrimSpace(input.Name),
		DisplayName: strings.TrimSpace(input.Name),
		Username:    username,
		Avatar:      input.Avatar,
		Bio:         defaultString(input.Bio, "I Love IraChat"),
		Status:      defaultString(input.Bio, "I Love IraChat"),
		IsOnline:    true,
	}

	if err := r.docs.Set(ctx, "users", user.ID, userFields(user), false); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token := fmt.Sprintf("session_%s_%d", user.ID, time.Now().UnixMilli())
	if err := r.sessions.Store(session.NewRecord(user, token, time.Now())); err != nil {
		return nil, fmt.Errorf("account created but session could not be stored: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("account registered")
	return &user, nil
}

// SignIn resolves an existing account by phone number and restores a local
// session for it.
func (r *Registrar) SignIn(ctx context.Context, phoneNumber string) (*models.User, error) {
	phone := strings.TrimSpace(phoneNumber)
	if !phonePattern.MatchString(phone) {
		return nil, &ValidationError{Field: "phoneNumber", Message: "enter the phone number in international format, e.g. +256700000000"}
	}

	docs, err := r.docs.Query(ctx, "users",
		docstore.Filter{Field: "phoneNumber", Op: "==", Value: phone},
		docstore.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrAccountNotFound
	}

	doc := docs[0]
	user := models.User{
		ID:             doc.ID,
		PhoneNumber:    doc.String("phoneNumber"),
		Name:           doc.String("name"),
		DisplayName:    defaultString(doc.String("displayName"), doc.String("name")),
		Username:       doc.String("username"),
		Avatar:         doc.String("avatar"),
		Bio:            defaultString(doc.String("bio"), "I Love IraChat"),
		Status:         defaultString(doc.String("status"), "I Love IraChat"),
		IsOnline:       true,
		FollowersCount: doc.Int("followersCount"),
		FollowingCount: doc.Int("followingCount"),
		LikesCount:     doc.Int("likesCount"),
	}

	token := fmt.Sprintf("session_%s_%d", user.ID, time.Now().UnixMilli())
	if err := r.sessions.Store(session.NewRecord(user, token, time.Now())); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("signed in")
	return &user, nil
}

func (r *Registrar) checkUnique(ctx context.Context, field, value string, conflict error) error {
	docs, err := r.docs.Query(ctx, "users",
		docstore.Filter{Field: field, Op: "==", Value: value},
		docstore.OrderBy{})
	if err != nil {
		// Uniqueness cannot be verified offline; the backend enforces it
		// again on write.
		log.Warn().Err(err).Str("field", field).Msg("could not verify uniqueness, continuing")
		return nil
	}
	if len(docs) > 0 {
		return conflict
	}
	return nil
}

func userFields(user models.User) map[string]any {
	return map[string]any{
		"phoneNumber":    user.PhoneNumber,
		"name":           user.Name,
		"displayName":    user.DisplayName,
		"username":       user.Username,
		"avatar":         user.Avatar,
		"bio":            user.Bio,
		"status":         user.Status,
		"isOnline":       user.IsOnline,
		"followersCount": user.FollowersCount,
		"followingCount": user.FollowingCount,
		"likesCount":     user.LikesCount,
	}
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
