// Package session persists the signed-in user between launches.
//
// The record lives under a fixed key in local storage alongside a separate
// authenticated flag; a session counts only while both agree and the record
// has not expired. Expiry is enforced on read, not by a background timer.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/models"
	"github.com/irachat/irachat/internal/storage"
)

const (
	recordKey      = "irachat_auth_token"
	stateKey       = "irachat_auth_state"
	firstLaunchKey = "irachat_first_launch"

	defaultLifetime = 7 * 24 * time.Hour
)

// ErrNoSession is returned by UpdateUser when there is nothing to update.
var ErrNoSession = errors.New("no stored session")

// Store wraps local key-value storage with session semantics.
type Store struct {
	kv  storage.KV
	now func() time.Time
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// NewRecord builds a session record for user. When token carries a
// parseable JWT exp claim that becomes the expiry; otherwise the record
// lasts a week.
func NewRecord(user models.User, token string, now time.Time) models.Session {
	expiresAt := now.Add(defaultLifetime)
	if claims, err := tokenExpiry(token); err == nil {
		expiresAt = claims
	}
	return models.Session{
		Token:     token,
		ExpiresAt: expiresAt.UnixMilli(),
		User:      user,
	}
}

func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return exp.Time, nil
}

// Store writes the record and sets the authenticated flag, overwriting any
// prior record.
func (s *Store) Store(record models.Session) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := s.kv.Set(recordKey, string(data)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.kv.Set(stateKey, "true"); err != nil {
		return fmt.Errorf("failed to store auth state: %w", err)
	}
	return nil
}

// Retrieve returns the stored session, or nil when none exists. Expired
// and unparseable records are purged and reported as absent; storage
// failures are logged and reported as absent. Callers never see an error
// here.
func (s *Store) Retrieve() *models.Session {
	data, ok, err := s.kv.Get(recordKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read stored session")
		return nil
	}
	if !ok {
		return nil
	}

	var record models.Session
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		log.Warn().Err(err).Msg("purging corrupt session record")
		s.Clear()
		return nil
	}

	if record.Expired(s.now()) {
		log.Info().Msg("stored session has expired")
		s.Clear()
		return nil
	}

	return &record
}

// IsAuthenticated is true only when the flag is set and a live record
// exists. The double check keeps the flag from outliving a stale record.
func (s *Store) IsAuthenticated() bool {
	state, ok, err := s.kv.Get(stateKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read auth state")
		return false
	}
	return ok && state == "true" && s.Retrieve() != nil
}

// Clear removes the record and the flag. Logout must always be able to
// proceed, so removal failures are logged and swallowed.
func (s *Store) Clear() {
	if err := s.kv.Remove(recordKey); err != nil {
		log.Error().Err(err).Msg("failed to remove session record")
	}
	if err := s.kv.Remove(stateKey); err != nil {
		log.Error().Err(err).Msg("failed to remove auth state")
	}
}

// UpdateUser merges profile fields into the stored record, keeping token
// and expiry.
func (s *Store) UpdateUser(apply func(*models.User)) error {
	record := s.Retrieve()
	if record == nil {
		return ErrNoSession
	}
	apply(&record.User)
	return s.Store(*record)
}

// User returns the stored user without the rest of the record.
func (s *Store) User() *models.User {
	record := s.Retrieve()
	if record == nil {
		return nil
	}
	return &record.User
}

// IsFirstLaunch reports whether this device has never been past the
// welcome screen. Unreadable storage counts as a first launch.
func (s *Store) IsFirstLaunch() bool {
	value, ok, err := s.kv.Get(firstLaunchKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read first-launch flag")
		return true
	}
	return !ok || value != "true"
}

// MarkFirstLaunchDone is set once, on first welcome-screen interaction,
// and never cleared in normal operation.
func (s *Store) MarkFirstLaunchDone() {
	if err := s.kv.Set(firstLaunchKey, "true"); err != nil {
		log.Error().Err(err).Msg("failed to mark first launch done")
	}
}

// ResetFirstLaunch exists for test and reset flows only.
func (s *Store) ResetFirstLaunch() {
	if err := s.kv.Remove(firstLaunchKey); err != nil {
		log.Error().Err(err).Msg("failed to reset first-launch flag")
	}
}
