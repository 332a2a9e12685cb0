// Package auth combines the locally stored session with the identity
// provider's live answer into one authoritative auth state.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/docstore"
	"github.com/irachat/irachat/internal/models"
	"github.com/irachat/irachat/internal/session"
)

// DefaultInitTimeout bounds how long the UI may sit on the loading screen
// waiting for the provider's first answer.
const DefaultInitTimeout = 3 * time.Second

// State is the triple the rest of the app navigates on.
type State struct {
	IsInitializing  bool
	IsAuthenticated bool
	User            *models.User
}

// Reconciler watches the provider and the local session store. The
// optimistic local read and the provider subscription race; last write
// wins, and the provider's answer eventually overrides local truth.
type Reconciler struct {
	sessions    *session.Store
	provider    Provider
	docs        docstore.Store
	initTimeout time.Duration

	mu          sync.Mutex
	state       State
	initialized bool
	unsubscribe func()

	updates chan State
}

func NewReconciler(sessions *session.Store, provider Provider, docs docstore.Store) *Reconciler {
	return &Reconciler{
		sessions:    sessions,
		provider:    provider,
		docs:        docs,
		initTimeout: DefaultInitTimeout,
		state:       State{IsInitializing: true},
		updates:     make(chan State, 16),
	}
}

// SetInitTimeout overrides the initialization bound. Zero keeps the default.
func (r *Reconciler) SetInitTimeout(d time.Duration) {
	if d > 0 {
		r.initTimeout = d
	}
}

// Updates delivers every state change. The channel is buffered; a slow
// reader drops intermediate states but always observes the latest via
// State().
func (r *Reconciler) Updates() <-chan State {
	return r.updates
}

// State returns a snapshot of the current triple.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start performs the optimistic local read, subscribes to the provider,
// and arms the initialization timeout. It returns immediately; state
// arrives over Updates.
func (r *Reconciler) Start(ctx context.Context) {
	// Optimistic step: render the signed-in shell from the stored record
	// without waiting on the network.
	if record := r.sessions.Retrieve(); record != nil {
		log.Info().Str("user_id", record.User.ID).Msg("restored session from local storage")
		user := record.User
		r.setState(State{IsAuthenticated: true, User: &user}, false)
	} else {
		r.setState(State{IsAuthenticated: false}, false)
	}

	unsubscribe, err := r.provider.Subscribe(func(identity *Identity) {
		r.reconcile(ctx, identity)
	})
	if err != nil {
		// No live provider: stored auth is all we have.
		log.Warn().Err(err).Msg("identity provider unavailable, using stored session only")
		r.finishInit()
	} else {
		r.mu.Lock()
		r.unsubscribe = unsubscribe
		r.mu.Unlock()
	}

	timer := time.AfterFunc(r.initTimeout, func() {
		r.mu.Lock()
		timedOut := !r.initialized
		r.mu.Unlock()
		if timedOut {
			log.Warn().Dur("timeout", r.initTimeout).Msg("auth initialization timed out, proceeding with best-known state")
		}
		r.finishInit()
	})

	go func() {
		<-ctx.Done()
		timer.Stop()
		r.Stop()
	}()
}

// Stop cancels the provider subscription. Late provider events after Stop
// are ignored by the closed-over unsubscribe contract.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// reconcile applies one provider answer. Any failure along the way is
// treated as signed out rather than leaving half-updated state behind.
func (r *Reconciler) reconcile(ctx context.Context, identity *Identity) {
	defer r.finishInit()

	if identity == nil {
		log.Info().Msg("provider reports signed out")
		r.sessions.Clear()
		r.setState(State{IsAuthenticated: false}, true)
		return
	}

	user, err := r.canonicalUser(ctx, identity)
	if err != nil {
		log.Error().Err(err).Msg("auth reconciliation failed, treating as signed out")
		r.sessions.Clear()
		r.setState(State{IsAuthenticated: false}, true)
		return
	}

	record := session.NewRecord(*user, identity.Token, time.Now())
	if err := r.sessions.Store(record); err != nil {
		log.Error().Err(err).Msg("failed to persist refreshed session")
		r.sessions.Clear()
		r.setState(State{IsAuthenticated: false}, true)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("provider auth state applied")
	r.setState(State{IsAuthenticated: true, User: user}, true)
}

// canonicalUser builds the full user record, layering extended profile
// fields from the users collection over the provider identity. A missing
// profile document is not an error; a failing store is.
func (r *Reconciler) canonicalUser(ctx context.Context, identity *Identity) (*models.User, error) {
	user := &models.User{
		ID:          identity.ID,
		PhoneNumber: identity.PhoneNumber,
		DisplayName: identity.DisplayName,
		Status:      "I Love IraChat",
		Bio:         "I Love IraChat",
		IsOnline:    true,
	}

	doc, err := r.docs.Get(ctx, "users", identity.ID)
	if err == docstore.ErrNotFound {
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if name := doc.String("name"); name != "" {
		user.Name = name
		if user.DisplayName == "" {
			user.DisplayName = name
		}
	}
	user.Username = doc.String("username")
	user.Avatar = doc.String("avatar")
	if bio := doc.String("bio"); bio != "" {
		user.Bio = bio
		user.Status = bio
	}
	if status := doc.String("status"); status != "" {
		user.Status = status
	}
	user.FollowersCount = doc.Int("followersCount")
	user.FollowingCount = doc.Int("followingCount")
	user.LikesCount = doc.Int("likesCount")

	return user, nil
}

// RefreshFromStore re-reads the local record and publishes it as the
// current state. Registration and sign-in write their session locally;
// this is how that write becomes visible without a provider round-trip.
func (r *Reconciler) RefreshFromStore() {
	record := r.sessions.Retrieve()
	if record == nil {
		r.setState(State{IsAuthenticated: false}, true)
		return
	}
	user := record.User
	r.setState(State{IsAuthenticated: true, User: &user}, true)
}

// Logout signs out of the provider and clears local state. Both halves
// run regardless of the other failing; logged-out is the one state the
// client must always be able to reach.
func (r *Reconciler) Logout(ctx context.Context) {
	if err := r.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("provider sign-out failed, forcing local logout")
	}
	r.sessions.Clear()
	r.setState(State{IsAuthenticated: false}, true)
}

func (r *Reconciler) finishInit() {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return
	}
	r.initialized = true
	r.state.IsInitializing = false
	state := r.state
	r.mu.Unlock()
	r.publish(state)
}

// setState records a new triple. fromReconciliation marks writes that may
// complete initialization (the first provider answer); the optimistic
// local read keeps IsInitializing up so the timeout still bounds it.
func (r *Reconciler) setState(next State, fromReconciliation bool) {
	r.mu.Lock()
	next.IsInitializing = !r.initialized && !fromReconciliation
	if fromReconciliation && !r.initialized {
		r.initialized = true
		next.IsInitializing = false
	}
	r.state = next
	r.mu.Unlock()
	r.publish(next)
}

func (r *Reconciler) publish(state State) {
	select {
	case r.updates <- state:
	default:
		// Buffer full; the reader will catch up via State().
	}
}
