package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/docstore"
	"github.com/irachat/irachat/internal/models"
	"github.com/irachat/irachat/internal/session"
	"github.com/irachat/irachat/internal/storage"
)

// fakeProvider captures the subscription callback so tests can emit
// identity changes on demand.
type fakeProvider struct {
	mu           sync.Mutex
	onChange     func(*auth.Identity)
	subscribeErr error
	signOutErr   error
	signOutCalls int
	unsubscribed bool
}

func (p *fakeProvider) Subscribe(onChange func(*auth.Identity)) (func(), error) {
	if p.subscribeErr != nil {
		return nil, p.subscribeErr
	}
	p.mu.Lock()
	p.onChange = onChange
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.unsubscribed = true
		p.mu.Unlock()
	}, nil
}

func (p *fakeProvider) CurrentIdentity(ctx context.Context) (*auth.Identity, error) {
	return nil, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	p.mu.Unlock()
	return p.signOutErr
}

func (p *fakeProvider) emit(identity *auth.Identity) {
	p.mu.Lock()
	onChange := p.onChange
	p.mu.Unlock()
	if onChange != nil {
		onChange(identity)
	}
}

func identityFor(id string) *auth.Identity {
	return &auth.Identity{
		ID:          id,
		PhoneNumber: "+25670000000" + id[len(id)-1:],
		DisplayName: "User " + id,
		Token:       "tok-" + id,
	}
}

func newTestReconciler(t *testing.T) (*auth.Reconciler, *session.Store, *fakeProvider, *docstore.Memory) {
	t.Helper()
	sessions := session.NewStore(storage.NewMemory())
	provider := &fakeProvider{}
	docs := docstore.NewMemory()
	r := auth.NewReconciler(sessions, provider, docs)
	r.SetInitTimeout(200 * time.Millisecond)
	return r, sessions, provider, docs
}

func start(t *testing.T, r *auth.Reconciler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.Start(ctx)
}

func waitInitialized(t *testing.T, r *auth.Reconciler) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !r.State().IsInitializing
	}, time.Second, 5*time.Millisecond)
}

func TestOptimisticLocalReadRendersBeforeProviderAnswers(t *testing.T) {
	r, sessions, _, _ := newTestReconciler(t)
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1", Name: "John"}, "tok", time.Now())))

	start(t, r)

	state := r.State()
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.IsInitializing, "only the provider or the timeout completes initialization")
	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
}

func TestProviderAnswerSequenceLastWriteWins(t *testing.T) {
	r, sessions, provider, _ := newTestReconciler(t)
	start(t, r)

	provider.emit(identityFor("a1"))
	provider.emit(nil)
	provider.emit(identityFor("b2"))

	state := r.State()
	assert.False(t, state.IsInitializing)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "b2", state.User.ID)

	record := sessions.Retrieve()
	require.NotNil(t, record)
	assert.Equal(t, "b2", record.User.ID)
	assert.Equal(t, "tok-b2", record.Token)
}

func TestProviderSignedOutClearsStoredSession(t *testing.T) {
	r, sessions, provider, _ := newTestReconciler(t)
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1"}, "tok", time.Now())))
	start(t, r)

	provider.emit(nil)

	state := r.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsInitializing)
	assert.Nil(t, state.User)
	assert.Nil(t, sessions.Retrieve())
	assert.False(t, sessions.IsAuthenticated())
}

func TestInitTimeoutBoundsTheLoadingState(t *testing.T) {
	r, sessions, _, _ := newTestReconciler(t)
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1"}, "tok", time.Now())))

	start(t, r)
	waitInitialized(t, r)

	// The provider never answered; stored auth carries the state.
	state := r.State()
	assert.True(t, state.IsAuthenticated)
}

func TestLateProviderAnswerStillApplies(t *testing.T) {
	r, _, provider, _ := newTestReconciler(t)
	start(t, r)
	waitInitialized(t, r)

	require.False(t, r.State().IsAuthenticated)

	provider.emit(identityFor("a1"))

	state := r.State()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "a1", state.User.ID)
}

func TestProfileDocumentLayersOverIdentity(t *testing.T) {
	r, _, provider, docs := newTestReconciler(t)
	require.NoError(t, docs.Set(context.Background(), "users", "a1", map[string]any{
		"name":           "John Doe",
		"username":       "@johndoe",
		"bio":            "Exploring",
		"followersCount": 7,
	}, false))
	start(t, r)

	provider.emit(identityFor("a1"))

	user := r.State().User
	require.NotNil(t, user)
	assert.Equal(t, "John Doe", user.Name)
	assert.Equal(t, "@johndoe", user.Username)
	assert.Equal(t, "Exploring", user.Bio)
	assert.Equal(t, 7, user.FollowersCount)
}

func TestMissingProfileDocumentUsesDefaults(t *testing.T) {
	r, _, provider, _ := newTestReconciler(t)
	start(t, r)

	provider.emit(identityFor("a1"))

	user := r.State().User
	require.NotNil(t, user)
	assert.Equal(t, "a1", user.ID)
	assert.Equal(t, "I Love IraChat", user.Bio)
	assert.Equal(t, "I Love IraChat", user.Status)
}

type brokenDocs struct{}

func (brokenDocs) Query(context.Context, string, docstore.Filter, docstore.OrderBy) ([]docstore.Document, error) {
	return nil, errors.New("store down")
}
func (brokenDocs) Get(context.Context, string, string) (*docstore.Document, error) {
	return nil, errors.New("store down")
}
func (brokenDocs) Set(context.Context, string, string, map[string]any, bool) error {
	return errors.New("store down")
}
func (brokenDocs) Delete(context.Context, string, string) error { return errors.New("store down") }
func (brokenDocs) BatchDelete(context.Context, string, []string) error {
	return errors.New("store down")
}

func TestReconciliationFailureTreatedAsSignedOut(t *testing.T) {
	sessions := session.NewStore(storage.NewMemory())
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1"}, "tok", time.Now())))
	provider := &fakeProvider{}
	r := auth.NewReconciler(sessions, provider, brokenDocs{})
	r.SetInitTimeout(200 * time.Millisecond)
	start(t, r)

	provider.emit(identityFor("a1"))

	state := r.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsInitializing)
	assert.Nil(t, sessions.Retrieve(), "a failed reconciliation must purge the stored session")
}

func TestSubscribeFailureFallsBackToStoredSession(t *testing.T) {
	sessions := session.NewStore(storage.NewMemory())
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1"}, "tok", time.Now())))
	provider := &fakeProvider{subscribeErr: errors.New("offline")}
	r := auth.NewReconciler(sessions, provider, docstore.NewMemory())
	r.SetInitTimeout(200 * time.Millisecond)
	start(t, r)

	state := r.State()
	assert.False(t, state.IsInitializing, "an unreachable provider must not hold the loading screen")
	assert.True(t, state.IsAuthenticated)
}

func TestLogoutAlwaysReachesSignedOut(t *testing.T) {
	r, sessions, provider, _ := newTestReconciler(t)
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "u1"}, "tok", time.Now())))
	provider.signOutErr = errors.New("network down")
	start(t, r)

	r.Logout(context.Background())

	assert.Equal(t, 1, provider.signOutCalls)
	state := r.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, sessions.Retrieve())
}

func TestRefreshFromStorePublishesLocalWrite(t *testing.T) {
	r, sessions, _, _ := newTestReconciler(t)
	start(t, r)
	waitInitialized(t, r)
	require.False(t, r.State().IsAuthenticated)

	// Registration writes the session locally, then asks for a refresh.
	require.NoError(t, sessions.Store(session.NewRecord(models.User{ID: "new"}, "tok", time.Now())))
	r.RefreshFromStore()

	state := r.State()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "new", state.User.ID)
}

func TestStopCancelsSubscription(t *testing.T) {
	r, _, provider, _ := newTestReconciler(t)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.unsubscribed
	}, time.Second, 5*time.Millisecond)
}
