package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irachat/irachat/internal/auth"
)

type fakeLaunchStore struct {
	firstLaunch bool
	marked      bool
	panics      bool
}

func (f *fakeLaunchStore) IsFirstLaunch() bool {
	if f.panics {
		panic("storage unavailable")
	}
	return f.firstLaunch
}

func (f *fakeLaunchStore) MarkFirstLaunchDone() {
	f.marked = true
	f.firstLaunch = false
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name        string
		state       auth.State
		firstLaunch bool
		want        Destination
	}{
		{
			name:  "initializing yields no navigation",
			state: auth.State{IsInitializing: true},
			want:  DestNone,
		},
		{
			name:  "authenticated goes to main",
			state: auth.State{IsAuthenticated: true},
			want:  DestMain,
		},
		{
			name:        "unauthenticated first launch goes to welcome",
			state:       auth.State{},
			firstLaunch: true,
			want:        DestWelcome,
		},
		{
			name:  "unauthenticated returning user goes to sign-in",
			state: auth.State{},
			want:  DestSignIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&fakeLaunchStore{firstLaunch: tt.firstLaunch})
			assert.Equal(t, tt.want, g.Decide(tt.state))
		})
	}
}

func TestDecideNavigatesAtMostOncePerTransition(t *testing.T) {
	g := New(&fakeLaunchStore{})

	state := auth.State{IsAuthenticated: true}
	assert.Equal(t, DestMain, g.Decide(state))

	// Duplicate states must not fire again.
	assert.Equal(t, DestNone, g.Decide(state))
	assert.Equal(t, DestNone, g.Decide(state))

	// A real auth flip re-arms the guard.
	assert.Equal(t, DestSignIn, g.Decide(auth.State{}))
	assert.Equal(t, DestNone, g.Decide(auth.State{}))

	// And flipping back does too.
	assert.Equal(t, DestMain, g.Decide(auth.State{IsAuthenticated: true}))
}

func TestDecideMarksFirstLaunchDoneOnce(t *testing.T) {
	store := &fakeLaunchStore{firstLaunch: true}
	g := New(store)

	assert.Equal(t, DestWelcome, g.Decide(auth.State{}))
	assert.True(t, store.marked)

	// The next signed-out decision routes to sign-in, not welcome.
	g.Reset()
	assert.Equal(t, DestSignIn, g.Decide(auth.State{}))
}

func TestDecideFallsBackToWelcomeOnStoreFailure(t *testing.T) {
	g := New(&fakeLaunchStore{panics: true})
	assert.Equal(t, DestWelcome, g.Decide(auth.State{}))
}

func TestResetForcesNextNavigation(t *testing.T) {
	g := New(&fakeLaunchStore{})

	assert.Equal(t, DestSignIn, g.Decide(auth.State{}))
	assert.Equal(t, DestNone, g.Decide(auth.State{}))

	g.Reset()
	assert.Equal(t, DestSignIn, g.Decide(auth.State{}))
}
