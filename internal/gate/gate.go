// Package gate decides which top-level screen an auth state leads to.
package gate

import (
	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/auth"
)

// Destination is one of the three top-level screens, or none while the
// auth check is still running.
type Destination int

const (
	DestNone Destination = iota
	DestMain
	DestWelcome
	DestSignIn
)

func (d Destination) String() string {
	switch d {
	case DestMain:
		return "main"
	case DestWelcome:
		return "welcome"
	case DestSignIn:
		return "signin"
	default:
		return "none"
	}
}

// FirstLaunchStore is the slice of the session store the gate needs.
type FirstLaunchStore interface {
	IsFirstLaunch() bool
	MarkFirstLaunchDone()
}

// Gate turns auth states into at-most-one navigation per auth transition.
// The guard re-arms whenever IsAuthenticated flips, so every real state
// change gets a fresh decision while rapid duplicate updates do not cause
// duplicate redirects.
type Gate struct {
	store         FirstLaunchStore
	navigated     bool
	lastAuthState bool
	decided       bool
}

func New(store FirstLaunchStore) *Gate {
	return &Gate{store: store}
}

// Decide evaluates the decision table top-to-bottom and returns the single
// destination to navigate to, or DestNone when no navigation should fire.
func (g *Gate) Decide(state auth.State) Destination {
	if state.IsInitializing {
		return DestNone
	}

	if g.decided && state.IsAuthenticated != g.lastAuthState {
		g.navigated = false
	}
	g.lastAuthState = state.IsAuthenticated
	g.decided = true

	if g.navigated {
		return DestNone
	}

	dest := g.route(state)
	g.navigated = true
	log.Info().Stringer("destination", dest).Bool("authenticated", state.IsAuthenticated).Msg("navigation decision")
	return dest
}

func (g *Gate) route(state auth.State) (dest Destination) {
	// Any failure while deciding falls back to the welcome screen.
	defer func() {
		if recover() != nil {
			dest = DestWelcome
		}
	}()

	if state.IsAuthenticated {
		return DestMain
	}
	if g.store.IsFirstLaunch() {
		g.store.MarkFirstLaunchDone()
		return DestWelcome
	}
	return DestSignIn
}

// Reset clears the guard entirely, forcing the next Decide to navigate.
// Used when the user backs out of a screen manually.
func (g *Gate) Reset() {
	g.navigated = false
	g.decided = false
}
