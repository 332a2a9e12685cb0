package auth

import "context"

// Identity is what the identity provider knows about a signed-in user.
// Nil means signed out.
type Identity struct {
	ID          string
	PhoneNumber string
	DisplayName string
	Token       string
}

// Provider is the identity/session provider contract. Subscribe delivers
// the current identity immediately if one is known, then every change
// after; the returned function cancels the subscription.
type Provider interface {
	Subscribe(onChange func(*Identity)) (unsubscribe func(), err error)
	CurrentIdentity(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
}
