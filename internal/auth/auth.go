// Package auth provides the signed-in identity the engine reacts to.
// The authentication protocol itself is external: this package only
// persists the session token and exposes the identity as a stream of
// at-most-one-current value.
package auth

import "context"

// Identity is a signed-in account: opaque uid plus optional email.
type Identity struct {
	UID   string
	Email string
}

//go:generate moq -out provider_mock.go . Provider

// Provider yields the current identity and notifies subscribers exactly
// once per change. A nil identity means signed out.
type Provider interface {
	// Current returns the identity at this moment, or nil when signed out.
	Current() *Identity

	// Subscribe registers fn, replays the current value to it immediately
	// and then calls it once per identity change. The returned cancel
	// function detaches the subscriber; double-cancel is a safe no-op.
	Subscribe(fn func(*Identity)) (cancel func())
}

// SignInOut extends Provider with the mutations the CLI needs.
type SignInOut interface {
	Provider

	// SignIn installs a session from a bearer token and returns the
	// extracted identity.
	SignIn(ctx context.Context, token string) (*Identity, error)

	// SignOut clears the session.
	SignOut(ctx context.Context) error
}
