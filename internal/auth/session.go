// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/florafind/pkg/types"
)

// ErrInvalidTransition reports a session change not allowed from its state.
var ErrInvalidTransition = errors.New("invalid session transition")

// State is the authentication state of a Session.
type State int

const (
	// Loading is the state before the session cookie has been checked.
	Loading State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the per-request view of who is signed in. It starts Loading;
// Resolve settles it, after which only SignIn and SignOut move it.
type Session struct {
	state State
	user  *types.User

	// Welcomed records that the onboarding flow has been completed.
	Welcomed bool
}

// NewSession returns a session in the Loading state.
func NewSession() *Session {
	return &Session{state: Loading}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// User returns the signed-in user, or nil.
func (s *Session) User() *types.User { return s.user }

// Resolve settles a Loading session: Authenticated with u, or Anonymous when
// u is nil.
func (s *Session) Resolve(u *types.User) error {
	if s.state != Loading {
		return fmt.Errorf("%w: resolve from %s", ErrInvalidTransition, s.state)
	}
	if u == nil {
		s.state = Anonymous
		return nil
	}
	s.state, s.user = Authenticated, u
	return nil
}

// SignIn moves an Anonymous session to Authenticated.
func (s *Session) SignIn(u *types.User) error {
	if s.state != Anonymous || u == nil {
		return fmt.Errorf("%w: sign in from %s", ErrInvalidTransition, s.state)
	}
	s.state, s.user = Authenticated, u
	return nil
}

// SignOut moves an Authenticated session to Anonymous.
func (s *Session) SignOut() error {
	if s.state != Authenticated {
		return fmt.Errorf("%w: sign out from %s", ErrInvalidTransition, s.state)
	}
	s.state, s.user = Anonymous, nil
	return nil
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession, or a fresh Loading
// session when there is none.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
		return s
	}
	return NewSession()
}
