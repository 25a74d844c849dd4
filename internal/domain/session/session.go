// Package session manages the opaque upstream session credential.
//
// The session token is an opaque capability: its expiry is enforced by the
// upstream server, never inspected by this client. The token is created on
// login, held in a Store, and invalidated either explicitly (logout) or
// implicitly when the server rejects a request as unauthenticated.
package session

import (
	"context"
	"errors"
	"time"
)

// Kind distinguishes real student sessions from local guest sessions.
type Kind string

const (
	// KindStudent is an authenticated upstream session.
	KindStudent Kind = "student"
	// KindGuest is a local-only session; the upstream has no guest
	// authentication, so authenticated calls fail with ErrGuest.
	KindGuest Kind = "guest"
)

// Session is the persisted session credential.
type Session struct {
	// Token is the opaque upstream session token. Empty for guest sessions.
	Token string `json:"token"`
	// Kind is the session kind.
	Kind Kind `json:"kind"`
	// CreatedAt is when the session was minted (UTC).
	CreatedAt time.Time `json:"created_at"`
	// LastUsed is the last time the session was attached to a call (UTC).
	LastUsed time.Time `json:"last_used"`
}

// IsGuest reports whether this is a local guest session.
func (s *Session) IsGuest() bool {
	return s.Kind == KindGuest
}

// Touch updates LastUsed.
func (s *Session) Touch() {
	s.LastUsed = time.Now().UTC()
}

// Store persists the single current session across restarts.
// Implementations: file (prod), memory (test).
type Store interface {
	// Load returns the stored session.
	// Returns ErrNotFound when no session is stored.
	Load(ctx context.Context) (*Session, error)

	// Save stores the session, replacing any previous one.
	Save(ctx context.Context, sess *Session) error

	// Delete removes the stored session.
	Delete(ctx context.Context) error
}

// Provider supplies session tokens to the authenticated client. The client
// never inspects tokens; it asks for the current one and, on upstream
// rejection, for exactly one refresh.
type Provider interface {
	// Session returns the current session token.
	Session(ctx context.Context) (string, error)

	// Refresh mints a new session after the current one was rejected.
	// Concurrent refreshes must collapse into a single upstream call.
	Refresh(ctx context.Context) (string, error)

	// Invalidate drops the current session.
	Invalidate(ctx context.Context) error
}

// CredentialSource supplies the login credentials needed to mint a session.
type CredentialSource interface {
	Credentials(ctx context.Context) (username, password string, err error)
}

// Static returns a CredentialSource with fixed credentials.
func Static(username, password string) CredentialSource {
	return staticCredentials{user: username, pass: password}
}

type staticCredentials struct {
	user string
	pass string
}

func (c staticCredentials) Credentials(ctx context.Context) (string, string, error) {
	if c.user == "" || c.pass == "" {
		return "", "", ErrNoCredentials
	}
	return c.user, c.pass, nil
}

// Session lifecycle errors. ErrInvalid is deliberately distinct from the
// campus APIError type so callers can tell authentication failures from
// domain failures.
var (
	// ErrNotFound is returned by stores when no session is persisted.
	ErrNotFound = errors.New("session not found")

	// ErrNoSession is returned when a call needs a session and none exists.
	ErrNoSession = errors.New("not logged in")

	// ErrGuest is returned when an authenticated call is attempted with a
	// guest session.
	ErrGuest = errors.New("guest session cannot access personal data")

	// ErrInvalid is returned when the session was rejected and a single
	// re-authentication attempt also failed.
	ErrInvalid = errors.New("session invalid")

	// ErrNoCredentials is returned when no credentials are available to
	// mint or refresh a session.
	ErrNoCredentials = errors.New("no credentials available")
)
