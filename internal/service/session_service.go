// Package service wires the transport, cache and session ports into the
// typed campus client and its collaborators.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/thi"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/session"
	"github.com/neuland-ingolstadt/campus-client/internal/metrics"
)

const (
	serviceSession = "session"

	methodSessionOpen    = "open"
	methodSessionClose   = "close"
	methodSessionIsAlive = "isalive"
)

// SessionService owns the session lifecycle: login, guest sessions, logout,
// persisted-session pickup and single-flight refresh. It implements
// session.Provider for the campus client.
type SessionService struct {
	transport *thi.Transport
	store     session.Store
	creds     session.CredentialSource
	logger    *slog.Logger
	metrics   *metrics.Metrics

	state atomic.Int32
	// refreshGroup collapses concurrent session-expired triggers into one
	// re-authentication.
	refreshGroup singleflight.Group
}

// SessionOption is a functional option for configuring a SessionService.
type SessionOption func(*SessionService)

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

// WithSessionMetrics enables metrics recording.
func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *SessionService) {
		s.metrics = m
	}
}

// NewSessionService creates a SessionService. The credential source is used
// for login without explicit credentials and for session refresh.
func NewSessionService(transport *thi.Transport, store session.Store, creds session.CredentialSource, opts ...SessionOption) *SessionService {
	s := &SessionService{
		transport: transport,
		store:     store,
		creds:     creds,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(session.StateUnauthenticated))
	return s
}

// State returns the current lifecycle state.
func (s *SessionService) State() session.State {
	return session.State(s.state.Load())
}

func (s *SessionService) setState(st session.State) {
	old := session.State(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Debug("session state change", "from", old.String(), "to", st.String())
	}
}

// Resume picks up a persisted session, if any, and reports the resulting
// state. No network call is made; the upstream is the only authority on
// expiry and will reject a stale token on first use.
func (s *SessionService) Resume(ctx context.Context) session.State {
	if _, err := s.store.Load(ctx); err == nil {
		s.setState(session.StateAuthenticated)
	}
	return s.State()
}

// Login authenticates against the upstream and persists the session.
func (s *SessionService) Login(ctx context.Context, username, password string) error {
	s.setState(session.StateAuthenticating)

	token, err := s.open(ctx, username, password)
	if err != nil {
		s.setState(session.StateUnauthenticated)
		return err
	}

	now := time.Now().UTC()
	sess := &session.Session{
		Token:     token,
		Kind:      session.KindStudent,
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		s.setState(session.StateUnauthenticated)
		return fmt.Errorf("persist session: %w", err)
	}

	s.setState(session.StateAuthenticated)
	s.logger.Info("logged in", "user", username)
	return nil
}

// LoginGuest creates a local guest session. The upstream has no guest
// authentication; authenticated calls will fail with session.ErrGuest.
func (s *SessionService) LoginGuest(ctx context.Context) error {
	now := time.Now().UTC()
	sess := &session.Session{
		Kind:      session.KindGuest,
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.setState(session.StateAuthenticated)
	return nil
}

// Logout closes the upstream session (best effort) and clears the store.
func (s *SessionService) Logout(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err == nil && !sess.IsGuest() {
		req := thi.Request{
			Service: serviceSession,
			Method:  methodSessionClose,
			Params:  map[string]string{"session": sess.Token},
		}
		if _, err := s.transport.Do(ctx, req); err != nil {
			// The local session is dropped regardless; a dangling upstream
			// session expires on its own.
			s.logger.Warn("upstream session close failed", "error", err)
		}
	}
	return s.Invalidate(ctx)
}

// Session returns the current session token.
func (s *SessionService) Session(ctx context.Context) (string, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return "", session.ErrNoSession
	}
	if sess.IsGuest() {
		return "", session.ErrGuest
	}
	return sess.Token, nil
}

// Refresh re-authenticates with the stored credentials after the current
// session was rejected. Concurrent callers share a single upstream login;
// a failure surfaces as session.ErrInvalid, distinct from campus.APIError.
func (s *SessionService) Refresh(ctx context.Context) (string, error) {
	s.setState(session.StateSessionExpired)
	if s.metrics != nil {
		s.metrics.SessionRefreshes.Inc()
	}

	v, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		s.setState(session.StateAuthenticating)

		username, password, err := s.creds.Credentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", session.ErrInvalid, err)
		}

		token, err := s.open(ctx, username, password)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", session.ErrInvalid, err)
		}

		now := time.Now().UTC()
		sess := &session.Session{
			Token:     token,
			Kind:      session.KindStudent,
			CreatedAt: now,
			LastUsed:  now,
		}
		if err := s.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("persist refreshed session: %w", err)
		}

		s.logger.Info("session refreshed")
		return token, nil
	})
	if err != nil {
		s.setState(session.StateUnauthenticated)
		return "", err
	}

	s.setState(session.StateAuthenticated)
	return v.(string), nil
}

// Invalidate drops the stored session without contacting the upstream.
func (s *SessionService) Invalidate(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.setState(session.StateUnauthenticated)
	return nil
}

// Alive asks the upstream whether the current session is still accepted.
func (s *SessionService) Alive(ctx context.Context) (bool, error) {
	token, err := s.Session(ctx)
	if err != nil {
		return false, err
	}
	req := thi.Request{
		Service: serviceSession,
		Method:  methodSessionIsAlive,
		Params:  map[string]string{"session": token},
	}
	env, err := s.transport.Do(ctx, req)
	if err != nil {
		return false, err
	}
	return campus.Classify(env).Kind == campus.OutcomeSuccess, nil
}

// open mints a new upstream session from credentials.
func (s *SessionService) open(ctx context.Context, username, password string) (string, error) {
	req := thi.Request{
		Service: serviceSession,
		Method:  methodSessionOpen,
		Params: map[string]string{
			"username": username,
			"passwd":   password,
		},
	}
	env, err := s.transport.Do(ctx, req)
	if err != nil {
		return "", err
	}

	out := campus.Classify(env)
	if out.Kind != campus.OutcomeSuccess {
		return "", &campus.APIError{Status: out.Status, Data: out.Message}
	}

	token, err := decodeSessionToken(out.Payload)
	if err != nil {
		return "", err
	}
	return token, nil
}

// decodeSessionToken extracts the token from a session/open payload. The
// upstream sends either a bare string or an array leading with the token.
func decodeSessionToken(payload json.RawMessage) (string, error) {
	var token string
	if err := json.Unmarshal(payload, &token); err == nil && token != "" {
		return token, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err == nil && len(parts) > 0 {
		if err := json.Unmarshal(parts[0], &token); err == nil && token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("session open: unrecognized payload shape")
}

// Compile-time interface verification.
var _ session.Provider = (*SessionService)(nil)
