package session

// State is the session lifecycle state.
//
// Transitions:
//
//	Unauthenticated -> Authenticating  (login started)
//	Authenticating  -> Authenticated   (login succeeded)
//	Authenticating  -> Unauthenticated (login failed)
//	Authenticated   -> SessionExpired  (upstream rejected a call)
//	SessionExpired  -> Authenticating  (refresh started)
//	Authenticated   -> Unauthenticated (logout)
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateSessionExpired
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}
