package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStaticCredentials(t *testing.T) {
	ctx := context.Background()

	user, pass, err := Static("student", "secret").Credentials(ctx)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if user != "student" || pass != "secret" {
		t.Errorf("unexpected credentials %q/%q", user, pass)
	}

	for _, src := range []CredentialSource{Static("", ""), Static("student", ""), Static("", "secret")} {
		if _, _, err := src.Credentials(ctx); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("expected ErrNoCredentials for partial credentials, got %v", err)
		}
	}
}

func TestSessionKind(t *testing.T) {
	student := Session{Token: "tok", Kind: KindStudent}
	if student.IsGuest() {
		t.Error("student session reported as guest")
	}

	guest := Session{Kind: KindGuest}
	if !guest.IsGuest() {
		t.Error("guest session not reported as guest")
	}
}

func TestTouchUpdatesLastUsed(t *testing.T) {
	sess := Session{LastUsed: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	before := sess.LastUsed
	sess.Touch()
	if !sess.LastUsed.After(before) {
		t.Errorf("LastUsed not advanced: %v", sess.LastUsed)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnauthenticated, "unauthenticated"},
		{StateAuthenticating, "authenticating"},
		{StateAuthenticated, "authenticated"},
		{StateSessionExpired, "session_expired"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
