package auth

import (
	"errors"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	m := NewManager()

	accountID, token, err := m.Register("alice_01", "secret12")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if accountID == 0 {
		t.Fatalf("expected account id")
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	resolvedID, username, ok := m.ResolveSession(token)
	if !ok {
		t.Fatalf("expected valid session")
	}
	if resolvedID != accountID {
		t.Fatalf("expected same account id, got %d and %d", accountID, resolvedID)
	}
	if username != "alice_01" {
		t.Fatalf("expected username alice_01, got %s", username)
	}

	loginID, loginToken, err := m.Login("alice_01", "secret12")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginID != accountID {
		t.Fatalf("expected same account id after login")
	}
	if loginToken == "" {
		t.Fatalf("expected login token")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("alice_01", "secret12"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// 用户名大小写不敏感。
	if _, _, err := m.Register("Alice_01", "secret12"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRejectsBadCredentials(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("x", "secret12"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if _, _, err := m.Register("alice_01", "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("alice_01", "secret12"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := m.Login("alice_01", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	m := NewManager()
	_, token, err := m.Register("alice_01", "secret12")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	m.Logout(token)
	if _, _, ok := m.ResolveSession(token); ok {
		t.Fatalf("expected logged out token to be invalid")
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	m := NewManager()
	m.sessionTTL = -time.Second // everything issued is already expired
	_, token, err := m.Register("alice_01", "secret12")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, ok := m.ResolveSession(token); ok {
		t.Fatalf("expected expired token to be invalid")
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc123"); got != "abc123" {
		t.Fatalf("bearer token = %q", got)
	}
	if got := BearerToken("abc123"); got != "" {
		t.Fatalf("expected empty for missing scheme, got %q", got)
	}
	if got := BearerToken(""); got != "" {
		t.Fatalf("expected empty for empty header, got %q", got)
	}
}
