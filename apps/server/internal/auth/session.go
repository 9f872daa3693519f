package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type account struct {
	ID           uint64
	Username     string // normalized
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

type session struct {
	AccountID uint64
	ExpiresAt time.Time
}

// Manager is the in-memory backend. State is lost on restart, which is fine
// for development and for the room/gateway tests.
type Manager struct {
	mu            sync.Mutex
	accountsByID  map[uint64]*account
	accountByName map[string]*account
	sessions      map[string]*session
	nextAccountID uint64
	sessionTTL    time.Duration
}

func NewManager() *Manager {
	return &Manager{
		accountsByID:  make(map[uint64]*account),
		accountByName: make(map[string]*account),
		sessions:      make(map[string]*session),
		nextAccountID: 100000,
		sessionTTL:    defaultSessionTTL,
	}
}

func (m *Manager) Close() error { return nil }

func (m *Manager) Register(username, password string) (uint64, string, error) {
	if err := validateUsername(username); err != nil {
		return 0, "", err
	}
	if err := validatePassword(password); err != nil {
		return 0, "", err
	}
	normalized := normalizeUsername(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.accountByName[normalized]; taken {
		return 0, "", ErrUsernameTaken
	}
	m.nextAccountID++
	acc := &account{
		ID:           m.nextAccountID,
		Username:     normalized,
		DisplayName:  strings.TrimSpace(username),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	m.accountsByID[acc.ID] = acc
	m.accountByName[normalized] = acc

	token := m.issueSessionLocked(acc.ID)
	return acc.ID, token, nil
}

func (m *Manager) Login(username, password string) (uint64, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return 0, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	acc := m.accountByName[normalized]
	m.mu.Unlock()
	if acc == nil {
		return 0, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	token := m.issueSessionLocked(acc.ID)
	m.mu.Unlock()
	return acc.ID, token, nil
}

func (m *Manager) ResolveSession(token string) (uint64, string, bool) {
	if token == "" {
		return 0, "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[token]
	if sess == nil {
		return 0, "", false
	}
	now := time.Now()
	if now.After(sess.ExpiresAt) {
		delete(m.sessions, token)
		return 0, "", false
	}
	acc := m.accountsByID[sess.AccountID]
	if acc == nil {
		delete(m.sessions, token)
		return 0, "", false
	}
	// Sliding expiry: any authenticated request extends the session.
	sess.ExpiresAt = now.Add(m.sessionTTL)
	name := acc.DisplayName
	if name == "" {
		name = acc.Username
	}
	return acc.ID, name, true
}

func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

func (m *Manager) issueSessionLocked(accountID uint64) string {
	token := mustToken()
	m.sessions[token] = &session{
		AccountID: accountID,
		ExpiresAt: time.Now().Add(m.sessionTTL),
	}
	return token
}
