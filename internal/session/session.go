// Package session holds the authenticated session for the inspection
// service: the bearer token and the signed-in user, persisted to the
// state directory so the wizard can be restarted without re-login.
//
// Auth state is threaded explicitly into every component that needs it
// rather than read from globals.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sitewalk/internal/domain"
)

// FileName is the session file inside the state directory.
const FileName = "session.json"

// State is the persisted shape of a session.
type State struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Session is the in-memory session, safe for concurrent use. The API
// client reads the token on every request; the 401 handler clears it.
type Session struct {
	mu    sync.RWMutex
	path  string
	state State

	// expireHooks run after Clear() when the server rejects the token.
	// The TUI registers one to tear down to the login-required screen.
	expireHooks []func()
}

// New creates a session backed by <stateDir>/session.json.
func New(stateDir string) *Session {
	return &Session{path: filepath.Join(stateDir, FileName)}
}

// Load reads the persisted session. A missing file leaves the session
// empty and is not an error.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	return nil
}

// Save persists the current session.
func (s *Session) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// SetCredentials replaces the token and user.
func (s *Session) SetCredentials(token string, user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Token: token, User: user}
}

// Token returns the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the signed-in user.
func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// OnExpire registers a hook invoked after Expire clears the session.
func (s *Session) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireHooks = append(s.expireHooks, fn)
}

// Clear wipes the in-memory state and deletes the session file.
func (s *Session) Clear() {
	s.mu.Lock()
	s.state = State{}
	path := s.path
	s.mu.Unlock()
	_ = os.Remove(path)
}

// Expire clears the session and runs the registered hooks. Called by
// the API client when the server answers 401.
func (s *Session) Expire() {
	s.Clear()
	s.mu.RLock()
	hooks := make([]func(), len(s.expireHooks))
	copy(hooks, s.expireHooks)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}
