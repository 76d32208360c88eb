package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNoSession = errors.New("no stored session")

type SessionData struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SessionStore persists the client session between runs.
type SessionStore interface {
	Load(ctx context.Context) (*SessionData, error)
	Save(ctx context.Context, data SessionData) error
	Delete(ctx context.Context) error
}

// Session is the explicit holder of the bearer token and current user.
// It is loaded once at startup and cleared on logout.
type Session struct {
	mu       sync.RWMutex
	store    SessionStore
	data     *SessionData
	onLogout []func()
	now      func() time.Time
}

func NewSession(store SessionStore) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{store: store, now: time.Now}
}

// Load restores a stored session. A missing or expired token leaves the
// session anonymous.
func (s *Session) Load(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if data.Token == "" || expired(data.Token, s.now()) {
		return s.store.Delete(ctx)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *Session) Login(ctx context.Context, token string, user User) error {
	if token == "" || user.ID == "" {
		return errors.New("login: token and user id are required")
	}
	data := SessionData{Token: token, User: user}
	if err := s.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.mu.Lock()
	s.data = &data
	s.mu.Unlock()
	return nil
}

// Logout forgets the session and runs the logout hooks, in registration order.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// OnLogout registers fn to run on every Logout.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return ""
	}
	return s.data.Token
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return User{}, false
	}
	return s.data.User, true
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

type MemoryStore struct {
	mu   sync.Mutex
	data *SessionData
}

func (m *MemoryStore) Load(context.Context) (*SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNoSession
	}
	d := *m.data
	return &d, nil
}

func (m *MemoryStore) Save(_ context.Context, data SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = &data
	return nil
}

func (m *MemoryStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// FileStore keeps the session as a JSON file readable only by the owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(context.Context) (*SessionData, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &data, nil
}

func (f *FileStore) Save(_ context.Context, data SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Delete(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
