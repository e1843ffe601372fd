package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/linesmerrill/forensic-case-api/logging"
	"github.com/linesmerrill/forensic-case-api/models"
)

// TokenKey is the key the access token is persisted under
const TokenKey = "auth_token"

// TokenStore persists small string values across runs
type TokenStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryTokenStore keeps values for the lifetime of the process
type MemoryTokenStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryTokenStore creates an empty store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

// Get returns "" for missing keys
func (m *MemoryTokenStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Set stores value under key
func (m *MemoryTokenStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key
func (m *MemoryTokenStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileTokenStore keeps values in a YAML file readable only by its owner
type FileTokenStore struct {
	Path string
	mu   sync.Mutex
}

// NewFileTokenStore stores values in path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

func (f *FileTokenStore) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", f.Path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (f *FileTokenStore) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// Get returns "" for missing keys and missing files
func (f *FileTokenStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set stores value under key
func (f *FileTokenStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

// Delete removes key
func (f *FileTokenStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

// Session is the login state shared by every service and screen of one
// console. The token is the only durable state.
type Session struct {
	store TokenStore
	log   *zap.SugaredLogger

	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(bool)
}

// NewSession creates a session persisted in store
func NewSession(store TokenStore, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{store: store, log: log, subscribers: make(map[int]func(bool))}
}

// Login persists token and signals subscribers
func (s *Session) Login(token string) error {
	if token == "" {
		return errors.New("empty access token")
	}
	if err := s.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	s.publish(true)
	return nil
}

// Logout forgets the token and signals subscribers
func (s *Session) Logout() {
	if err := s.store.Delete(TokenKey); err != nil {
		s.log.Warnw("failed to remove persisted token", "error", err)
	}
	s.publish(false)
}

// Token returns the persisted token, "" when logged out
func (s *Session) Token() string {
	token, err := s.store.Get(TokenKey)
	if err != nil {
		s.log.Warnw("failed to read persisted token", "error", err)
		return ""
	}
	return token
}

// IsLoggedIn reports whether a token is present. It does not check expiry;
// the API answers 401 for expired tokens.
func (s *Session) IsLoggedIn() bool {
	return s.Token() != ""
}

// Claims decodes the token payload without verifying the signature. A token
// that cannot be decoded ends the session.
func (s *Session) Claims() (*models.Claims, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	claims := &models.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.log.Warnw("failed to decode access token, logging out", "error", err)
		s.Logout()
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}
	return claims, nil
}

// UserID is the token subject, "" when logged out
func (s *Session) UserID() string {
	c, err := s.Claims()
	if err != nil {
		return ""
	}
	return c.Subject
}

// UserName is the display name carried by the token
func (s *Session) UserName() string {
	c, err := s.Claims()
	if err != nil {
		return ""
	}
	return c.Name
}

// Role is the role carried by the token, "" when logged out
func (s *Session) Role() string {
	c, err := s.Claims()
	if err != nil {
		return ""
	}
	return c.Role
}

// Subscribe calls fn with the current login state and again on every change.
// The returned func stops the notifications.
func (s *Session) Subscribe(fn func(loggedIn bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	fn(s.IsLoggedIn())
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Session) publish(loggedIn bool) {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(loggedIn)
	}
}
