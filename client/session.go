package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Credentials is what sign-in leaves behind: the bearer token and the user
// object exactly as the server sent it.
type Credentials struct {
	Token string          `json:"token,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
}

// TokenStore persists credentials. Load reports false when nothing is stored.
type TokenStore interface {
	Load() (Credentials, bool, error)
	Save(Credentials) error
	Clear() error
}

// MemoryTokenStore lives as long as the process, like a browser tab's session storage.
type MemoryTokenStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load() (Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return Credentials{}, false, nil
	}
	return *m.creds, true, nil
}

func (m *MemoryTokenStore) Save(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &c
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}

// FileTokenStore keeps credentials in a JSON file readable only by the owner.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Load() (Credentials, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("reading %s: %w", f.path, err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, false, fmt.Errorf("decoding %s: %w", f.path, err)
	}
	return c, true, nil
}

func (f *FileTokenStore) Save(c Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", f.path, err)
	}
	return nil
}

// Session is the signed-in state shared by every view model. "Remember me"
// keeps the token in the durable store; otherwise it only lives in the
// ephemeral one. The user blob always goes to the durable store.
type Session struct {
	mu        sync.RWMutex
	durable   TokenStore
	ephemeral TokenStore
	creds     Credentials
	logger    *zap.Logger
}

// NewSession restores credentials from the stores, preferring the durable token.
func NewSession(durable, ephemeral TokenStore, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{durable: durable, ephemeral: ephemeral, logger: logger}

	d, _, err := durable.Load()
	if err != nil {
		return nil, fmt.Errorf("restoring durable session: %w", err)
	}
	e, _, err := ephemeral.Load()
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	s.creds.Token = d.Token
	if s.creds.Token == "" {
		s.creds.Token = e.Token
	}
	s.creds.User = d.User
	if len(s.creds.User) == 0 {
		s.creds.User = e.User
	}
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// User returns the stored user object verbatim.
func (s *Session) User() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(json.RawMessage(nil), s.creds.User...)
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Store records a successful sign-in.
func (s *Session) Store(c Credentials, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remember {
		if err := s.durable.Save(c); err != nil {
			return err
		}
		if err := s.ephemeral.Clear(); err != nil {
			return err
		}
	} else {
		if err := s.ephemeral.Save(Credentials{Token: c.Token}); err != nil {
			return err
		}
		if err := s.durable.Save(Credentials{User: c.User}); err != nil {
			return err
		}
	}
	s.creds = Credentials{Token: c.Token, User: append(json.RawMessage(nil), c.User...)}
	return nil
}

// Invalidate forgets the credentials in memory and in both stores.
func (s *Session) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = Credentials{}
	err := errors.Join(s.durable.Clear(), s.ephemeral.Clear())
	if err != nil {
		s.logger.Warn("Failed to clear stored credentials", zap.Error(err))
	}
	return err
}
