package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the session between runs. Load returns (nil, nil) when no
// session is stored.
type Store interface {
	Load(ctx context.Context) (*AuthUser, error)
	Save(ctx context.Context, u *AuthUser) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session as a JSON file readable only by the owner.
// Saves replace the file atomically.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultStorePath is <user config dir>/authctl/session.json.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "authctl", "session.json"), nil
}

func (s *FileStore) Load(_ context.Context) (*AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u AuthUser
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.Path, err)
	}
	return &u, nil
}

func (s *FileStore) Save(_ context.Context, u *AuthUser) error {
	b, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.Mutex
	u  *AuthUser
}

func (s *MemoryStore) Load(context.Context) (*AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.u == nil {
		return nil, nil
	}
	cp := *s.u
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, u *AuthUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.u = &cp
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.u = nil
	return nil
}
