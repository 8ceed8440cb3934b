package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the access token in a small JSON document so a CLI
// session survives process restarts. Absence of the file (or of the key)
// means logged out.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

type fileSnapshot struct {
	AccessToken string `json:"access_token,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	if snap.AccessToken == "" {
		return "", ErrNoToken
	}
	return snap.AccessToken, nil
}

func (f *FileStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(fileSnapshot{AccessToken: token})
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (f *FileStore) save(snap fileSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
