package tokenstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNoToken is returned by Get when no credential is held.
var ErrNoToken = errors.New("no token stored")

// Store holds at most one bearer credential. Set always replaces the previous value.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Present reports whether a credential is stored. Read errors count as absent.
func Present(ctx context.Context, s Store) bool {
	tok, err := s.Get(ctx)
	return err == nil && tok != ""
}

// MemoryStore is a process-local Store, safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
