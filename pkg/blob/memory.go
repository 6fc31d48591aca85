package blob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[cleaned]
	return ok, nil
}

func (s *MemoryStore) Download(_ context.Context, path string) ([]byte, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[cleaned]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Upload(_ context.Context, path string, data []byte, contentType string) error {
	cleaned, err := cleanPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[cleaned] = stored
	s.types[cleaned] = contentType
	return nil
}

func (s *MemoryStore) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[cleaned]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Sprintf("memory://media/%s?exp=%d", cleaned, time.Now().Add(expiry).Unix()), nil
}

// Len reports the number of stored objects, for assertions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ContentType returns the content type recorded for an object, for assertions.
func (s *MemoryStore) ContentType(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[path]
}
