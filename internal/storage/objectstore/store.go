// Package objectstore provides content-addressed storage for downloaded
// assets: put(hash, bytes) -> url, get(url) -> bytes.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the content-addressed asset storage contract.
type Store interface {
	// Put stores bytes under their content hash and returns a stable URL.
	// Putting the same hash twice is a no-op returning the same URL.
	Put(ctx context.Context, hash string, data []byte, mimeType string) (string, error)

	// Get retrieves the bytes behind a URL previously returned by Put.
	Get(ctx context.Context, url string) ([]byte, error)
}

// MemoryStore is an in-process Store used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores the object under mem://assets/{hash}.
func (s *MemoryStore) Put(_ context.Context, hash string, data []byte, _ string) (string, error) {
	if hash == "" {
		return "", fmt.Errorf("empty content hash")
	}
	url := "mem://assets/" + hash

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[url]; !ok {
		buf := make([]byte, len(data))
		copy(buf, data)
		s.objects[url] = buf
	}
	return url, nil
}

// Get returns the stored bytes.
func (s *MemoryStore) Get(_ context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[url]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
