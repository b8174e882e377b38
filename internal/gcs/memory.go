package gcs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is an in-process StorageService used by tests and local
// runs without a bucket.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Fetch returns a copy of the stored object.
func (m *MemoryStorage) Fetch(_ context.Context, uri string) ([]byte, error) {
	if _, _, err := ParseURI(uri, false); err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[uri]
	if !ok {
		return nil, fmt.Errorf("Fetch: object %s not found", uri)
	}
	return append([]byte(nil), data...), nil
}

// Upload stores a copy of data under uri.
func (m *MemoryStorage) Upload(_ context.Context, uri string, data []byte, _ string) error {
	if _, _, err := ParseURI(uri, false); err != nil {
		return fmt.Errorf("Upload: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[uri] = append([]byte(nil), data...)
	return nil
}

// ListCSVObjects returns the stored .csv URIs under prefixURI, sorted.
func (m *MemoryStorage) ListCSVObjects(_ context.Context, prefixURI string) ([]string, error) {
	if _, _, err := ParseURI(prefixURI, true); err != nil {
		return nil, fmt.Errorf("ListCSVObjects: %w", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var uris []string
	for uri := range m.objects {
		if strings.HasPrefix(uri, prefixURI) && strings.HasSuffix(strings.ToLower(uri), ".csv") {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris, nil
}
