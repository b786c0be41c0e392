package state

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps the encoded document in memory. Documents go through
// the same encoding as a persistent backend, so loaded state never aliases
// committed state.
type MemoryBackend struct {
	mu      sync.Mutex
	data    []byte
	commits int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// Load decodes the last committed document.
func (m *MemoryBackend) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode(m.data)
}

// Commit replaces the stored document.
func (m *MemoryBackend) Commit(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.commits++
	return nil
}

// Bytes returns the encoded document as last committed.
func (m *MemoryBackend) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data)
}

// Commits returns the number of successful commits.
func (m *MemoryBackend) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}
