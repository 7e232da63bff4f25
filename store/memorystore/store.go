package memorystore

import (
	"context"
	"sync"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/hash"
)

// MemoryStore keeps blocks and chain metadata in process memory, used
// for tests and throwaway chains
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[string]*chain.Block
	order  []string
	meta   map[string]chain.Metadata
}

// New returns an initialized store
func New() *MemoryStore {
	return &MemoryStore{
		blocks: map[string]*chain.Block{},
		meta:   map[string]chain.Metadata{},
	}
}

// FindByHash returns the block with the given hash
func (m *MemoryStore) FindByHash(_ context.Context, h hash.Digest) (*chain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[h.String()]
	if !ok {
		return nil, chain.ErrHashNotFound
	}
	return b, nil
}

// FindByIndex returns the block persisted at the given position
func (m *MemoryStore) FindByIndex(_ context.Context, index uint64) (*chain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index >= uint64(len(m.order)) || m.order[index] == "" {
		return nil, chain.ErrIndexNotFound
	}
	b, ok := m.blocks[m.order[index]]
	if !ok {
		return nil, chain.ErrIndexNotFound
	}
	return b, nil
}

// FindByPrevious returns the block linking to the given hash
func (m *MemoryStore) FindByPrevious(_ context.Context, h hash.Digest) (*chain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.blocks {
		if b.Previous.Equal(h) {
			return b, nil
		}
	}
	return nil, chain.ErrHashNotFound
}

// Persist stores the block at the given position hint
func (m *MemoryStore) Persist(_ context.Context, b *chain.Block, position uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := b.Digest.String()
	m.blocks[key] = b
	for uint64(len(m.order)) <= position {
		m.order = append(m.order, "")
	}
	m.order[position] = key
	return key, nil
}

// Delete removes the block with the given hash
func (m *MemoryStore) Delete(_ context.Context, h hash.Digest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := h.String()
	if _, ok := m.blocks[key]; !ok {
		return "", chain.ErrHashNotFound
	}
	delete(m.blocks, key)
	for i, k := range m.order {
		if k == key {
			m.order[i] = ""
		}
	}
	return key, nil
}

// LoadMetadata restores the chain metadata saved under name
func (m *MemoryStore) LoadMetadata(_ context.Context, name string) (chain.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.meta[name]
	if !ok {
		return chain.Metadata{}, chain.ErrChainNotFound
	}
	return meta, nil
}

// SaveMetadata persists the chain metadata under its name
func (m *MemoryStore) SaveMetadata(_ context.Context, meta chain.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[meta.Name] = meta
	return nil
}

// Close does nothing
func (m *MemoryStore) Close() error {
	return nil
}

// Size returns the number of stored blocks
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
