package blockstore

import (
	"fmt"
	"sync"

	"github.com/blockberries/tenderberry/engine"
)

// MemoryBlockStore implements BlockStore with in-memory storage. Blocks are
// stored as their encoded records so reads return independent copies.
type MemoryBlockStore struct {
	mu     sync.RWMutex
	blocks map[int64][]byte
	height int64
	base   int64
}

var _ BlockStore = (*MemoryBlockStore)(nil)

// NewMemoryBlockStore creates an empty in-memory block store.
func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{
		blocks: make(map[int64][]byte),
	}
}

// SaveBlock persists a committed block under its header height.
func (m *MemoryBlockStore) SaveBlock(block *engine.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	height := block.Header.Height
	if _, exists := m.blocks[height]; exists {
		return fmt.Errorf("%w: %d", ErrBlockAlreadyExists, height)
	}
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	m.blocks[height] = data

	if m.base == 0 || height < m.base {
		m.base = height
	}
	if height > m.height {
		m.height = height
	}
	return nil
}

// Block retrieves the block stored at height.
func (m *MemoryBlockStore) Block(height int64) (*engine.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blocks[height]
	if !ok {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	return decodeBlock(data)
}

// Height returns the highest stored height.
func (m *MemoryBlockStore) Height() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

// Base returns the lowest stored height.
func (m *MemoryBlockStore) Base() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.base
}

// Close releases the store (a no-op for memory).
func (m *MemoryBlockStore) Close() error { return nil }
