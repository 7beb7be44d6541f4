package blockstore

import (
	"github.com/blockberries/tenderberry/engine"
)

// NoopBlockStore discards every block. Use it when block archival is
// disabled; the engine keeps its own in-memory chain regardless.
type NoopBlockStore struct{}

var _ BlockStore = (*NoopBlockStore)(nil)

// NewNoopBlockStore creates a no-op block store.
func NewNoopBlockStore() *NoopBlockStore {
	return &NoopBlockStore{}
}

// SaveBlock discards the block.
func (s *NoopBlockStore) SaveBlock(*engine.Block) error { return nil }

// Block always reports not found.
func (s *NoopBlockStore) Block(height int64) (*engine.Block, error) {
	return nil, ErrBlockNotFound
}

// Height always returns 0.
func (s *NoopBlockStore) Height() int64 { return 0 }

// Base always returns 0.
func (s *NoopBlockStore) Base() int64 { return 0 }

// Close does nothing.
func (s *NoopBlockStore) Close() error { return nil }
