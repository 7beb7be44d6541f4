// Package blockstore persists the blocks committed by the period state
// machine. Backends share one height-keyed layout: a JSON block record per
// height plus height/base metadata.
package blockstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/tenderberry/config"
	"github.com/blockberries/tenderberry/engine"
	"github.com/blockberries/tenderberry/metrics"
)

// Store errors.
var (
	// ErrBlockNotFound is returned when no block exists at a height.
	ErrBlockNotFound = errors.New("block not found")

	// ErrBlockAlreadyExists is returned when saving over an occupied height.
	ErrBlockAlreadyExists = errors.New("block already exists at height")

	// ErrUnknownBackend is returned by the factory for an unknown backend name.
	ErrUnknownBackend = errors.New("unknown blockstore backend")
)

// BlockStore archives committed blocks. Implementations must be safe for
// concurrent use. SaveBlock makes every store an engine.BlockArchiver.
type BlockStore interface {
	// SaveBlock persists a committed block under its header height.
	SaveBlock(block *engine.Block) error

	// Block retrieves the block stored at height, or ErrBlockNotFound.
	Block(height int64) (*engine.Block, error)

	// Height returns the highest stored height, 0 when empty.
	Height() int64

	// Base returns the lowest stored height, 0 when empty.
	Base() int64

	// Close releases the store's resources.
	Close() error
}

var _ engine.BlockArchiver = (BlockStore)(nil)

// New builds the store selected by cfg.Backend.
func New(cfg config.BlockStoreConfig) (BlockStore, error) {
	switch cfg.Backend {
	case "leveldb":
		return NewLevelDBBlockStore(cfg.Path)
	case "badgerdb":
		return NewBadgerDBBlockStore(cfg.Path)
	case "memory":
		return NewMemoryBlockStore(), nil
	case "noop":
		return NewNoopBlockStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func encodeBlock(block *engine.Block) ([]byte, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return nil, fmt.Errorf("encoding block %d: %w", block.Header.Height, err)
	}
	return data, nil
}

func decodeBlock(data []byte) (*engine.Block, error) {
	var block engine.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	return &block, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// InstrumentedStore wraps a store with save counters and latency histograms.
type InstrumentedStore struct {
	inner BlockStore
	m     metrics.Metrics
}

// WithMetrics wraps store so saves and reads are counted and timed.
func WithMetrics(store BlockStore, m metrics.Metrics) *InstrumentedStore {
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &InstrumentedStore{inner: store, m: m}
}

func (s *InstrumentedStore) SaveBlock(block *engine.Block) error {
	start := time.Now()
	err := s.inner.SaveBlock(block)
	s.m.ObserveStoreLatency("save", time.Since(start))
	if err == nil {
		s.m.IncStoreSaves()
	}
	return err
}

func (s *InstrumentedStore) Block(height int64) (*engine.Block, error) {
	start := time.Now()
	block, err := s.inner.Block(height)
	s.m.ObserveStoreLatency("load", time.Since(start))
	return block, err
}

func (s *InstrumentedStore) Height() int64 { return s.inner.Height() }
func (s *InstrumentedStore) Base() int64   { return s.inner.Base() }
func (s *InstrumentedStore) Close() error  { return s.inner.Close() }
