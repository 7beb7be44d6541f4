package blockstore

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/blockberries/tenderberry/engine"
)

// Key layout for LevelDB storage.
var (
	prefixBlock   = []byte("B:") // B:<height> -> block record
	keyMetaHeight = []byte("M:height")
	keyMetaBase   = []byte("M:base")
)

func makeBlockKey(height int64) []byte {
	return append(append([]byte{}, prefixBlock...), encodeInt64(height)...)
}

// LevelDBBlockStore implements BlockStore over LevelDB.
type LevelDBBlockStore struct {
	db     *leveldb.DB
	path   string
	mu     sync.RWMutex
	height int64
	base   int64
}

var _ BlockStore = (*LevelDBBlockStore)(nil)

// NewLevelDBBlockStore opens (or creates) a LevelDB-backed store at path.
func NewLevelDBBlockStore(path string) (*LevelDBBlockStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false,
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	store := &LevelDBBlockStore{db: db, path: path}
	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	return store, nil
}

func (s *LevelDBBlockStore) loadMetadata() error {
	data, err := s.db.Get(keyMetaHeight, nil)
	if err == nil {
		s.height = decodeInt64(data)
	} else if err != leveldb.ErrNotFound {
		return err
	}

	data, err = s.db.Get(keyMetaBase, nil)
	if err == nil {
		s.base = decodeInt64(data)
	} else if err != leveldb.ErrNotFound {
		return err
	}
	return nil
}

// SaveBlock persists a committed block under its header height.
func (s *LevelDBBlockStore) SaveBlock(block *engine.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := block.Header.Height
	key := makeBlockKey(height)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("checking block existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrBlockAlreadyExists, height)
	}

	data, err := encodeBlock(block)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(key, data)
	if height > s.height {
		batch.Put(keyMetaHeight, encodeInt64(height))
	}
	if s.base == 0 || height < s.base {
		batch.Put(keyMetaBase, encodeInt64(height))
	}
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing block %d: %w", height, err)
	}

	if height > s.height {
		s.height = height
	}
	if s.base == 0 || height < s.base {
		s.base = height
	}
	return nil
}

// Block retrieves the block stored at height.
func (s *LevelDBBlockStore) Block(height int64) (*engine.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.db.Get(makeBlockKey(height), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	if err != nil {
		return nil, fmt.Errorf("getting block %d: %w", height, err)
	}
	return decodeBlock(data)
}

// Height returns the highest stored height.
func (s *LevelDBBlockStore) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// Base returns the lowest stored height.
func (s *LevelDBBlockStore) Base() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// Close closes the database.
func (s *LevelDBBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
