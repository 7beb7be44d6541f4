package blockstore

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/blockberries/tenderberry/engine"
)

// BadgerDBBlockStore implements BlockStore over BadgerDB.
type BadgerDBBlockStore struct {
	db     *badger.DB
	path   string
	mu     sync.RWMutex
	height int64
	base   int64
}

var _ BlockStore = (*BadgerDBBlockStore)(nil)

// BadgerDBOptions contains tuning options for BadgerDB.
type BadgerDBOptions struct {
	// SyncWrites ensures durability by syncing writes to disk.
	SyncWrites bool

	// Compression enables Snappy compression for values.
	Compression bool

	// ValueLogFileSize is the maximum size of a single value log file.
	ValueLogFileSize int64

	// MemTableSize is the size of the memtable.
	MemTableSize int64

	// Logger is an optional logger for BadgerDB. Nil disables its logging.
	Logger badger.Logger
}

// DefaultBadgerDBOptions returns sensible defaults.
func DefaultBadgerDBOptions() *BadgerDBOptions {
	return &BadgerDBOptions{
		SyncWrites:       true,
		Compression:      true,
		ValueLogFileSize: 1 << 30,
		MemTableSize:     64 << 20,
	}
}

// NewBadgerDBBlockStore opens (or creates) a BadgerDB-backed store at path.
func NewBadgerDBBlockStore(path string) (*BadgerDBBlockStore, error) {
	return NewBadgerDBBlockStoreWithOptions(path, DefaultBadgerDBOptions())
}

// NewBadgerDBBlockStoreWithOptions opens a store with custom tuning.
func NewBadgerDBBlockStoreWithOptions(path string, opts *BadgerDBOptions) (*BadgerDBBlockStore, error) {
	if opts == nil {
		opts = DefaultBadgerDBOptions()
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)
	badgerOpts = badgerOpts.WithValueLogFileSize(opts.ValueLogFileSize)
	badgerOpts = badgerOpts.WithMemTableSize(opts.MemTableSize)
	if opts.Compression {
		badgerOpts = badgerOpts.WithCompression(options.Snappy)
	} else {
		badgerOpts = badgerOpts.WithCompression(options.None)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	store := &BadgerDBBlockStore{db: db, path: path}
	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	return store, nil
}

func (s *BadgerDBBlockStore) loadMetadata() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMetaHeight)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				s.height = decodeInt64(val)
				return nil
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		item, err = txn.Get(keyMetaBase)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				s.base = decodeInt64(val)
				return nil
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

// SaveBlock persists a committed block under its header height.
func (s *BadgerDBBlockStore) SaveBlock(block *engine.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := block.Header.Height
	key := makeBlockKey(height)
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %d", ErrBlockAlreadyExists, height)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		if height > s.height {
			if err := txn.Set(keyMetaHeight, encodeInt64(height)); err != nil {
				return err
			}
		}
		if s.base == 0 || height < s.base {
			if err := txn.Set(keyMetaBase, encodeInt64(height)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
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
func (s *BadgerDBBlockStore) Block(height int64) (*engine.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeBlockKey(height))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decodeBlock(data)
}

// Height returns the highest stored height.
func (s *BadgerDBBlockStore) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// Base returns the lowest stored height.
func (s *BadgerDBBlockStore) Base() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// Close closes the database.
func (s *BadgerDBBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
