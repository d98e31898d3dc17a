package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/ports"
)

// LevelDBStore persists a single client profile on disk
type LevelDBStore struct {
	db *leveldb.DB
}

var _ ports.Store = (*LevelDBStore)(nil)

// OpenLevelDBStore opens or creates the database at path
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// Get retrieves a value by key
func (s *LevelDBStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return string(value), nil
}

// Set stores a key with a value
func (s *LevelDBStore) Set(ctx context.Context, key, value string) error {
	if err := s.db.Put([]byte(key), []byte(value), nil); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Delete removes keys in one batch
func (s *LevelDBStore) Delete(ctx context.Context, keys ...string) error {
	batch := new(leveldb.Batch)
	for _, key := range keys {
		batch.Delete([]byte(key))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Close closes the database
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
