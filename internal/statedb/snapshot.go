package statedb

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var (
	storagePrefix = []byte("s")
	headKey       = []byte("head")
)

// SnapshotStore persists storage words to a local leveldb database,
// pinned to the block the snapshot was taken at. It serves offline
// collections after a one-time recording run.
type SnapshotStore struct {
	db *leveldb.DB
}

// OpenSnapshot opens (or creates) a snapshot database at path.
func OpenSnapshot(path string) (*SnapshotStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// OpenSnapshotReadOnly opens an existing snapshot without taking the
// write lock.
func OpenSnapshotReadOnly(path string) (*SnapshotStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func snapshotKey(account common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, len(storagePrefix)+common.AddressLength+common.HashLength)
	key = append(key, storagePrefix...)
	key = append(key, account.Bytes()...)
	key = append(key, slot.Bytes()...)
	return key
}

// StorageAt implements Reader. A missing entry means the slot was
// absent at snapshot time.
func (s *SnapshotStore) StorageAt(_ context.Context, account common.Address, slot common.Hash) (common.Hash, bool, error) {
	value, err := s.db.Get(snapshotKey(account, slot), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return common.Hash{}, false, nil
		}
		return common.Hash{}, false, fmt.Errorf("snapshot get: %w", err)
	}
	return common.BytesToHash(value), true, nil
}

// PutStorage records one storage word.
func (s *SnapshotStore) PutStorage(account common.Address, slot common.Hash, word common.Hash) error {
	if err := s.db.Put(snapshotKey(account, slot), word.Bytes(), nil); err != nil {
		return fmt.Errorf("snapshot put: %w", err)
	}
	return nil
}

// SetHead pins the block number the snapshot was taken at.
func (s *SnapshotStore) SetHead(block uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, block)
	if err := s.db.Put(headKey, buf, nil); err != nil {
		return fmt.Errorf("snapshot put head: %w", err)
	}
	return nil
}

// Head returns the pinned block number, if one was recorded.
func (s *SnapshotStore) Head() (uint64, bool, error) {
	value, err := s.db.Get(headKey, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("snapshot get head: %w", err)
	}
	if len(value) != 8 {
		return 0, false, fmt.Errorf("snapshot head is %d bytes, want 8", len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}
