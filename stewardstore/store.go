// Package stewardstore persists steward state snapshots and config
// across process restarts using an embedded Pebble instance, keyed by
// pool and cycle epoch. The steward's authoritative state always lives
// wherever the deployment's instruction-processing loop keeps it; this
// package is the off-chain durability layer underneath that loop (and
// the thing a dashboard or CLI reads from), grounded on the teacher's
// CheckpointPersistenceStore but backed by real disk rather than an
// in-process map.
package stewardstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned when no snapshot exists for the requested key.
var ErrNotFound = errors.New("stewardstore: snapshot not found")

// ErrClosed is returned by any operation attempted after Close.
var ErrClosed = errors.New("stewardstore: store is closed")

// Store persists one pool's steward snapshots across cycles. Thread-safe.
type Store struct {
	mu     sync.RWMutex
	db     *pebble.DB
	closed bool
}

// Open opens (creating if absent) a Pebble instance rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("stewardstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Pebble handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// PutSnapshot persists raw bytes (the caller's serialized StewardState)
// for pool at cycleEpoch, overwriting any prior snapshot at that key.
func (s *Store) PutSnapshot(pool [32]byte, cycleEpoch uint64, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Set(snapshotKey(pool, cycleEpoch), data, pebble.Sync)
}

// GetSnapshot returns the snapshot bytes stored for pool at cycleEpoch.
func (s *Store) GetSnapshot(pool [32]byte, cycleEpoch uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	val, closer, err := s.db.Get(snapshotKey(pool, cycleEpoch))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

// LatestSnapshot returns the snapshot for the highest cycleEpoch stored
// for pool, used on process restart to resume from the last persisted
// cycle rather than replaying from genesis.
func (s *Store) LatestSnapshot(pool [32]byte) (epoch uint64, data []byte, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, nil, ErrClosed
	}
	prefix := poolPrefix(pool)
	it, iterErr := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if iterErr != nil {
		return 0, nil, iterErr
	}
	defer it.Close()

	if !it.Last() {
		return 0, nil, ErrNotFound
	}
	key := it.Key()
	epoch = binary.BigEndian.Uint64(key[len(prefix):])
	val := it.Value()
	cp := make([]byte, len(val))
	copy(cp, val)
	return epoch, cp, nil
}

func poolPrefix(pool [32]byte) []byte {
	return append([]byte("snap:"), pool[:]...)
}

func snapshotKey(pool [32]byte, cycleEpoch uint64) []byte {
	key := poolPrefix(pool)
	var epochBytes [8]byte
	binary.BigEndian.PutUint64(epochBytes[:], cycleEpoch)
	return append(key, epochBytes[:]...)
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, the standard Pebble idiom for a prefix-bounded scan.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] == 0xff {
			continue
		}
		upper[i]++
		return upper[:i+1]
	}
	return nil // all 0xff: unbounded
}
