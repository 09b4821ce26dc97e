package realtime

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Key layout:
//
//	v\x00<path>               value
//	l\x00<path>\x00<seq:020d> log entry
var (
	valuePrefix = []byte("v\x00")
	logPrefix   = []byte("l\x00")
)

// PebbleStore implements Store on an embedded PebbleDB. Notifications are
// delivered in-process only.
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.Mutex
	seq    uint64
	broker *broker
}

// NewPebbleStore opens (or creates) a store in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}

	s := &PebbleStore{db: db, broker: newBroker()}
	if err := s.loadSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// loadSeq restores the log counter from the highest persisted entry.
func (s *PebbleStore) loadSeq() error {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: logPrefix, UpperBound: upperBound(logPrefix)})
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		k := it.Key()
		i := bytes.LastIndexByte(k, 0)
		n, err := strconv.ParseUint(string(k[i+1:]), 10, 64)
		if err != nil {
			continue
		}
		if n > s.seq {
			s.seq = n
		}
	}
	return it.Error()
}

func valueKey(path string) []byte {
	return append(append([]byte{}, valuePrefix...), path...)
}

func logKey(path string) []byte {
	k := append(append([]byte{}, logPrefix...), path...)
	return append(k, 0)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte{}, p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Get retrieves a value by path.
func (s *PebbleStore) Get(ctx context.Context, path string) ([]byte, error) {
	v, closer, err := s.db.Get(valueKey(path))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", path, err)
	}
	defer closer.Close()
	return clone(v), nil
}

// Set stores a value and notifies subscribers.
func (s *PebbleStore) Set(ctx context.Context, path string, value []byte) error {
	if err := s.db.Set(valueKey(path), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", path, err)
	}
	s.broker.publish(Event{Path: path, Value: clone(value)})
	return nil
}

// Delete removes a value and notifies subscribers.
func (s *PebbleStore) Delete(ctx context.Context, path string) error {
	if err := s.db.Delete(valueKey(path), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", path, err)
	}
	s.broker.publish(Event{Path: path, Deleted: true})
	return nil
}

// List returns the direct children of path in key order.
func (s *PebbleStore) List(ctx context.Context, path string) ([]Entry, error) {
	prefix := valueKey(path + "/")
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	var out []Entry
	for it.First(); it.Valid(); it.Next() {
		rest := string(it.Key()[len(prefix):])
		if rest == "" || bytes.IndexByte([]byte(rest), '/') >= 0 {
			continue
		}
		out = append(out, Entry{Key: rest, Value: clone(it.Value())})
	}
	return out, it.Error()
}

// Push appends to the log at path.
func (s *PebbleStore) Push(ctx context.Context, path string, value []byte) (string, error) {
	s.mu.Lock()
	s.seq++
	key := fmt.Sprintf("%020d", s.seq)
	err := s.db.Set(append(logKey(path), key...), value, pebble.Sync)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("pebble append %s: %w", path, err)
	}

	s.broker.publish(Event{Path: Join(path, key), Value: clone(value)})
	return key, nil
}

// Range returns the log at path in insertion order.
func (s *PebbleStore) Range(ctx context.Context, path string) ([]Entry, error) {
	prefix := logKey(path)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	var out []Entry
	for it.First(); it.Valid(); it.Next() {
		out = append(out, Entry{Key: string(it.Key()[len(prefix):]), Value: clone(it.Value())})
	}
	return out, it.Error()
}

// Subscribe streams change events for paths under prefix.
func (s *PebbleStore) Subscribe(ctx context.Context, prefix string) (<-chan Event, error) {
	return s.broker.subscribe(ctx, prefix)
}

// Close stops subscriptions and closes the database.
func (s *PebbleStore) Close() error {
	s.broker.close()
	return s.db.Close()
}

// Ensure PebbleStore implements Store
var _ Store = (*PebbleStore)(nil)
