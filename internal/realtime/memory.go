package realtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Use this for development/testing or single-instance deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	logs   map[string][]Entry
	seq    uint64

	broker *broker
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		logs:   make(map[string][]Entry),
		broker: newBroker(),
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Get retrieves a value by path.
func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[path]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// Set stores a value and notifies subscribers.
func (s *MemoryStore) Set(ctx context.Context, path string, value []byte) error {
	s.mu.Lock()
	s.values[path] = clone(value)
	s.mu.Unlock()

	s.broker.publish(Event{Path: path, Value: clone(value)})
	return nil
}

// Delete removes a value and notifies subscribers.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	_, existed := s.values[path]
	delete(s.values, path)
	s.mu.Unlock()

	if existed {
		s.broker.publish(Event{Path: path, Deleted: true})
	}
	return nil
}

// List returns the direct children of path sorted by key.
func (s *MemoryStore) List(ctx context.Context, path string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for p, v := range s.values {
		if key, ok := childKey(path, p); ok {
			out = append(out, Entry{Key: key, Value: clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Push appends to the log at path.
func (s *MemoryStore) Push(ctx context.Context, path string, value []byte) (string, error) {
	s.mu.Lock()
	s.seq++
	key := fmt.Sprintf("%020d", s.seq)
	s.logs[path] = append(s.logs[path], Entry{Key: key, Value: clone(value)})
	s.mu.Unlock()

	s.broker.publish(Event{Path: Join(path, key), Value: clone(value)})
	return key, nil
}

// Range returns the log at path in insertion order.
func (s *MemoryStore) Range(ctx context.Context, path string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[path]
	out := make([]Entry, len(log))
	for i, e := range log {
		out[i] = Entry{Key: e.Key, Value: clone(e.Value)}
	}
	return out, nil
}

// Subscribe streams change events for paths under prefix.
func (s *MemoryStore) Subscribe(ctx context.Context, prefix string) (<-chan Event, error) {
	return s.broker.subscribe(ctx, prefix)
}

// Close stops all subscriptions.
func (s *MemoryStore) Close() error {
	s.broker.close()
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
