package realtime

import (
	"context"
	"strings"
)

// Store is the realtime key-value store the ledger writes through.
// Paths are slash separated ("inventory/p1"). Single-key writes are
// last-write-wins; nothing spans keys atomically.
type Store interface {
	// Get returns the value at path. Returns ErrNotFound if absent.
	Get(ctx context.Context, path string) ([]byte, error)

	// Set stores value at path and notifies subscribers.
	Set(ctx context.Context, path string, value []byte) error

	// Delete removes the value at path and notifies subscribers.
	Delete(ctx context.Context, path string) error

	// List returns the direct children of path in key order.
	List(ctx context.Context, path string) ([]Entry, error)

	// Push appends value to the log at path under a store-generated key.
	Push(ctx context.Context, path string, value []byte) (string, error)

	// Range returns every entry of the log at path in insertion order.
	Range(ctx context.Context, path string) ([]Entry, error)

	// Subscribe streams change events for paths under prefix until ctx ends.
	Subscribe(ctx context.Context, prefix string) (<-chan Event, error)

	// Close releases backend resources.
	Close() error
}

// Entry is one child value or log line.
type Entry struct {
	Key   string
	Value []byte
}

// Event is a "value changed" notification.
type Event struct {
	Path    string `json:"path"`
	Value   []byte `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`

	// Dropped counts events this subscriber missed just before this one.
	// Non-zero means local state built from events is stale.
	Dropped int `json:"-"`
}

// StoreError is a sentinel error type.
type StoreError string

func (e StoreError) Error() string { return string(e) }

const (
	// ErrNotFound indicates no value exists at the path.
	ErrNotFound StoreError = "realtime: not found"
	// ErrClosed is returned after Close.
	ErrClosed StoreError = "realtime: store closed"
)

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// childKey returns the key of p relative to parent if p is a direct child.
func childKey(parent, p string) (string, bool) {
	prefix := parent + "/"
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := p[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// matches reports whether path falls under prefix.
func matches(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
