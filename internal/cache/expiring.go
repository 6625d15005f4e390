package cache

import (
	"errors"
	"time"
)

var (
	// ErrMissing reports that no entry exists for the key.
	ErrMissing = errors.New("cache: missing entry")

	// ErrExpired reports that the entry exists but its expiry precedes the
	// requested date. Callers treat this like ErrMissing and rebuild; the
	// distinction exists for observability.
	ErrExpired = errors.New("cache: entry expired")
)

type entry[V any] struct {
	payload V
	expiry  time.Time
}

// Expiring is a cache of payloads owned by date-stamped entries. An entry
// is valid while the requested date does not exceed its expiry; expiry is
// checked lazily at lookup time and stale entries are replaced on the next
// Put for the same key, never proactively evicted.
//
// Not safe for concurrent mutation of the same key: the scheduling model
// is one reader per key, and a deployment that parallelizes overlapping
// requests must serialize access per key itself.
type Expiring[V any] struct {
	entries map[string]entry[V]
}

// NewExpiring creates an empty cache.
func NewExpiring[V any]() *Expiring[V] {
	return &Expiring[V]{entries: make(map[string]entry[V])}
}

// Put stores payload under key, valid through expiry inclusive.
func (c *Expiring[V]) Put(key string, payload V, expiry time.Time) {
	c.entries[key] = entry[V]{payload: payload, expiry: expiry}
}

// Get returns the payload stored under key if it is still valid at
// current. The error is ErrMissing when no entry exists and ErrExpired
// when the entry's horizon has passed.
func (c *Expiring[V]) Get(key string, current time.Time) (V, error) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, ErrMissing
	}
	if current.After(e.expiry) {
		return zero, ErrExpired
	}
	return e.payload, nil
}

// Len returns the number of stored entries, including stale ones not yet
// superseded.
func (c *Expiring[V]) Len() int {
	return len(c.entries)
}
