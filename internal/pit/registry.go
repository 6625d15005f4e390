package pit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Dataset describes one externally sourced point-in-time dataset: its
// value columns and whether records carry a per-asset sid.
type Dataset struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	HasSids bool     `json:"has_sids"`
}

// Hash returns the content hash identifying a dataset definition.
// Structurally identical definitions hash identically regardless of
// column order.
func Hash(d Dataset) string {
	canonical := d
	canonical.Columns = append([]string(nil), d.Columns...)
	sort.Strings(canonical.Columns)
	data, err := json.Marshal(canonical)
	if err != nil {
		// Dataset contains only marshalable fields.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Registry maps dataset definitions to their content hash with a
// caller-provided lifetime. Unlike ambient process-wide memoization, two
// registries never observe each other's registrations, so tests cannot
// leak datasets into one another.
type Registry struct {
	mu     sync.RWMutex
	byHash map[string]Dataset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byHash: make(map[string]Dataset)}
}

// Ensure registers the dataset and returns its hash. Registering a
// structurally identical definition returns the existing entry.
func (r *Registry) Ensure(d Dataset) (string, Dataset) {
	h := Hash(d)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byHash[h]; ok {
		return h, existing
	}
	r.byHash[h] = d
	return h, d
}

// Get returns the dataset registered under hash.
func (r *Registry) Get(hash string) (Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byHash[hash]
	if !ok {
		return Dataset{}, fmt.Errorf("pit: no dataset registered under %s", hash)
	}
	return d, nil
}

// Len returns the number of distinct registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}
