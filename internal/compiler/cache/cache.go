// Package cache provides an in-memory compilation cache keyed by source
// content hash, so repeated compile_file calls on an unchanged file skip
// the full pipeline (spec §6.1 enable_caching/cache_size_max).
//
// Grounded on the teacher's indirect dependency on dgraph-io/ristretto/v2
// (badger's own cache layer), promoted here to a direct dependency since
// CHTL's need — an in-memory admission-counted cache, no on-disk store —
// is exactly ristretto's own standalone use case.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/chtl-lang/chtl/internal/compiler/diag"
)

// Entry is one cached compilation result, keyed by the hash of its source
// text plus its filename (two files with identical content but different
// names are cached separately, since diagnostics carry the filename).
type Entry struct {
	ID   uuid.UUID
	HTML string
	CSS  string
	JS   string
}

// Cache wraps a ristretto.Cache sized by MaxEntries (spec's cache_size_max,
// interpreted as an entry-count cost rather than a byte budget, matching
// ristretto's default Cost-per-item-of-1 usage pattern for small values).
type Cache struct {
	store *ristretto.Cache[string, Entry]
}

// New returns a Cache able to hold roughly maxEntries entries.
func New(maxEntries int64) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Count only the explicit cost of 1 per entry, so MaxCost is an
		// entry count rather than entries plus ristretto's per-item overhead.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Key derives a stable cache key from a filename and its source bytes.
func Key(filename string, source []byte) string {
	sum := sha256.Sum256(source)
	return filename + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached Entry for key, or an error wrapping
// diag.ErrCacheMiss when the key is absent.
func (c *Cache) Get(key string) (Entry, error) {
	entry, ok := c.store.Get(key)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", diag.ErrCacheMiss, key)
	}
	return entry, nil
}

// Put stores entry under key with cost 1, assigning a fresh ID if entry
// doesn't already carry one. Set is followed by Wait so the entry is
// visible to an immediately following Get; ristretto otherwise applies
// writes asynchronously.
func (c *Cache) Put(key string, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	c.store.Set(key, entry, 1)
	c.store.Wait()
}

// Close releases ristretto's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}
